package domain

import "time"

// AdSpace is the publicly-resolvable record a generated code points at.
type AdSpace struct {
	ID          string
	OwnerID     *string
	Title       string
	Description string
	Content     StoredContent
	Theme       Theme
	CreatedAt   time.Time
}

type Theme struct {
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
}

// AdDesign is the authoring record. AdSpaceID is always set once persisted.
type AdDesign struct {
	ID         string
	OwnerID    *string
	Name       string
	Background string
	Content    StoredContent
	// ImageURL predates Content.MediaURL and is only read, never written.
	ImageURL  *string
	AdSpaceID string
	CreatedAt time.Time
}

// LinkedSpace is the projection of an AdSpace joined onto a design listing.
type LinkedSpace struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Content StoredContent `json:"content"`
}

// DesignWithSpace is a design together with its joined ad space. Space is nil
// when the link cannot be resolved.
type DesignWithSpace struct {
	*AdDesign
	Space *LinkedSpace
}

// SpaceContent returns the joined space content, or nil when there is no link.
func (d *DesignWithSpace) SpaceContent() *StoredContent {
	if d == nil || d.Space == nil {
		return nil
	}
	return &d.Space.Content
}

// SpaceFields are the mutable columns of an ad space.
type SpaceFields struct {
	Title       string
	Description string
	Content     StoredContent
	Theme       Theme
}

// DesignFields are the mutable columns of an ad design.
type DesignFields struct {
	Name       string
	Background string
	Content    StoredContent
}
