package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type Mode string

const (
	ModeRedirect Mode = "redirect"
	ModeCustom   Mode = "custom"
)

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// StoredContent is the JSON document persisted in the content column of both
// ad_spaces and ad_designs. Spaces historically carry the redirect target in
// URL, designs in RedirectURL. Show flags are pointers so that a missing flag
// (legacy rows) can be told apart from an explicit false.
type StoredContent struct {
	URL             string    `json:"url,omitempty"`
	RedirectURL     string    `json:"redirectUrl,omitempty"`
	Headline        string    `json:"headline,omitempty"`
	Subheadline     string    `json:"subheadline,omitempty"`
	MediaType       MediaType `json:"mediaType,omitempty"`
	MediaURL        string    `json:"mediaUrl,omitempty"`
	ShowHeadline    *bool     `json:"showHeadline,omitempty"`
	ShowSubheadline *bool     `json:"showSubheadline,omitempty"`
	ShowBackground  *bool     `json:"showBackground,omitempty"`
}

func (c StoredContent) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode content: %w", err)
	}
	return string(b), nil
}

func (c *StoredContent) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = StoredContent{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported content column type %T", src)
	}
	if len(raw) == 0 {
		*c = StoredContent{}
		return nil
	}
	var out StoredContent
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode content: %w", err)
	}
	*c = out
	return nil
}

// AdContent is the canonical content of an ad. Mode discriminates which of
// the remaining fields are meaningful: RedirectURL for ModeRedirect, the media
// and overlay text fields for ModeCustom.
type AdContent struct {
	Mode        Mode
	RedirectURL string

	MediaType   MediaType
	MediaURL    string
	Headline    string
	Subheadline string

	ShowHeadline    bool
	ShowSubheadline bool
	ShowBackground  bool
}

// ForDesign returns the shape stored on the ad design record.
func (c AdContent) ForDesign() StoredContent {
	if c.Mode == ModeRedirect {
		return StoredContent{RedirectURL: c.RedirectURL}
	}
	return c.custom()
}

// ForSpace returns the shape stored on the ad space record.
func (c AdContent) ForSpace() StoredContent {
	if c.Mode == ModeRedirect {
		return StoredContent{URL: c.RedirectURL}
	}
	return c.custom()
}

func (c AdContent) custom() StoredContent {
	mt := c.MediaType
	if mt == "" {
		mt = MediaImage
	}
	return StoredContent{
		MediaType:       mt,
		MediaURL:        c.MediaURL,
		Headline:        c.Headline,
		Subheadline:     c.Subheadline,
		ShowHeadline:    boolPtr(c.ShowHeadline),
		ShowSubheadline: boolPtr(c.ShowSubheadline),
		ShowBackground:  boolPtr(c.ShowBackground),
	}
}

func boolPtr(b bool) *bool { return &b }

func (t Theme) Value() (driver.Value, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode theme: %w", err)
	}
	return string(b), nil
}

func (t *Theme) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = Theme{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), t)
	case []byte:
		return json.Unmarshal(v, t)
	default:
		return fmt.Errorf("unsupported theme column type %T", src)
	}
}
