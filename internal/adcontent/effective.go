// Package adcontent reconciles the content stored on an ad design with the
// content stored on its linked ad space into the single view a viewer sees.
package adcontent

import "github.com/vbonduro/adbuilder/internal/domain"

// Effective is the resolved content of an ad. Flags keep the explicit value
// when one was stored on either record and nil otherwise.
type Effective struct {
	RedirectURL string           `json:"redirectUrl,omitempty"`
	MediaURL    string           `json:"mediaUrl,omitempty"`
	MediaType   domain.MediaType `json:"mediaType,omitempty"`
	Headline    string           `json:"headline,omitempty"`
	Subheadline string           `json:"subheadline,omitempty"`

	ShowHeadline    *bool `json:"showHeadline,omitempty"`
	ShowSubheadline *bool `json:"showSubheadline,omitempty"`
	ShowBackground  *bool `json:"showBackground,omitempty"`
}

// Resolve applies design-over-space precedence field by field. Either side
// may be nil.
func Resolve(design, space *domain.StoredContent) Effective {
	var d, s domain.StoredContent
	if design != nil {
		d = *design
	}
	if space != nil {
		s = *space
	}

	e := Effective{
		RedirectURL:     first(d.RedirectURL, s.URL),
		MediaURL:        first(d.MediaURL, s.MediaURL),
		MediaType:       domain.MediaType(first(string(d.MediaType), string(s.MediaType))),
		Headline:        first(d.Headline, s.Headline),
		Subheadline:     first(d.Subheadline, s.Subheadline),
		ShowHeadline:    firstFlag(d.ShowHeadline, s.ShowHeadline),
		ShowSubheadline: firstFlag(d.ShowSubheadline, s.ShowSubheadline),
		ShowBackground:  firstFlag(d.ShowBackground, s.ShowBackground),
	}
	if e.MediaURL != "" && e.MediaType == "" {
		e.MediaType = domain.MediaImage
	}
	return e
}

// ForDesign resolves the effective content of a listed design.
func ForDesign(d *domain.DesignWithSpace) Effective {
	if d == nil || d.AdDesign == nil {
		return Effective{}
	}
	e := Resolve(&d.Content, d.SpaceContent())
	// Legacy designs stored their image outside of content.
	if e.MediaURL == "" && d.ImageURL != nil && *d.ImageURL != "" {
		e.MediaURL = *d.ImageURL
		if e.MediaType == "" {
			e.MediaType = domain.MediaImage
		}
	}
	return e
}

// IsRedirect reports whether the ad resolves to a plain redirect. Custom
// media always wins over a redirect target.
func (e Effective) IsRedirect() bool {
	return e.RedirectURL != "" && e.MediaURL == ""
}

func (e Effective) HeadlineVisible() bool {
	return visible(e.ShowHeadline, e.Headline != "")
}

func (e Effective) SubheadlineVisible() bool {
	return visible(e.ShowSubheadline, e.Subheadline != "")
}

// BackgroundVisible takes the design background since the color itself lives
// outside of content.
func (e Effective) BackgroundVisible(background string) bool {
	return visible(e.ShowBackground, background != "")
}

func visible(flag *bool, present bool) bool {
	if flag != nil {
		return *flag && present
	}
	return present
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFlag(flags ...*bool) *bool {
	for _, f := range flags {
		if f != nil {
			v := *f
			return &v
		}
	}
	return nil
}
