package builder

import (
	"strings"

	"github.com/vbonduro/adbuilder/internal/adcontent"
	"github.com/vbonduro/adbuilder/internal/domain"
	"github.com/vbonduro/adbuilder/internal/service"
)

const defaultBackground = "#FFFFFF"

// FormState is the editable state of the create and edit views. It is never
// persisted as is; Save turns it into a service.SaveInput.
type FormState struct {
	Name        string           `json:"name"`
	Background  string           `json:"background"`
	Mode        domain.Mode      `json:"mode"`
	RedirectURL string           `json:"redirectUrl"`
	MediaURL    string           `json:"mediaUrl"`
	MediaType   domain.MediaType `json:"mediaType"`
	Headline    string           `json:"headline"`
	Subheadline string           `json:"subheadline"`

	ShowHeadline    bool `json:"showHeadline"`
	ShowSubheadline bool `json:"showSubheadline"`
	ShowBackground  bool `json:"showBackground"`
}

// DefaultForm is the state of a fresh create view.
func DefaultForm() FormState {
	return FormState{
		Background:      defaultBackground,
		Mode:            domain.ModeRedirect,
		MediaType:       domain.MediaImage,
		ShowHeadline:    true,
		ShowSubheadline: true,
		ShowBackground:  true,
	}
}

// HydrateForm builds the edit form for an existing design. The mode is
// redirect when a redirect target resolves and there is neither media nor a
// headline, custom otherwise. Show flags come from the stored flag when there
// is one and from the presence of the value when there is not.
func HydrateForm(d *domain.DesignWithSpace) FormState {
	eff := adcontent.ForDesign(d)

	f := FormState{
		Name:            d.Name,
		Background:      d.Background,
		RedirectURL:     eff.RedirectURL,
		MediaURL:        eff.MediaURL,
		MediaType:       eff.MediaType,
		Headline:        eff.Headline,
		Subheadline:     eff.Subheadline,
		ShowHeadline:    flagOr(eff.ShowHeadline, eff.Headline != ""),
		ShowSubheadline: flagOr(eff.ShowSubheadline, eff.Subheadline != ""),
		ShowBackground:  flagOr(eff.ShowBackground, d.Background != ""),
	}
	if f.Background == "" {
		f.Background = defaultBackground
	}
	if f.MediaType == "" {
		f.MediaType = domain.MediaImage
	}

	f.Mode = domain.ModeCustom
	if eff.RedirectURL != "" && eff.MediaURL == "" && eff.Headline == "" {
		f.Mode = domain.ModeRedirect
	}
	return f
}

func flagOr(flag *bool, fallback bool) bool {
	if flag != nil {
		return *flag
	}
	return fallback
}

// ValidationError reports the first form rule that failed.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

const (
	msgNameRequired     = "Please provide a name for your ad"
	msgRedirectRequired = "Please provide a redirect URL"
	msgMediaRequired    = "Please upload an image or video"
	msgUnknownMode      = "Please choose an ad type"
)

// Validate checks the form in rule order and returns the first failure.
// Custom ads are gated on media: either a staged upload or an existing media
// URL. Headline and subheadline are optional overlays.
func (f FormState) Validate(hasStagedMedia bool) *ValidationError {
	if strings.TrimSpace(f.Name) == "" {
		return &ValidationError{Field: "name", Message: msgNameRequired}
	}
	switch f.Mode {
	case domain.ModeRedirect:
		if strings.TrimSpace(f.RedirectURL) == "" {
			return &ValidationError{Field: "redirectUrl", Message: msgRedirectRequired}
		}
	case domain.ModeCustom:
		if !hasStagedMedia && strings.TrimSpace(f.MediaURL) == "" {
			return &ValidationError{Field: "media", Message: msgMediaRequired}
		}
	default:
		return &ValidationError{Field: "mode", Message: msgUnknownMode}
	}
	return nil
}

// saveInput converts a validated form. mediaURL and mediaType override the
// form's values when a staged upload has just been stored.
func (f FormState) saveInput(mediaURL string, mediaType domain.MediaType) service.SaveInput {
	content := domain.AdContent{Mode: f.Mode}
	if f.Mode == domain.ModeRedirect {
		content.RedirectURL = strings.TrimSpace(f.RedirectURL)
	} else {
		content.MediaURL = f.MediaURL
		content.MediaType = f.MediaType
		if mediaURL != "" {
			content.MediaURL = mediaURL
			content.MediaType = mediaType
		}
		content.Headline = f.Headline
		content.Subheadline = f.Subheadline
		content.ShowHeadline = f.ShowHeadline
		content.ShowSubheadline = f.ShowSubheadline
		content.ShowBackground = f.ShowBackground
	}

	bg := f.Background
	if bg == "" {
		bg = defaultBackground
	}
	return service.SaveInput{
		Name:       strings.TrimSpace(f.Name),
		Background: bg,
		Content:    content,
	}
}

// mediaTypeOf infers the media kind of an upload from its MIME type.
func mediaTypeOf(mimeType string) domain.MediaType {
	if strings.HasPrefix(mimeType, "image/") {
		return domain.MediaImage
	}
	return domain.MediaVideo
}
