package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/vbonduro/adbuilder/internal/adcontent"
	"github.com/vbonduro/adbuilder/internal/qrcode"
	"github.com/vbonduro/adbuilder/internal/service"
)

type viewResponse struct {
	AdSpaceID          string              `json:"adSpaceId"`
	CodeID             string              `json:"codeId,omitempty"`
	Title              string              `json:"title"`
	Background         string              `json:"background,omitempty"`
	Content            adcontent.Effective `json:"content"`
	HeadlineVisible    bool                `json:"headlineVisible"`
	SubheadlineVisible bool                `json:"subheadlineVisible"`
	BackgroundVisible  bool                `json:"backgroundVisible"`
}

// handleView resolves a scanned code. Redirect ads answer 302 to their
// target; custom ads answer with their content for the viewer to render.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	adSpaceID, codeID := qrcode.ParseViewQuery(r.URL.Query())
	if adSpaceID == "" {
		s.writeError(w, http.StatusNotFound, "ad not found")
		return
	}

	v, err := s.service.ResolveView(r.Context(), adSpaceID)
	if errors.Is(err, service.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "ad not found")
		return
	}
	if err != nil {
		s.logger.Error("resolve view failed", "ad_space_id", adSpaceID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load ad")
		return
	}

	if v.Content.IsRedirect() && isWebURL(v.Content.RedirectURL) {
		s.logger.Debug("redirecting scan", "ad_space_id", adSpaceID, "code_id", codeID)
		http.Redirect(w, r, v.Content.RedirectURL, http.StatusFound)
		return
	}

	resp := viewResponse{
		AdSpaceID:          v.Space.ID,
		CodeID:             codeID,
		Title:              v.Space.Title,
		Content:            v.Content,
		HeadlineVisible:    v.Content.HeadlineVisible(),
		SubheadlineVisible: v.Content.SubheadlineVisible(),
		BackgroundVisible:  v.Content.BackgroundVisible(v.Background),
	}
	if resp.BackgroundVisible {
		resp.Background = v.Background
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.Error("write view failed", "error", err)
	}
}

// isWebURL rejects targets such as javascript: that must never be followed.
func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
