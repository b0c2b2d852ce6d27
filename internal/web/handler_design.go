package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/adbuilder/internal/auth"
	"github.com/vbonduro/adbuilder/internal/builder"
	"github.com/vbonduro/adbuilder/internal/export"
	"github.com/vbonduro/adbuilder/internal/qrcode"
)

// handleListDesigns lists the caller's designs newest first, independent of
// the builder session.
func (s *Server) handleListDesigns(w http.ResponseWriter, r *http.Request) {
	designs, err := s.service.ListDesigns(r.Context(), auth.OwnerID(r.Context()))
	if err != nil {
		s.logger.Error("list designs failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list designs")
		return
	}

	cards := make([]builder.DesignCard, 0, len(designs))
	for _, d := range designs {
		cards = append(cards, builder.NewDesignCard(d, s.origin))
	}
	if err := writeJSON(w, http.StatusOK, cards); err != nil {
		s.logger.Error("write designs failed", "error", err)
	}
}

// handleDesignCode renders and exports a design's code in one request.
func (s *Server) handleDesignCode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	format, size, err := parseExportQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := s.service.GetDesign(r.Context(), id)
	if err != nil {
		s.logger.Error("get design failed", "design_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get design")
		return
	}
	if d == nil || !sameOwner(d.OwnerID, auth.OwnerID(r.Context())) {
		s.writeError(w, http.StatusNotFound, "design not found")
		return
	}
	if d.Space == nil || d.Space.ID == "" {
		s.writeError(w, http.StatusNotFound, "Ad space information not available")
		return
	}

	g, err := qrcode.Render(qrcode.ViewURL(s.origin, d.Space.ID), s.codeOpts)
	if err != nil {
		s.logger.Error("render code failed", "design_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to render code")
		return
	}

	artifact, err := export.Export(r.Context(), g, size, format, s.decoder)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, export.ErrUnknownFormat) {
			status = http.StatusBadRequest
		}
		s.logger.Error("export code failed", "design_id", id, "error", err)
		s.writeError(w, status, "failed to export code")
		return
	}
	s.writeArtifact(w, artifact)
}

func sameOwner(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
