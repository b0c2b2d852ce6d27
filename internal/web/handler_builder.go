package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/adbuilder/internal/auth"
	"github.com/vbonduro/adbuilder/internal/builder"
	"github.com/vbonduro/adbuilder/internal/domain"
	"github.com/vbonduro/adbuilder/internal/export"
)

const (
	minExportSize = 32
	maxExportSize = 4096
)

type builderResponse struct {
	builder.Snapshot
	Notices []builder.Notice `json:"notices,omitempty"`
}

type builderErrorBody struct {
	Field   string           `json:"field,omitempty"`
	Error   string           `json:"error"`
	Notices []builder.Notice `json:"notices,omitempty"`
}

// formPatch is a partial form update. Absent fields keep their value.
type formPatch struct {
	Name            *string      `json:"name"`
	Background      *string      `json:"background"`
	Mode            *domain.Mode `json:"mode"`
	RedirectURL     *string      `json:"redirectUrl"`
	MediaURL        *string      `json:"mediaUrl"`
	Headline        *string      `json:"headline"`
	Subheadline     *string      `json:"subheadline"`
	ShowHeadline    *bool        `json:"showHeadline"`
	ShowSubheadline *bool        `json:"showSubheadline"`
	ShowBackground  *bool        `json:"showBackground"`
}

func (p formPatch) apply(f *builder.FormState) {
	setString(&f.Name, p.Name)
	setString(&f.Background, p.Background)
	setString(&f.RedirectURL, p.RedirectURL)
	setString(&f.MediaURL, p.MediaURL)
	setString(&f.Headline, p.Headline)
	setString(&f.Subheadline, p.Subheadline)
	setBool(&f.ShowHeadline, p.ShowHeadline)
	setBool(&f.ShowSubheadline, p.ShowSubheadline)
	setBool(&f.ShowBackground, p.ShowBackground)
}

func setString(dst, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// session returns the caller's builder session, loading its designs on first
// use. A failed load leaves an empty list and a queued notice.
func (s *Server) session(r *http.Request) *builder.Session {
	sess := s.sessions.Get(auth.ActorID(r.Context()))
	if !sess.Loaded() {
		_ = sess.Load(r.Context())
	}
	return sess
}

func (s *Server) respondBuilder(w http.ResponseWriter, sess *builder.Session, status int) {
	resp := builderResponse{Snapshot: sess.Snapshot(), Notices: sess.Inbox.Drain()}
	if err := writeJSON(w, status, resp); err != nil {
		s.logger.Error("write builder response failed", "error", err)
	}
}

func (s *Server) builderError(w http.ResponseWriter, sess *builder.Session, op string, err error) {
	body := builderErrorBody{Error: err.Error()}
	status := http.StatusInternalServerError

	var verr *builder.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		body.Field = verr.Field
		body.Error = verr.Message
	case errors.Is(err, builder.ErrBusy), errors.Is(err, builder.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, builder.ErrNoSelection):
		status = http.StatusNotFound
	default:
		s.logger.Error("builder operation failed", "op", op, "error", err)
		body.Error = "failed to " + op
	}

	body.Notices = sess.Inbox.Drain()
	if werr := writeJSON(w, status, body); werr != nil {
		s.logger.Error("write builder error failed", "error", werr)
	}
}

func (s *Server) handleBuilderState(w http.ResponseWriter, r *http.Request) {
	s.respondBuilder(w, s.session(r), http.StatusOK)
}

func (s *Server) handleStartCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	if err := sess.StartCreate(); err != nil {
		s.builderError(w, sess, "start create", err)
		return
	}
	s.respondBuilder(w, sess, http.StatusOK)
}

func (s *Server) handleOpenDetail(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	if err := sess.OpenDetail(chi.URLParam(r, "id")); err != nil {
		s.builderError(w, sess, "open design", err)
		return
	}
	s.respondBuilder(w, sess, http.StatusOK)
}

func (s *Server) handleStartEdit(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	if err := sess.StartEdit(chi.URLParam(r, "id")); err != nil {
		s.builderError(w, sess, "edit design", err)
		return
	}
	s.respondBuilder(w, sess, http.StatusOK)
}

func (s *Server) handleBuilderDelete(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	if err := sess.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.builderError(w, sess, "delete design", err)
		return
	}
	s.respondBuilder(w, sess, http.StatusOK)
}

func (s *Server) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	var patch formPatch
	if err := readJSON(w, r, &patch); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	if patch.Mode != nil {
		if *patch.Mode != domain.ModeRedirect && *patch.Mode != domain.ModeCustom {
			s.builderError(w, sess, "update form", &builder.ValidationError{Field: "mode", Message: "Please choose an ad type"})
			return
		}
		if err := sess.SetMode(*patch.Mode); err != nil {
			s.builderError(w, sess, "update form", err)
			return
		}
	}
	if err := sess.UpdateForm(patch.apply); err != nil {
		s.builderError(w, sess, "update form", err)
		return
	}
	s.respondBuilder(w, sess, http.StatusOK)
}

func (s *Server) handleStageMedia(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxMediaSize)
	if err := r.ParseMultipartForm(maxMediaSize); err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	file, header, err := r.FormFile("media")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "media file required")
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to read file")
		s.logger.Error("read upload failed", "error", err)
		return
	}

	mimeType, ok := allowedMediaMIME(data)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unsupported media format")
		return
	}

	if err := sess.StageMedia(header.Filename, mimeType, data); err != nil {
		s.builderError(w, sess, "stage media", err)
		return
	}
	s.respondBuilder(w, sess, http.StatusOK)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	design, err := sess.Save(r.Context())
	if err != nil {
		s.builderError(w, sess, "save design", err)
		return
	}
	s.logger.Info("design saved", "design_id", design.ID, "ad_space_id", design.AdSpaceID)
	s.respondBuilder(w, sess, http.StatusOK)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	if err := sess.Back(); err != nil {
		s.builderError(w, sess, "go back", err)
		return
	}
	s.respondBuilder(w, sess, http.StatusOK)
}

type exportResult struct {
	artifact *export.Artifact
	err      error
}

// handleBuilderCode downloads the code shown in the detail view. The export
// runs on the session's exporter so a second request while one is running is
// refused.
func (s *Server) handleBuilderCode(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)

	format, size, err := parseExportQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	done := make(chan exportResult, 1)
	started := sess.ExportCode(context.WithoutCancel(r.Context()), format, size, func(a *export.Artifact, err error) {
		done <- exportResult{artifact: a, err: err}
	})
	if !started {
		if sess.Code() == nil {
			s.writeError(w, http.StatusNotFound, "no code to export")
			return
		}
		s.writeError(w, http.StatusConflict, "export already in progress")
		return
	}

	select {
	case res := <-done:
		if res.err != nil {
			s.logger.Error("export code failed", "format", format.String(), "error", res.err)
			s.writeError(w, http.StatusInternalServerError, "failed to export code")
			return
		}
		s.writeArtifact(w, res.artifact)
	case <-r.Context().Done():
		s.logger.Warn("client left before export finished", "format", format.String())
	}
}

// parseExportQuery reads ?format=svg|png and an optional ?size in pixels.
// A zero size keeps the graphic's own size.
func parseExportQuery(r *http.Request) (export.Format, int, error) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		return 0, 0, err
	}
	raw := q.Get("size")
	if raw == "" {
		return format, 0, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < minExportSize || size > maxExportSize {
		return 0, 0, errors.New("size must be between 32 and 4096")
	}
	return format, size, nil
}

func (s *Server) writeArtifact(w http.ResponseWriter, a *export.Artifact) {
	w.Header().Set("Content-Type", a.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+a.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(a.Data); err != nil {
		s.logger.Error("write code failed", "filename", a.Filename, "error", err)
	}
}
