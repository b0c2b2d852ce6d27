package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vbonduro/adbuilder/internal/blobstore/local"
)

const maxMediaSize = 50 * 1024 * 1024 // 50 MB

// allowedMediaTypes is the set of MIME types accepted for ad media.
// net/http.DetectContentType handles JPEG, PNG, GIF, MP4 and WebM via
// magic-byte sniffing. WebP is detected separately because the WHATWG sniffing
// algorithm (and therefore the stdlib) does not include a WebP signature.
var allowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"video/mp4":  true,
	"video/webm": true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// allowedMediaMIME returns the detected MIME type and true if the data is an
// accepted image or video format, or ("", false) otherwise.
func allowedMediaMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedMediaTypes[mime] {
		return mime, true
	}
	return "", false
}

// handleGetMedia serves objects of the local blob store at the public URLs it
// hands out.
func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		http.NotFound(w, r)
		return
	}
	key := chi.URLParam(r, "*")

	reader, mimeType, err := s.media.Get(r.Context(), key)
	if errors.Is(err, local.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to read media", http.StatusBadRequest)
		s.logger.Warn("get media failed", "storage_key", key, "error", err)
		return
	}
	defer closeWithLog(reader, "media reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write media failed", "storage_key", key, "error", err)
	}
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
