package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/vbonduro/adbuilder/internal/qrcode"
)

// Exporter runs one export at a time in the background and reports whether
// one is still pending.
type Exporter struct {
	decoder    Decoder
	logger     *slog.Logger
	inProgress atomic.Bool
}

func NewExporter(dec Decoder, logger *slog.Logger) *Exporter {
	if dec == nil {
		dec = SVGDecoder{}
	}
	return &Exporter{decoder: dec, logger: logger}
}

func (e *Exporter) InProgress() bool {
	return e.inProgress.Load()
}

// Start exports g asynchronously and calls onDone exactly once when the
// export has finished, after InProgress has been cleared. It returns false
// and does nothing when g is nil or another export is still running.
func (e *Exporter) Start(ctx context.Context, g *qrcode.Graphic, size int, format Format, onDone func(*Artifact, error)) bool {
	if g == nil {
		e.logger.Debug("export skipped: no graphic mounted")
		return false
	}
	if !e.inProgress.CompareAndSwap(false, true) {
		e.logger.Debug("export skipped: already in progress")
		return false
	}

	clone := g.Clone()
	go func() {
		var (
			art *Artifact
			err error
		)
		defer func() {
			if r := recover(); r != nil {
				art, err = nil, fmt.Errorf("export panicked: %v", r)
			}
			e.inProgress.Store(false)
			if err != nil {
				e.logger.Error("code export failed", "format", format.String(), "error", err)
			} else {
				e.logger.Info("code exported", "format", format.String(), "filename", art.Filename, "bytes", len(art.Data))
			}
			if onDone != nil {
				onDone(art, err)
			}
		}()
		art, err = Export(ctx, clone, size, format, e.decoder)
	}()
	return true
}
