package export

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedDecoder blocks every decode until release is closed.
type gatedDecoder struct {
	started chan struct{}
	release chan struct{}
	err     error
}

func newGatedDecoder() *gatedDecoder {
	return &gatedDecoder{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (d *gatedDecoder) Decode(ctx context.Context, svg []byte, w, h int) (image.Image, error) {
	d.started <- struct{}{}
	<-d.release
	if d.err != nil {
		return nil, d.err
	}
	return SVGDecoder{}.Decode(ctx, svg, w, h)
}

type result struct {
	art *Artifact
	err error
}

func TestExporterNoGraphicIsNoop(t *testing.T) {
	e := NewExporter(nil, slog.Default())

	called := false
	started := e.Start(context.Background(), nil, 200, FormatRaster, func(*Artifact, error) { called = true })

	assert.False(t, started)
	assert.False(t, e.InProgress())
	assert.False(t, called)
}

func TestExporterWaitsForDecode(t *testing.T) {
	dec := newGatedDecoder()
	e := NewExporter(dec, slog.Default())
	done := make(chan result, 2)

	require.True(t, e.Start(context.Background(), renderTestGraphic(t, 200), 200, FormatRaster, func(a *Artifact, err error) {
		done <- result{a, err}
	}))
	<-dec.started

	assert.True(t, e.InProgress())
	select {
	case <-done:
		t.Fatal("completion fired before decode resolved")
	case <-time.After(50 * time.Millisecond):
	}

	close(dec.release)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "image/png", res.art.MIMEType)
	assert.False(t, e.InProgress())

	select {
	case <-done:
		t.Fatal("completion fired twice")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestExporterPendingDecodeStaysInProgress(t *testing.T) {
	dec := newGatedDecoder()
	t.Cleanup(func() { close(dec.release) })
	e := NewExporter(dec, slog.Default())

	require.True(t, e.Start(context.Background(), renderTestGraphic(t, 200), 200, FormatRaster, nil))
	<-dec.started

	time.Sleep(50 * time.Millisecond)
	assert.True(t, e.InProgress(), "a decode that never resolves must keep the export pending")
	assert.False(t, e.Start(context.Background(), renderTestGraphic(t, 200), 200, FormatVector, nil))
}

func TestExporterDecodeFailureClearsProgress(t *testing.T) {
	dec := newGatedDecoder()
	dec.err = errors.New("broken image")
	close(dec.release)
	e := NewExporter(dec, slog.Default())
	done := make(chan result, 1)

	require.True(t, e.Start(context.Background(), renderTestGraphic(t, 200), 200, FormatRaster, func(a *Artifact, err error) {
		done <- result{a, err}
	}))

	res := <-done
	assert.ErrorIs(t, res.err, ErrDecode)
	assert.Nil(t, res.art)
	assert.False(t, e.InProgress())
}

func TestExporterVector(t *testing.T) {
	e := NewExporter(nil, slog.Default())
	done := make(chan result, 1)

	require.True(t, e.Start(context.Background(), renderTestGraphic(t, 200), 200, FormatVector, func(a *Artifact, err error) {
		done <- result{a, err}
	}))

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "image/svg+xml", res.art.MIMEType)
	assert.False(t, e.InProgress())
}
