// Package export turns a rendered code graphic into a downloadable file.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/adbuilder/internal/qrcode"
)

type Format int

const (
	FormatVector Format = iota
	FormatRaster
)

var (
	ErrNoGraphic     = errors.New("export: no graphic to export")
	ErrDecode        = errors.New("export: failed to decode graphic")
	ErrUnknownFormat = errors.New("export: unknown format")
)

// ParseFormat accepts the file extension or the contract name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "svg", "vector":
		return FormatVector, nil
	case "png", "raster":
		return FormatRaster, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) Extension() string {
	if f == FormatRaster {
		return ".png"
	}
	return ".svg"
}

func (f Format) MIMEType() string {
	if f == FormatRaster {
		return "image/png"
	}
	return "image/svg+xml"
}

func (f Format) String() string {
	if f == FormatRaster {
		return "raster"
	}
	return "vector"
}

// Artifact is a finished download.
type Artifact struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Decoder rasterizes SVG markup at the given pixel size.
type Decoder interface {
	Decode(ctx context.Context, svg []byte, width, height int) (image.Image, error)
}

var now = time.Now

// Filename is timestamped, so two exports in the same millisecond collide.
func Filename(f Format) string {
	return "qr-code-" + strconv.FormatInt(now().UnixMilli(), 10) + f.Extension()
}

// Export produces a file of the requested format from a detached copy of g.
// Both formats sit on an opaque white background sized to size.
func Export(ctx context.Context, g *qrcode.Graphic, size int, format Format, dec Decoder) (*Artifact, error) {
	if g == nil {
		return nil, ErrNoGraphic
	}
	if size <= 0 {
		size = g.Size
	}
	clone := g.Clone()

	switch format {
	case FormatVector:
		return &Artifact{
			Filename: Filename(format),
			MIMEType: format.MIMEType(),
			Data:     []byte(VectorDocument(clone, size)),
		}, nil
	case FormatRaster:
		data, err := raster(ctx, clone, size, dec)
		if err != nil {
			return nil, err
		}
		return &Artifact{
			Filename: Filename(format),
			MIMEType: format.MIMEType(),
			Data:     data,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
}

// VectorDocument wraps the graphic in a standalone SVG document with a white
// backing rectangle underneath it.
func VectorDocument(g *qrcode.Graphic, size int) string {
	s := strconv.Itoa(size)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="` + s + `" height="` + s + `" viewBox="0 0 ` + s + " " + s + `">`)
	b.WriteString(`<rect x="0" y="0" width="` + s + `" height="` + s + `" fill="#ffffff"/>`)
	if g.Size > 0 && g.Size != size {
		scale := strconv.FormatFloat(float64(size)/float64(g.Size), 'f', -1, 64)
		b.WriteString(`<g transform="scale(` + scale + `)">` + g.Markup + `</g>`)
	} else {
		b.WriteString(g.Markup)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func raster(ctx context.Context, g *qrcode.Graphic, size int, dec Decoder) ([]byte, error) {
	if dec == nil {
		dec = SVGDecoder{}
	}

	bounds := image.Rect(0, 0, size, size)
	surface := image.NewRGBA(bounds)
	draw.Draw(surface, bounds, image.White, image.Point{}, draw.Src)

	img, err := dec.Decode(ctx, []byte(g.Markup), size, size)
	if err != nil {
		if errors.Is(err, ErrDecode) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img == nil {
		return nil, ErrDecode
	}
	draw.Draw(surface, bounds, img, img.Bounds().Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, surface); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
