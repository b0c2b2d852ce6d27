// Package qrcode renders scannable codes as SVG graphics and owns the viewer
// URL format that every generated code encodes.
package qrcode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	goqrcode "github.com/skip2/go-qrcode"
)

// Level is the error-correction level, named as in the QR standard:
// L, M, Q or H.
type Level string

const (
	LevelL Level = "L"
	LevelM Level = "M"
	LevelQ Level = "Q"
	LevelH Level = "H"
)

const (
	DefaultSize  = 256
	DefaultLevel = LevelH
)

var ErrEmptyValue = errors.New("qrcode: empty value")

// ParseLevel accepts L, M, Q or H in any case.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToUpper(strings.TrimSpace(s))); l {
	case LevelL, LevelM, LevelQ, LevelH:
		return l, nil
	}
	return "", fmt.Errorf("qrcode: unknown error correction level %q", s)
}

func (l Level) recovery() goqrcode.RecoveryLevel {
	switch l {
	case LevelL:
		return goqrcode.Low
	case LevelM:
		return goqrcode.Medium
	case LevelQ:
		return goqrcode.High
	default:
		return goqrcode.Highest
	}
}

type Options struct {
	Level         Level
	Size          int
	IncludeMargin bool
}

// DefaultOptions matches what the dashboard shows: level H, 256px, with a
// quiet-zone margin.
func DefaultOptions() Options {
	return Options{Level: DefaultLevel, Size: DefaultSize, IncludeMargin: true}
}

// Graphic is a rendered code: a standalone <svg> element whose dark modules
// are drawn over a transparent background.
type Graphic struct {
	Value   string
	Markup  string
	Size    int
	Modules int
}

// Clone returns a copy that shares nothing mutable with g.
func (g *Graphic) Clone() *Graphic {
	if g == nil {
		return nil
	}
	c := *g
	return &c
}

// Render encodes value and draws it as SVG.
func Render(value string, opts Options) (*Graphic, error) {
	if value == "" {
		return nil, ErrEmptyValue
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Level == "" {
		opts.Level = DefaultLevel
	}

	q, err := goqrcode.New(value, opts.Level.recovery())
	if err != nil {
		return nil, fmt.Errorf("failed to encode code: %w", err)
	}
	q.DisableBorder = !opts.IncludeMargin

	bitmap := q.Bitmap()
	n := len(bitmap)
	size := strconv.Itoa(opts.Size)

	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="` + size + `" height="` + size +
		`" viewBox="0 0 ` + strconv.Itoa(n) + " " + strconv.Itoa(n) + `" shape-rendering="crispEdges">`)
	b.WriteString(`<path fill="#000000" d="`)
	for y, row := range bitmap {
		// Runs of dark modules on a row become one rectangle.
		for x := 0; x < len(row); {
			if !row[x] {
				x++
				continue
			}
			start := x
			for x < len(row) && row[x] {
				x++
			}
			fmt.Fprintf(&b, "M%d %dh%dv1h-%dz", start, y, x-start, x-start)
		}
	}
	b.WriteString(`"/></svg>`)

	return &Graphic{Value: value, Markup: b.String(), Size: opts.Size, Modules: n}, nil
}
