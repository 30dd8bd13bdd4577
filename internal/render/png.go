package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/dandantas/tendril/internal/fractal"
	"golang.org/x/image/vector"
	"honnef.co/go/curve"
)

// PNGRenderer rasterizes snapshots onto a transparent canvas
type PNGRenderer struct {
	Width  int
	Height int
}

// NewPNGRenderer creates a new PNG renderer
func NewPNGRenderer(width, height int) *PNGRenderer {
	return &PNGRenderer{Width: width, Height: height}
}

// ContentType returns the MIME type of rendered images
func (r *PNGRenderer) ContentType() string {
	return "image/png"
}

// Render draws snap and encodes it as PNG
func (r *PNGRenderer) Render(snap fractal.Snapshot) ([]byte, error) {
	s, err := buildScene(snap, r.Width, r.Height)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	ras := vector.NewRasterizer(s.width, s.height)

	for _, l := range s.layers {
		ras.Reset(s.width, s.height)
		fill(ras, l.path)
		ras.Draw(canvas, canvas.Bounds(), image.NewUniform(l.color), image.Point{})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}

	return buf.Bytes(), nil
}

// fill feeds path to the rasterizer, closing every subpath
func fill(ras *vector.Rasterizer, path curve.BezPath) {
	open := false
	for _, el := range path {
		switch el.Kind {
		case curve.MoveToKind:
			if open {
				ras.ClosePath()
			}
			ras.MoveTo(float32(el.P0.X), float32(el.P0.Y))
			open = true
		case curve.LineToKind:
			ras.LineTo(float32(el.P0.X), float32(el.P0.Y))
		case curve.QuadToKind:
			ras.QuadTo(float32(el.P0.X), float32(el.P0.Y), float32(el.P1.X), float32(el.P1.Y))
		case curve.CubicToKind:
			ras.CubeTo(
				float32(el.P0.X), float32(el.P0.Y),
				float32(el.P1.X), float32(el.P1.Y),
				float32(el.P2.X), float32(el.P2.Y),
			)
		case curve.ClosePathKind:
			ras.ClosePath()
			open = false
		}
	}
	if open {
		ras.ClosePath()
	}
}
