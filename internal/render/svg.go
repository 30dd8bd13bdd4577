package render

import (
	"bytes"
	"fmt"

	"github.com/dandantas/tendril/internal/fractal"
	"honnef.co/go/curve"
)

// SVGRenderer writes snapshots as SVG documents, one filled path per color
type SVGRenderer struct {
	Width  int
	Height int
}

// NewSVGRenderer creates a new SVG renderer
func NewSVGRenderer(width, height int) *SVGRenderer {
	return &SVGRenderer{Width: width, Height: height}
}

// ContentType returns the MIME type of rendered images
func (r *SVGRenderer) ContentType() string {
	return "image/svg+xml"
}

// Render lays out snap and serializes it as SVG
func (r *SVGRenderer) Render(snap fractal.Snapshot) ([]byte, error) {
	s, err := buildScene(snap, r.Width, r.Height)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		s.width, s.height, s.width, s.height)

	for _, l := range s.layers {
		fmt.Fprintf(&buf, `<path fill="#%02x%02x%02x" fill-opacity="%.3f" d="`,
			l.color.R, l.color.G, l.color.B, float64(l.color.A)/0xff)
		if err := l.path.WriteSVG(&buf, curve.SVGOptions{MaxPrecision: 2}); err != nil {
			return nil, fmt.Errorf("failed to write svg path: %w", err)
		}
		buf.WriteString(`"/>`)
	}

	buf.WriteString("</svg>")
	return buf.Bytes(), nil
}
