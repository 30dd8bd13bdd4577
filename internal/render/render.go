package render

import (
	"fmt"
	"strings"

	"github.com/dandantas/tendril/internal/fractal"
)

// Renderer turns a snapshot into an encoded image
type Renderer interface {
	Render(snap fractal.Snapshot) ([]byte, error)
	ContentType() string
}

// New returns the renderer for format, png or svg
func New(format string, width, height int) (Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidCanvas, width, height)
	}

	switch strings.ToLower(format) {
	case "", "png":
		return NewPNGRenderer(width, height), nil
	case "svg":
		return NewSVGRenderer(width, height), nil
	default:
		return nil, fmt.Errorf("unsupported render format %q", format)
	}
}
