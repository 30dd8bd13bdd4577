// Package render turns fractal snapshots into images.
//
// A snapshot is first laid out as a scene: a list of filled paths in pixel
// space, one per color. Strokes are expanded into fills up front so every
// output format only has to know how to fill a path.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"slices"

	"github.com/dandantas/tendril/internal/fractal"
	"honnef.co/go/curve"
)

// ErrInvalidCanvas is returned for non-positive output sizes
var ErrInvalidCanvas = errors.New("invalid canvas size")

const (
	dotSize         = 1.5
	lineWidth       = 1.5
	squareWidth     = 1.0
	strokeTolerance = 0.1
	gradientLevels  = 32
)

var (
	classPalette = []color.NRGBA{
		{R: 0xe6, G: 0x39, B: 0x46, A: 0xff},
		{R: 0x2a, G: 0x9d, B: 0x8f, A: 0xff},
		{R: 0x45, G: 0x7b, B: 0x9d, A: 0xff},
		{R: 0xf4, G: 0xa2, B: 0x61, A: 0xff},
		{R: 0x8e, G: 0x44, B: 0xad, A: 0xff},
	}

	gradientFrom = color.NRGBA{R: 0x1d, G: 0x35, B: 0x57, A: 0xff}
	gradientTo   = color.NRGBA{R: 0xf1, G: 0xfa, B: 0xee, A: 0xff}

	lineColor   = color.NRGBA{R: 0x26, G: 0x46, B: 0x53, A: 0xff}
	mirrorColor = color.NRGBA{R: 0xe7, G: 0x6f, B: 0x51, A: 0xff}
	squareColor = color.NRGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xc0}

	lineStroke = curve.Stroke{
		Width:      lineWidth,
		Join:       curve.BevelJoin,
		MiterLimit: 4,
		StartCap:   curve.ButtCap,
		EndCap:     curve.ButtCap,
	}
)

// layer is one filled path in a single color
type layer struct {
	color color.NRGBA
	path  curve.BezPath
}

type scene struct {
	width, height int
	layers        []layer
}

func (s *scene) add(c color.NRGBA, path curve.BezPath) {
	if len(path) == 0 {
		return
	}
	s.layers = append(s.layers, layer{color: c, path: path})
}

// buildScene lays out snap on a width×height canvas
func buildScene(snap fractal.Snapshot, width, height int) (*scene, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidCanvas, width, height)
	}

	s := &scene{width: width, height: height}
	aff := frame(snap.View, width, height)

	for _, sq := range snap.View.Squares {
		s.add(squareColor, outlineRect(aff.TransformRectBoundingBox(sq), squareWidth))
	}

	if snap.View.Lines {
		s.addPolyline(snap.Points, aff)
	} else {
		s.addDots(snap.Points, snap.Step, aff)
	}

	return s, nil
}

// frame maps the view window onto the canvas with y pointing down
func frame(v fractal.View, width, height int) curve.Affine {
	win := v.Window().Abs()
	if win.IsNaN() || win.IsInf() {
		win = curve.Rect{X0: -1, Y0: -1, X1: 1, Y1: 1}
	}
	if win.Width() == 0 {
		win = win.Inflate(0.5, 0)
	}
	if win.Height() == 0 {
		win = win.Inflate(0, 0.5)
	}

	sx := float64(width) / win.Width()
	sy := float64(height) / win.Height()
	if v.EqualAspect {
		sx = min(sx, sy)
		sy = sx
	}

	c := win.Center()
	return curve.Translate(curve.Vec(-c.X, -c.Y)).
		ThenScale(sx, -sy).
		ThenTranslate(curve.Vec(float64(width)/2, float64(height)/2))
}

// addDots plots every point as a small square, batched by color
func (s *scene) addDots(points []fractal.Point, step int, aff curve.Affine) {
	batches := make(map[color.NRGBA]*curve.BezPath)
	var order []color.NRGBA

	for _, p := range points {
		c := dotColor(p, step)
		path, ok := batches[c]
		if !ok {
			path = &curve.BezPath{}
			batches[c] = path
			order = append(order, c)
		}
		dot(path, p.Transform(aff))
	}

	for _, c := range order {
		s.add(c, *batches[c])
	}
}

func dot(path *curve.BezPath, center curve.Point) {
	h := dotSize / 2
	path.MoveTo(curve.Pt(center.X-h, center.Y-h))
	path.LineTo(curve.Pt(center.X+h, center.Y-h))
	path.LineTo(curve.Pt(center.X+h, center.Y+h))
	path.LineTo(curve.Pt(center.X-h, center.Y+h))
	path.ClosePath()
}

// dotColor picks the palette entry of a classed point, or a gradient level
// for points that carry a weight
func dotColor(p fractal.Point, step int) color.NRGBA {
	if p.Class >= 0 {
		return classPalette[p.Class%len(classPalette)]
	}

	t := 0.0
	if step > 1 {
		t = p.Weight / float64(step-1)
	}
	t = math.Round(min(max(t, 0), 1)*gradientLevels) / gradientLevels
	return lerpColor(gradientFrom, gradientTo, t)
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// addPolyline joins consecutive points; reflected points form a second line
func (s *scene) addPolyline(points []fractal.Point, aff curve.Affine) {
	if len(points) == 1 {
		path := &curve.BezPath{}
		dot(path, points[0].Transform(aff))
		s.add(lineColor, *path)
		return
	}

	var line, mirror curve.BezPath
	for i, p := range points {
		pt := p.Transform(aff)
		if i == 0 {
			line.MoveTo(pt)
		} else {
			line.LineTo(pt)
		}

		if !p.Mirrored {
			continue
		}
		mp := p.Mirror.Transform(aff)
		if len(mirror) == 0 {
			mirror.MoveTo(mp)
		} else {
			mirror.LineTo(mp)
		}
	}

	s.add(mirrorColor, strokePath(mirror, lineStroke))
	s.add(lineColor, strokePath(line, lineStroke))
}

func outlineRect(r curve.Rect, width float64) curve.BezPath {
	outline := curve.BezPath(slices.Collect(r.PathElements(strokeTolerance)))
	return strokePath(outline, lineStroke.WithWidth(width).WithJoin(curve.MiterJoin))
}

// strokePath expands path into the outline of its stroke
func strokePath(path curve.BezPath, style curve.Stroke) curve.BezPath {
	if len(path) < 2 {
		return nil
	}
	return curve.BezPath(slices.Collect(curve.StrokePath(path.Elements(), style, curve.StrokeOpts{}, strokeTolerance)))
}
