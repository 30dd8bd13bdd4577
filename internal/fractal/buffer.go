package fractal

import (
	"math"

	"honnef.co/go/curve"
)

// Point is one emitted sample of a rule
type Point struct {
	curve.Point

	// Class is the chosen vertex or map index, -1 when the rule has none
	Class int
	// Weight drives continuous color gradients
	Weight float64

	// Polar form, filled by spiral and rose rules
	Theta float64
	R     float64

	// Mirror is the reflected negative-radius counterpart of a rose sample
	Mirror   curve.Point
	Mirrored bool
}

// finite reports whether every coordinate the point carries is a real number
func (p Point) finite() bool {
	if p.IsNaN() || p.IsInf() {
		return false
	}
	if p.Mirrored && (p.Mirror.IsNaN() || p.Mirror.IsInf()) {
		return false
	}
	return !math.IsNaN(p.R) && !math.IsInf(p.R, 0)
}

// Buffer accumulates the points of one job in emission order.
//
// A Buffer has a single writer. Slices handed out by Points are
// capacity-clipped, so later appends never become visible through them.
type Buffer struct {
	points []Point
	bounds curve.Rect
	maxR   float64
}

// NewBuffer creates a buffer sized for the expected number of steps
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{
		points: make([]Point, 0, capacity),
	}
}

// Append adds p at the end of the buffer and folds it into the running extents
func (b *Buffer) Append(p Point) {
	if len(b.points) == 0 {
		b.bounds = curve.Rect{X0: p.X, Y0: p.Y, X1: p.X, Y1: p.Y}
	} else {
		b.bounds = b.bounds.UnionPoint(p.Point)
	}
	if p.Mirrored {
		b.bounds = b.bounds.UnionPoint(p.Mirror)
	}

	r := math.Abs(p.R)
	if r == 0 {
		r = curve.Vec2(p.Point).Hypot()
	}
	b.maxR = max(b.maxR, r)

	b.points = append(b.points, p)
}

// Len returns the number of points appended so far
func (b *Buffer) Len() int {
	return len(b.points)
}

// At returns the i-th point
func (b *Buffer) At(i int) Point {
	return b.points[i]
}

// Points returns a read-only view of the first n points
func (b *Buffer) Points(n int) []Point {
	n = min(max(n, 0), len(b.points))
	return b.points[:n:n]
}

// Bounds returns the bounding box of everything appended so far
func (b *Buffer) Bounds() curve.Rect {
	return b.bounds
}

// MaxRadius returns the largest distance from the origin seen so far
func (b *Buffer) MaxRadius() float64 {
	return b.maxR
}
