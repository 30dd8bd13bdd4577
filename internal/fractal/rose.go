package fractal

import (
	"math"

	"honnef.co/go/curve"
)

// roseRule traces r = a·cos(kθ) with k = n/d. θ covers [0, 2πd] so the
// petal pattern closes for any n/d.
type roseRule struct {
	segments float64
	span     float64
	k        float64
	a        float64
}

func newRoseRule(total, n, d int, a float64) *roseRule {
	return &roseRule{
		segments: float64(total - 1),
		span:     2 * math.Pi * float64(d),
		k:        ratio(float64(n), float64(d)),
		a:        a,
	}
}

func (r *roseRule) Kind() Kind { return KindRose }

func (r *roseRule) Step(i int) Point {
	theta := ratio(float64(i), r.segments) * r.span
	radius := r.a * math.Cos(r.k*theta)

	p := polarPoint(theta, radius, i)
	p.Mirror = curve.Point(curve.Vec2(p.Point).Negate())
	p.Mirrored = true
	return p
}
