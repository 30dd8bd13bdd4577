package fractal

import (
	"math"

	"honnef.co/go/curve"
)

// de Jong style constants of the circular attractor
const (
	attractorA = 2.0
	attractorB = -2.0
	attractorC = -1.2
	attractorD = 2.0

	attractorSpin     = 0.001
	attractorContract = 0.3
	attractorSpiral   = 0.1
)

type attractorRule struct {
	current curve.Point
}

func newAttractorRule() *attractorRule {
	return &attractorRule{current: curve.Pt(0.1, 0.1)}
}

func (r *attractorRule) Kind() Kind { return KindCircle }

func (r *attractorRule) Step(i int) Point {
	x, y := r.current.Splat()

	next := curve.Vec(
		math.Sin(attractorA*y)-math.Cos(attractorB*x),
		math.Sin(attractorC*x)-math.Cos(attractorD*y),
	)

	// spiral perturbation whose angle drifts a little every step
	theta := next.Angle() + float64(i)*attractorSpin
	swirl := curve.VecFromAngle(theta).Mul(attractorSpiral)

	r.current = curve.Point(next.Mul(attractorContract).Add(swirl))
	return Point{Point: r.current, Class: -1, Weight: float64(i)}
}
