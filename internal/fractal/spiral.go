package fractal

import (
	"math"

	"honnef.co/go/curve"
)

// Phi is the golden ratio
var Phi = (1 + math.Sqrt(5)) / 2

const (
	fibonacciTurns  = 10
	fibonacciRadius = 1.0

	logSpiralTurns = 4
	logSpiralA     = 0.1
	logSpiralB     = 0.2

	archimedeanTurns = 5
	archimedeanA     = 0.5
)

func polarPoint(theta, r float64, i int) Point {
	return Point{
		Point:  curve.Point(curve.VecFromAngle(theta).Mul(r)),
		Class:  -1,
		Weight: float64(i),
		Theta:  theta,
		R:      r,
	}
}

// fibonacciRule traces a golden logarithmic spiral over a fixed number of turns
type fibonacciRule struct {
	total float64
}

func newFibonacciRule(total int) *fibonacciRule {
	return &fibonacciRule{total: float64(total)}
}

func (r *fibonacciRule) Kind() Kind { return KindFibonacci }

func (r *fibonacciRule) Step(i int) Point {
	theta := ratio(float64(i), r.total) * fibonacciTurns * 2 * math.Pi
	radius := fibonacciRadius * math.Exp(theta*math.Log(Phi)/(2*math.Pi))
	return polarPoint(theta, radius, i)
}

// angleRule advances an angle accumulator by a constant increment and maps it
// through a radius law
type angleRule struct {
	kind   Kind
	theta  float64
	dTheta float64
	radius func(theta float64) float64
}

func (r *angleRule) Kind() Kind { return r.kind }

func (r *angleRule) Step(i int) Point {
	if i > 0 {
		r.theta += r.dTheta
	}
	return polarPoint(r.theta, r.radius(r.theta), i)
}

func newLogSpiralRule(total int) *angleRule {
	return &angleRule{
		kind:   KindLogarithmic,
		dTheta: ratio(logSpiralTurns*2*math.Pi, float64(total)),
		radius: func(theta float64) float64 {
			return logSpiralA * math.Exp(logSpiralB*theta)
		},
	}
}

func newArchimedeanRule(total int) *angleRule {
	return &angleRule{
		kind:   KindArchimedean,
		dTheta: ratio(archimedeanTurns*2*math.Pi, float64(total)),
		radius: func(theta float64) float64 {
			return archimedeanA * theta
		},
	}
}

// FibonacciSquareCount returns how many Fibonacci squares accompany a spiral
// whose current radius is maxR
func FibonacciSquareCount(maxR float64) int {
	n := 4
	if q := ratio(maxR, fibonacciRadius); q > 1 {
		n += int(math.Floor(math.Log(q) / math.Log(Phi)))
	}
	return min(max(n, 4), 20)
}

// FibonacciSquares lays out count squares with Fibonacci side lengths in the
// classic spiral tiling, scaled so the largest side equals maxR and centered
// on the origin
func FibonacciSquares(count int, maxR float64) []curve.Rect {
	if count <= 0 {
		return nil
	}

	squares := make([]curve.Rect, 0, count)
	a, b := 1.0, 1.0
	tiling := curve.Rect{X0: 0, Y0: 0, X1: 1, Y1: 1}
	squares = append(squares, tiling)

	for i := 1; i < count; i++ {
		side := b
		var sq curve.Rect
		switch i % 4 {
		case 1: // right
			sq = curve.Rect{X0: tiling.X1, Y0: tiling.Y0, X1: tiling.X1 + side, Y1: tiling.Y0 + side}
		case 2: // up
			sq = curve.Rect{X0: tiling.X0, Y0: tiling.Y1, X1: tiling.X0 + side, Y1: tiling.Y1 + side}
		case 3: // left
			sq = curve.Rect{X0: tiling.X0 - side, Y0: tiling.Y1 - side, X1: tiling.X0, Y1: tiling.Y1}
		case 0: // down
			sq = curve.Rect{X0: tiling.X1 - side, Y0: tiling.Y0 - side, X1: tiling.X1, Y1: tiling.Y0}
		}
		squares = append(squares, sq)
		tiling = tiling.Union(sq)
		a, b = b, a+b
	}

	largest := a
	scale := ratio(maxR, largest)
	shift := curve.Vec2(tiling.Center()).Negate()
	for i, sq := range squares {
		squares[i] = sq.Translate(shift).ScaleFromOrigin(scale)
	}
	return squares
}
