package fractal

import (
	"math"
	"math/rand/v2"

	"honnef.co/go/curve"
)

// TriangleVertices are the fixed corners of the chaos-game triangle
var TriangleVertices = [3]curve.Point{
	curve.Pt(0, 0),
	curve.Pt(1, 0),
	curve.Pt(0.5, math.Sqrt(3)/2),
}

type triangleRule struct {
	rng     *rand.Rand
	current curve.Point
}

func newTriangleRule(rng *rand.Rand) *triangleRule {
	return &triangleRule{
		rng:     rng,
		current: curve.Pt(0.5, 0.25),
	}
}

func (r *triangleRule) Kind() Kind { return KindTriangle }

func (r *triangleRule) Step(int) Point {
	idx := r.rng.IntN(len(TriangleVertices))
	r.current = r.current.Midpoint(TriangleVertices[idx])
	return Point{Point: r.current, Class: idx}
}

// squareMap is one weighted contraction of the square IFS
type squareMap struct {
	weight float64
	aff    curve.Affine
}

func newSquareMap(weight, sx, sy, tx, ty, rotDeg float64) squareMap {
	aff := curve.Identity
	if rotDeg != 0 {
		aff = curve.Rotate(rotDeg * math.Pi / 180)
	}
	return squareMap{
		weight: weight,
		aff:    aff.ThenScale(sx, sy).ThenTranslate(curve.Vec(tx, ty)),
	}
}

// four quadrant contractions and one rotated center map
var squareMaps = []squareMap{
	newSquareMap(0.22, 0.5, 0.5, 0, 0, 0),
	newSquareMap(0.22, 0.5, 0.5, 0.5, 0, 0),
	newSquareMap(0.22, 0.5, 0.5, 0, 0.5, 0),
	newSquareMap(0.22, 0.5, 0.5, 0.5, 0.5, 0),
	newSquareMap(0.12, 0.3, 0.3, 0.35, 0.35, 45),
}

type squareRule struct {
	rng        *rand.Rand
	cumulative []float64
	current    curve.Point
}

func newSquareRule(rng *rand.Rand) *squareRule {
	cumulative := make([]float64, len(squareMaps))
	total := 0.0
	for i, m := range squareMaps {
		total += m.weight
		cumulative[i] = total
	}
	return &squareRule{
		rng:        rng,
		cumulative: cumulative,
		current:    curve.Pt(0.5, 0.5),
	}
}

func (r *squareRule) Kind() Kind { return KindSquare }

func (r *squareRule) Step(int) Point {
	idx := r.pick()
	r.current = r.current.Transform(squareMaps[idx].aff)
	return Point{Point: r.current, Class: idx}
}

// pick draws a map index proportionally to the map weights
func (r *squareRule) pick() int {
	u := r.rng.Float64() * r.cumulative[len(r.cumulative)-1]
	for i, c := range r.cumulative {
		if u < c {
			return i
		}
	}
	return len(r.cumulative) - 1
}
