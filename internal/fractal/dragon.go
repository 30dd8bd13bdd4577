package fractal

import (
	"honnef.co/go/curve"
)

// Turn is a quarter turn of the dragon walker
type Turn int8

const (
	TurnLeft  Turn = -1
	TurnRight Turn = 1
)

const maxDragonDepth = 24

// TurnSequence returns the first 2^depth turns of the sequence built by
// S(n+1) = S(n) ++ [R] ++ reverse(negate(S(n))) from S(0) = [R]. Every S(n) is
// a prefix of S(n+1), so the prefix is well defined for any depth.
func TurnSequence(depth int) []Turn {
	if depth < 0 {
		return nil
	}
	want := 1 << depth

	seq := make([]Turn, 1, 2*want)
	seq[0] = TurnRight
	for len(seq) < want {
		n := len(seq)
		seq = append(seq, TurnRight)
		for i := n - 1; i >= 0; i-- {
			seq = append(seq, -seq[i])
		}
	}
	return seq[:want:want]
}

type dragonRule struct {
	turns   []Turn
	next    int
	pos     curve.Point
	heading curve.Vec2
}

func newDragonRule(depth int) *dragonRule {
	return &dragonRule{
		turns:   TurnSequence(depth),
		heading: curve.Vec(1, 0),
	}
}

func (r *dragonRule) Kind() Kind { return KindDragon }

func (r *dragonRule) Step(i int) Point {
	r.pos = r.pos.Translate(r.heading)

	if r.next < len(r.turns) {
		switch r.turns[r.next] {
		case TurnRight:
			r.heading = curve.Vec(r.heading.Y, -r.heading.X)
		case TurnLeft:
			r.heading = curve.Vec(-r.heading.Y, r.heading.X)
		}
		r.next++
	}

	return Point{Point: r.pos, Class: -1, Weight: float64(i)}
}
