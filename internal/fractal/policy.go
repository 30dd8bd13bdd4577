package fractal

import (
	"honnef.co/go/curve"
)

// ViewMode selects how a snapshot is projected
type ViewMode string

const (
	ViewCartesian ViewMode = "cartesian"
	ViewPolar     ViewMode = "polar"
)

const (
	boundsMargin = 0.1
	polarMargin  = 1.1
)

// View describes the window a snapshot is presented in
type View struct {
	Mode        ViewMode
	Bounds      curve.Rect
	MaxRadius   float64
	EqualAspect bool
	// Lines joins consecutive points instead of plotting them individually
	Lines bool
	// Squares are auxiliary outlines drawn alongside the points
	Squares []curve.Rect
}

// Window returns the cartesian region the view covers. Polar views span a
// square of side 2·MaxRadius around the origin.
func (v View) Window() curve.Rect {
	if v.Mode == ViewPolar {
		return curve.Rect{X0: -v.MaxRadius, Y0: -v.MaxRadius, X1: v.MaxRadius, Y1: v.MaxRadius}
	}
	return v.Bounds
}

// Snapshot is the state of a job materialized at a checkpoint
type Snapshot struct {
	Kind   Kind
	Step   int
	Total  int
	View   View
	Points []Point
	Done   bool
}

// Policy decides checkpoint cadence and presentation for one kind
type Policy interface {
	ShouldCheckpoint(i, total int) bool
	Cadence(i int) int
	View(b *Buffer) View
}

type policy struct {
	cadence func(i int) int
	view    func(b *Buffer) View
}

func (p policy) Cadence(i int) int {
	return p.cadence(i)
}

// ShouldCheckpoint reports whether step i (0-based) of total is materialized
func (p policy) ShouldCheckpoint(i, total int) bool {
	if i == total-1 {
		return true
	}
	n := p.cadence(i)
	return n > 0 && i%n == 0
}

func (p policy) View(b *Buffer) View {
	return p.view(b)
}

func every(n int) func(int) int {
	return func(int) int { return n }
}

// dragonCadence thins checkpoints as the walk grows
func dragonCadence(i int) int {
	switch {
	case i < 5000:
		return 50
	case i < 15000:
		return 100
	default:
		return 200
	}
}

func fixedView(bounds curve.Rect, equal bool) func(*Buffer) View {
	return func(*Buffer) View {
		return View{Mode: ViewCartesian, Bounds: bounds, EqualAspect: equal}
	}
}

// fittedView frames the running bounding box with a margin on every side
func fittedView(b *Buffer) View {
	bounds := b.Bounds()
	bounds = bounds.Inflate(bounds.Width()*boundsMargin, bounds.Height()*boundsMargin)
	return View{
		Mode:        ViewCartesian,
		Bounds:      bounds,
		MaxRadius:   b.MaxRadius(),
		EqualAspect: true,
		Lines:       true,
	}
}

func polarView(b *Buffer) View {
	return View{
		Mode:        ViewPolar,
		Bounds:      b.Bounds(),
		MaxRadius:   b.MaxRadius() * polarMargin,
		EqualAspect: true,
		Lines:       true,
	}
}

func fibonacciView(b *Buffer) View {
	v := fittedView(b)
	v.Squares = FibonacciSquares(FibonacciSquareCount(b.MaxRadius()), b.MaxRadius())
	return v
}

var policies = map[Kind]policy{
	KindTriangle:    {cadence: every(100), view: fixedView(curve.Rect{X0: -0.1, Y0: -0.1, X1: 1.1, Y1: 1.0}, false)},
	KindSquare:      {cadence: every(200), view: fixedView(curve.Rect{X0: -0.1, Y0: -0.1, X1: 1.1, Y1: 1.1}, false)},
	KindCircle:      {cadence: every(200), view: fixedView(curve.Rect{X0: -1.5, Y0: -1.5, X1: 1.5, Y1: 1.5}, true)},
	KindFibonacci:   {cadence: every(200), view: fibonacciView},
	KindLogarithmic: {cadence: every(200), view: polarView},
	KindArchimedean: {cadence: every(200), view: polarView},
	KindRose:        {cadence: every(200), view: polarView},
	KindDragon:      {cadence: dragonCadence, view: fittedView},
}

// PolicyFor returns the snapshot policy of kind
func PolicyFor(kind Kind) (Policy, error) {
	p, ok := policies[kind]
	if !ok {
		return nil, ErrInvalidKind
	}
	return p, nil
}

// NewSnapshot materializes the first step points of b under the view of p
func NewSnapshot(kind Kind, p Policy, b *Buffer, step, total int) Snapshot {
	return Snapshot{
		Kind:   kind,
		Step:   step,
		Total:  total,
		View:   p.View(b),
		Points: b.Points(step),
		Done:   step >= total,
	}
}
