package fractal

import (
	"fmt"
	"math/rand/v2"
)

// DefaultTotalSteps is the step count used when none is configured
const DefaultTotalSteps = 25000

// Rule advances a curve by one discrete step.
//
// A Rule owns its state and is not safe for concurrent use; Step must be
// called with consecutive indices starting at 0.
type Rule interface {
	Kind() Kind
	Step(i int) Point
}

// Options configures a rule instance
type Options struct {
	TotalSteps int

	// Seed makes random draws reproducible, 0 picks a random seed
	Seed uint64

	RoseN int
	RoseD int
	RoseA float64

	DragonDepth int
}

// DefaultOptions returns the options every kind starts from
func DefaultOptions() Options {
	return Options{
		TotalSteps:  DefaultTotalSteps,
		RoseN:       5,
		RoseD:       3,
		RoseA:       1,
		DragonDepth: 14,
	}
}

// Validate checks that the options can drive a rule
func (o Options) Validate() error {
	if o.TotalSteps <= 0 {
		return fmt.Errorf("%w: total steps must be positive, got %d", ErrInvalidOptions, o.TotalSteps)
	}
	if o.RoseN <= 0 || o.RoseD <= 0 {
		return fmt.Errorf("%w: rose parameters must be positive, got n=%d d=%d", ErrInvalidOptions, o.RoseN, o.RoseD)
	}
	if o.RoseA <= 0 {
		return fmt.Errorf("%w: rose amplitude must be positive, got %g", ErrInvalidOptions, o.RoseA)
	}
	if o.DragonDepth < 0 || o.DragonDepth > maxDragonDepth {
		return fmt.Errorf("%w: dragon depth must be within [0, %d], got %d", ErrInvalidOptions, maxDragonDepth, o.DragonDepth)
	}
	return nil
}

// NewRule builds the rule for kind, running any precomputation it needs
func NewRule(kind Kind, opts Options) (Rule, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	switch kind {
	case KindTriangle:
		return newTriangleRule(newRand(opts.Seed)), nil
	case KindSquare:
		return newSquareRule(newRand(opts.Seed)), nil
	case KindCircle:
		return newAttractorRule(), nil
	case KindFibonacci:
		return newFibonacciRule(opts.TotalSteps), nil
	case KindLogarithmic:
		return newLogSpiralRule(opts.TotalSteps), nil
	case KindArchimedean:
		return newArchimedeanRule(opts.TotalSteps), nil
	case KindRose:
		return newRoseRule(opts.TotalSteps, opts.RoseN, opts.RoseD, opts.RoseA), nil
	case KindDragon:
		return newDragonRule(opts.DragonDepth), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, string(kind))
	}
}

// StepChecked runs one step and rejects non-finite output
func StepChecked(r Rule, i int) (Point, error) {
	p := r.Step(i)
	if !p.finite() {
		return p, fmt.Errorf("%w: %s step %d produced %v", ErrDegenerateStep, r.Kind(), i, p.Point)
	}
	return p, nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// ratio divides a by b, yielding 0 when b is 0
func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
