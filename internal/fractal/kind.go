// Package fractal holds the generation engine: one stepping rule per curve
// kind, the append-only point buffer the rules feed, and the checkpoint and
// view policy used to present a growing buffer.
package fractal

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects one of the curve rules
type Kind string

const (
	KindTriangle    Kind = "triangle"
	KindSquare      Kind = "square"
	KindCircle      Kind = "circle"
	KindFibonacci   Kind = "fibonacci"
	KindLogarithmic Kind = "logarithmic"
	KindArchimedean Kind = "archimedean"
	KindRose        Kind = "rose"
	KindDragon      Kind = "dragon"
)

var (
	// ErrInvalidKind is returned for an unrecognized curve kind
	ErrInvalidKind = errors.New("invalid curve kind")

	// ErrInvalidOptions is returned when rule options are out of range
	ErrInvalidOptions = errors.New("invalid generation options")

	// ErrDegenerateStep is returned when a step produces a non-finite point
	ErrDegenerateStep = errors.New("degenerate step")
)

var allKinds = []Kind{
	KindTriangle,
	KindSquare,
	KindCircle,
	KindFibonacci,
	KindLogarithmic,
	KindArchimedean,
	KindRose,
	KindDragon,
}

// Kinds returns every supported kind in catalogue order
func Kinds() []Kind {
	return append([]Kind(nil), allKinds...)
}

// ParseKind converts a request tag into a Kind
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// Valid reports whether k is one of the supported kinds
func (k Kind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}
