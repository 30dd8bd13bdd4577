package fractal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/curve"
)

func TestBufferAppendOnly(t *testing.T) {
	b := NewBuffer(2)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Points(10))

	b.Append(Point{Point: curve.Pt(1, 2), Class: 0})
	b.Append(Point{Point: curve.Pt(-3, 4), Class: 1})

	view := b.Points(2)
	require.Len(t, view, 2)
	assert.Equal(t, 2, cap(view))

	// appends past the view never leak into it
	b.Append(Point{Point: curve.Pt(9, 9), Class: 2})
	assert.Len(t, view, 2)
	assert.Equal(t, curve.Pt(-3, 4), view[1].Point)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 2, b.At(2).Class)

	assert.Equal(t, curve.Rect{X0: -3, Y0: 2, X1: 9, Y1: 9}, b.Bounds())
}

func TestBufferIncludesMirrorInBounds(t *testing.T) {
	b := NewBuffer(0)
	b.Append(Point{Point: curve.Pt(1, 1), R: 2, Mirror: curve.Pt(-1, -1), Mirrored: true})

	assert.Equal(t, curve.Rect{X0: -1, Y0: -1, X1: 1, Y1: 1}, b.Bounds())
	assert.Equal(t, 2.0, b.MaxRadius())
}

func TestBufferMatchesStepCountForEveryKind(t *testing.T) {
	const total = 777

	for _, k := range Kinds() {
		r := newTestRule(t, k, total)
		p, err := PolicyFor(k)
		require.NoError(t, err)

		b := NewBuffer(total)
		for i := 0; i < total; i++ {
			pt, err := StepChecked(r, i)
			require.NoError(t, err, "kind %s step %d", k, i)
			b.Append(pt)

			if p.ShouldCheckpoint(i, total) {
				snap := NewSnapshot(k, p, b, i+1, total)
				require.Len(t, snap.Points, snap.Step, "kind %s", k)
				require.Equal(t, b.Len(), snap.Step)
				assert.Equal(t, i == total-1, snap.Done)
			}
		}
		assert.Equal(t, total, b.Len())
	}
}
