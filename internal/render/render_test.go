package render

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/dandantas/tendril/internal/fractal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"honnef.co/go/curve"
)

func snapshotFor(t *testing.T, kind fractal.Kind, steps int) fractal.Snapshot {
	t.Helper()
	opts := fractal.DefaultOptions()
	opts.TotalSteps = steps
	opts.Seed = 11
	opts.DragonDepth = 10

	rule, err := fractal.NewRule(kind, opts)
	require.NoError(t, err)
	policy, err := fractal.PolicyFor(kind)
	require.NoError(t, err)

	b := fractal.NewBuffer(steps)
	for i := 0; i < steps; i++ {
		pt, err := fractal.StepChecked(rule, i)
		require.NoError(t, err)
		b.Append(pt)
	}
	return fractal.NewSnapshot(kind, policy, b, steps, steps)
}

func paintedPixels(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				n++
			}
		}
	}
	return n
}

func TestPNGRendererDrawsEveryKind(t *testing.T) {
	r := NewPNGRenderer(96, 64)
	assert.Equal(t, "image/png", r.ContentType())

	for _, k := range fractal.Kinds() {
		data, err := r.Render(snapshotFor(t, k, 600))
		require.NoError(t, err, "kind %s", k)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 96, 64), img.Bounds())

		painted := paintedPixels(img)
		assert.Greater(t, painted, 0, "kind %s drew nothing", k)
		assert.Less(t, painted, 96*64, "kind %s background is not transparent", k)
	}
}

func TestRenderSinglePointView(t *testing.T) {
	snap := snapshotFor(t, fractal.KindDragon, 1)
	require.Len(t, snap.Points, 1)
	assert.Equal(t, 0.0, snap.View.Bounds.Width())

	data, err := NewPNGRenderer(32, 32).Render(snap)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	_, _, _, a := img.At(16, 16).RGBA()
	assert.Greater(t, a, uint32(0), "the lone point lands in the middle")
}

func TestRenderRejectsEmptyCanvas(t *testing.T) {
	snap := snapshotFor(t, fractal.KindTriangle, 10)

	_, err := NewPNGRenderer(0, 10).Render(snap)
	assert.ErrorIs(t, err, ErrInvalidCanvas)

	_, err = NewSVGRenderer(10, -1).Render(snap)
	assert.ErrorIs(t, err, ErrInvalidCanvas)

	_, err = New("png", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidCanvas)
}

func TestNewSelectsFormat(t *testing.T) {
	r, err := New("", 10, 10)
	require.NoError(t, err)
	assert.IsType(t, &PNGRenderer{}, r)

	r, err = New("SVG", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", r.ContentType())

	_, err = New("gif", 10, 10)
	assert.Error(t, err)
}

func TestSVGRendererWritesOnePathPerLayer(t *testing.T) {
	snap := snapshotFor(t, fractal.KindTriangle, 300)

	data, err := NewSVGRenderer(120, 100).Render(snap)
	require.NoError(t, err)

	doc := string(data)
	assert.True(t, strings.HasPrefix(doc, `<svg xmlns="http://www.w3.org/2000/svg" width="120" height="100"`))
	assert.True(t, strings.HasSuffix(doc, "</svg>"))
	// one path per vertex color
	assert.Equal(t, 3, strings.Count(doc, "<path "))
}

func TestFrameKeepsAspectAndFlipsY(t *testing.T) {
	view := fractal.View{
		Mode:        fractal.ViewCartesian,
		Bounds:      curve.Rect{X0: -1, Y0: -1, X1: 1, Y1: 1},
		EqualAspect: true,
	}
	aff := frame(view, 200, 100)

	center := curve.Pt(0, 0).Transform(aff)
	assert.InDelta(t, 100, center.X, 1e-9)
	assert.InDelta(t, 50, center.Y, 1e-9)

	top := curve.Pt(0, 1).Transform(aff)
	assert.InDelta(t, 0, top.Y, 1e-9, "positive y is up")
	right := curve.Pt(1, 0).Transform(aff)
	assert.InDelta(t, 150, right.X, 1e-9, "x uses the same scale as y")

	view.EqualAspect = false
	right = curve.Pt(1, 0).Transform(frame(view, 200, 100))
	assert.InDelta(t, 200, right.X, 1e-9)
}

func TestSceneLayers(t *testing.T) {
	rose, err := buildScene(snapshotFor(t, fractal.KindRose, 400), 64, 64)
	require.NoError(t, err)
	require.Len(t, rose.layers, 2)
	assert.Equal(t, mirrorColor, rose.layers[0].color)
	assert.Equal(t, lineColor, rose.layers[1].color)

	fib := snapshotFor(t, fractal.KindFibonacci, 400)
	require.NotEmpty(t, fib.View.Squares)
	scene, err := buildScene(fib, 64, 64)
	require.NoError(t, err)
	assert.Len(t, scene.layers, len(fib.View.Squares)+1)

	circle, err := buildScene(snapshotFor(t, fractal.KindCircle, 400), 64, 64)
	require.NoError(t, err)
	assert.Greater(t, len(circle.layers), 1, "weights spread over gradient levels")
	assert.LessOrEqual(t, len(circle.layers), gradientLevels+1)
}
