package marker

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(DefaultGlyph())
	require.NoError(t, err)
	return r
}

func alphaAt(img *image.NRGBA, x, y int) uint8 {
	return img.NRGBAAt(x, y).A
}

func ptr(v float64) *float64 { return &v }

func TestDefaultGlyph_Memoized(t *testing.T) {
	a := DefaultGlyph()
	b := DefaultGlyph()

	assert.Same(t, a.img, b.img)
	assert.Equal(t, glyphResolution, a.Size())
}

func TestLoadGlyph(t *testing.T) {
	dir := t.TempDir()
	square := filepath.Join(dir, "square.png")
	require.NoError(t, imaging.Save(imaging.New(32, 32, color.NRGBA{R: 0xff, A: 0xff}), square))
	wide := filepath.Join(dir, "wide.png")
	require.NoError(t, imaging.Save(imaging.New(32, 16, color.Black), wide))

	g, err := LoadGlyph(square)
	require.NoError(t, err)
	assert.Equal(t, 32, g.Size())

	r, err := NewRenderer(g)
	require.NoError(t, err)
	img := r.Render(0, nil, 20)
	c := img.NRGBAAt(10, 10)
	assert.Greater(t, c.R, uint8(0xf0))
	assert.Less(t, c.G, uint8(0x10))
	assert.Greater(t, c.A, uint8(0xf0))

	_, err = LoadGlyph(wide)
	assert.ErrorContains(t, err, "square")

	_, err = LoadGlyph(filepath.Join(dir, "missing.png"))
	assert.ErrorContains(t, err, "loading marker glyph")
}

func TestNewRenderer_EmptyGlyph(t *testing.T) {
	_, err := NewRenderer(Glyph{})
	assert.Error(t, err)
}

func TestRender_Size(t *testing.T) {
	r := newTestRenderer(t)

	img := r.Render(7, nil, 64)
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	img = r.Render(7, ptr(45), 64)
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	img = r.Render(7, nil, 0)
	assert.Equal(t, DefaultSize, img.Bounds().Dx())
}

func TestRender_NilHeadingMatchesZero(t *testing.T) {
	r := newTestRenderer(t)

	assert.Equal(t, r.Render(3, nil, 48).Pix, r.Render(3, ptr(0), 48).Pix)
}

func TestRender_Deterministic(t *testing.T) {
	r := newTestRenderer(t)

	assert.Equal(t, r.Render(12, ptr(33), 48).Pix, r.Render(12, ptr(33), 48).Pix)
}

func TestRender_PointerFollowsHeading(t *testing.T) {
	r := newTestRenderer(t)
	const size = 100

	up := r.Render(0, nil, size)
	assert.NotZero(t, alphaAt(up, size/2, 8), "pointer should be at the top")
	assert.Zero(t, alphaAt(up, size/2, size-8), "bottom should be empty")

	down := r.Render(0, ptr(180), size)
	assert.NotZero(t, alphaAt(down, size/2, size-8), "pointer should be at the bottom")
	assert.Zero(t, alphaAt(down, size/2, 8), "top should be empty")

	east := r.Render(0, ptr(90), size)
	assert.NotZero(t, alphaAt(east, size-8, size/2), "pointer should be on the right")
	assert.Zero(t, alphaAt(east, 8, size/2), "left should be empty")
}

func TestRender_NumberIsDrawn(t *testing.T) {
	r := newTestRenderer(t)

	blank := r.Render(0, nil, 64)
	one := r.Render(1, nil, 64)
	eight := r.Render(8, nil, 64)

	assert.NotEqual(t, blank.Pix, one.Pix)
	assert.NotEqual(t, one.Pix, eight.Pix)
}

func TestFontSize(t *testing.T) {
	assert.InDelta(t, 32.0, FontSize(100), 1e-9)
	assert.InDelta(t, 15.36, FontSize(48), 1e-9)
}

func TestPlaceholder(t *testing.T) {
	r := newTestRenderer(t)

	img := r.Placeholder(300, 200, "No image")
	assert.Equal(t, image.Rect(0, 0, 300, 200), img.Bounds())
	assert.Equal(t, placeholderFrame, img.NRGBAAt(0, 0))
	assert.NotEqual(t, r.Placeholder(300, 200, "").Pix, img.Pix)
}

func TestMarker_HeadingDegrees(t *testing.T) {
	assert.Equal(t, 0.0, Marker{}.HeadingDegrees())
	assert.Equal(t, 270.0, Marker{Heading: ptr(270)}.HeadingDegrees())
}
