package marker

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/vector"
)

const glyphResolution = 256

// Glyph is the base marker graphic, pointing up at 0°. It is immutable once
// built; renderers scale and rotate copies of it.
type Glyph struct {
	img *image.NRGBA
}

// NewGlyph wraps a square image, pointing up, as a glyph.
func NewGlyph(img image.Image) (Glyph, error) {
	b := img.Bounds()
	if b.Empty() || b.Dx() != b.Dy() {
		return Glyph{}, fmt.Errorf("marker glyph must be square, got %dx%d", b.Dx(), b.Dy())
	}
	return Glyph{img: imaging.Clone(img)}, nil
}

// LoadGlyph reads a glyph image from disk.
func LoadGlyph(path string) (Glyph, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return Glyph{}, fmt.Errorf("loading marker glyph: %w", err)
	}
	return NewGlyph(img)
}

// Size returns the edge length of the glyph raster.
func (g Glyph) Size() int {
	if g.img == nil {
		return 0
	}
	return g.img.Bounds().Dx()
}

// DefaultGlyph returns the built-in pin: a disc with a pointer toward the
// top edge and a light inner disc for the number. It is rasterized once.
var DefaultGlyph = sync.OnceValue(func() Glyph {
	return Glyph{img: drawPin(glyphResolution)}
})

var (
	pinColor   = color.NRGBA{R: 0x1e, G: 0x6f, B: 0xd9, A: 0xff}
	innerColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

func drawPin(size int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	s := float32(size)
	cx, cy := s/2, s/2
	r := s * 0.3

	z := vector.NewRasterizer(size, size)

	// pointer: tip near the top edge, base on the disc
	spread := 35 * math.Pi / 180
	z.MoveTo(cx, s*0.04)
	z.LineTo(cx+r*float32(math.Sin(spread)), cy-r*float32(math.Cos(spread)))
	z.LineTo(cx-r*float32(math.Sin(spread)), cy-r*float32(math.Cos(spread)))
	z.ClosePath()
	z.Draw(dst, dst.Bounds(), image.NewUniform(pinColor), image.Point{})

	z.Reset(size, size)
	circle(z, cx, cy, r)
	z.Draw(dst, dst.Bounds(), image.NewUniform(pinColor), image.Point{})

	z.Reset(size, size)
	circle(z, cx, cy, r*0.74)
	z.Draw(dst, dst.Bounds(), image.NewUniform(innerColor), image.Point{})

	return dst
}

func circle(z *vector.Rasterizer, cx, cy, r float32) {
	const segments = 72
	z.MoveTo(cx+r, cy)
	for i := 1; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / segments
		z.LineTo(cx+r*float32(math.Cos(a)), cy+r*float32(math.Sin(a)))
	}
	z.ClosePath()
}
