package marker

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// DefaultSize is the glyph edge length in pixels when none is given.
const DefaultSize = 48

// TextRatio is the number's font size relative to the glyph edge.
const TextRatio = 0.32

var (
	numberColor      = color.NRGBA{R: 0x10, G: 0x1c, B: 0x2c, A: 0xff}
	placeholderFill  = color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	placeholderInk   = color.NRGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	placeholderFrame = color.NRGBA{R: 0xbb, G: 0xbb, B: 0xbb, A: 0xff}
)

// fonts are parsed once from the embedded Go font set.
var (
	boldFont    = sync.OnceValues(func() (*truetype.Font, error) { return freetype.ParseFont(gobold.TTF) })
	regularFont = sync.OnceValues(func() (*truetype.Font, error) { return freetype.ParseFont(goregular.TTF) })
)

// Renderer draws marker glyphs. It holds only immutable resources and is
// safe for concurrent use.
type Renderer struct {
	glyph   Glyph
	numbers *truetype.Font
	labels  *truetype.Font
}

// NewRenderer creates a renderer for the given glyph.
func NewRenderer(glyph Glyph) (*Renderer, error) {
	if glyph.Size() == 0 {
		return nil, fmt.Errorf("marker glyph is empty")
	}
	numbers, err := boldFont()
	if err != nil {
		return nil, fmt.Errorf("failed to parse number font: %w", err)
	}
	labels, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("failed to parse label font: %w", err)
	}
	return &Renderer{glyph: glyph, numbers: numbers, labels: labels}, nil
}

// FontSize returns the number's font size for a glyph of the given edge.
func FontSize(size int) float64 {
	return float64(size) * TextRatio
}

// Render draws the glyph at size x size, rotated clockwise to heading (nil
// means 0°), with number centered on top. The number itself is not rotated.
func (r *Renderer) Render(number int, heading *float64, size int) *image.NRGBA {
	if size <= 0 {
		size = DefaultSize
	}

	img := imaging.Resize(r.glyph.img, size, size, imaging.Lanczos)
	if heading != nil && *heading != 0 {
		// imaging rotates counter-clockwise
		img = imaging.Rotate(img, -*heading, color.Transparent)
		img = imaging.CropCenter(img, size, size)
	}

	if number > 0 {
		face := truetype.NewFace(r.numbers, &truetype.Options{
			Size:    FontSize(size),
			DPI:     72,
			Hinting: font.HintingFull,
		})
		defer face.Close()
		drawCentered(img, face, strconv.Itoa(number), numberColor)
	}

	return img
}

// Placeholder renders the neutral raster used when a capture failed.
func (r *Renderer) Placeholder(width, height int, label string) *image.NRGBA {
	img := imaging.New(width, height, placeholderFill)
	for x := 0; x < width; x++ {
		img.SetNRGBA(x, 0, placeholderFrame)
		img.SetNRGBA(x, height-1, placeholderFrame)
	}
	for y := 0; y < height; y++ {
		img.SetNRGBA(0, y, placeholderFrame)
		img.SetNRGBA(width-1, y, placeholderFrame)
	}

	size := float64(min(width, height)) / 10
	if size < 8 {
		size = 8
	}
	face := truetype.NewFace(r.labels, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	defer face.Close()
	drawCentered(img, face, label, placeholderInk)

	return img
}

func drawCentered(dst *image.NRGBA, face font.Face, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
	}
	b := dst.Bounds()
	m := face.Metrics()
	width := d.MeasureString(text)

	x := fixed.I(b.Min.X+b.Dx()/2) - width/2
	y := fixed.I(b.Min.Y+b.Dy()/2) + (m.Ascent-m.Descent)/2
	d.Dot = fixed.Point26_6{X: x, Y: y}
	d.DrawString(text)
}
