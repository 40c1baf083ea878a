package capture

import (
	"bytes"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/photokey/floorplan/internal/projection"
)

// compose fits the floorplan into MaxDimension and draws the placements.
// Close-ups are then cropped to a square around their marker.
func (p *Pipeline) compose(img image.Image, layout Layout, req Request) *image.NRGBA {
	base := imaging.Clone(img)
	if p.opts.MaxDimension > 0 {
		base = imaging.Fit(base, p.opts.MaxDimension, p.opts.MaxDimension, imaging.Lanczos)
	}
	w, h := base.Bounds().Dx(), base.Bounds().Dy()

	for _, pl := range layout.Placements {
		if pl.Glyph == nil {
			continue
		}
		x, y := pl.Position.Pixels(w, h)
		gb := pl.Glyph.Bounds()
		at := image.Pt(
			int(math.Round(x))-gb.Dx()/2,
			int(math.Round(y))-gb.Dy()/2,
		)
		base = imaging.Overlay(base, pl.Glyph, at, 1.0)
	}

	if req.Kind == MarkerCloseUp {
		base = imaging.Crop(base, p.closeUpRect(req, w, h))
	}
	return base
}

// closeUpRect is a square of CloseUpFraction of the longest edge centered on
// the unit's marker and shifted to stay inside the image.
func (p *Pipeline) closeUpRect(req Request, w, h int) image.Rectangle {
	side := int(math.Round(p.opts.CloseUpFraction * float64(max(w, h))))
	side = min(max(side, 1), w, h)

	cx, cy := float64(w)/2, float64(h)/2
	if len(req.Markers) > 0 {
		if pos, ok := projection.Project(req.Frame, req.Markers[0].Coordinate); ok {
			cx, cy = pos.Pixels(w, h)
		}
	}

	x0 := clampInt(int(math.Round(cx))-side/2, 0, w-side)
	y0 := clampInt(int(math.Round(cy))-side/2, 0, h-side)
	return image.Rect(x0, y0, x0+side, y0+side)
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
