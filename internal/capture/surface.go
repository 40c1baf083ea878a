package capture

import (
	"context"
	"errors"
	"image"

	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/marker"
	"github.com/photokey/floorplan/internal/projection"
)

// Placement is a marker ready to be drawn on the floorplan.
type Placement struct {
	Marker   marker.Marker
	Position projection.Position
	Glyph    *image.NRGBA
}

// Layout is what a surface produces for composition.
type Layout struct {
	Placements []Placement
}

// Surface positions markers over a floorplan.
type Surface interface {
	Prepare(ctx context.Context, frame geo.ReferenceFrame, markers []marker.Marker) (Layout, error)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(ctx context.Context, frame geo.ReferenceFrame, markers []marker.Marker) (Layout, error)

// Prepare calls f.
func (f SurfaceFunc) Prepare(ctx context.Context, frame geo.ReferenceFrame, markers []marker.Marker) (Layout, error) {
	return f(ctx, frame, markers)
}

// ProjectedSurface projects markers through the frame and renders their
// glyphs. Markers outside [VisibleMin, VisibleMax] on either axis are left
// out.
type ProjectedSurface struct {
	Renderer   *marker.Renderer
	MarkerSize int
	VisibleMin float64
	VisibleMax float64
}

// NewProjectedSurface returns a surface using the default glyph and window.
func NewProjectedSurface(size int) (*ProjectedSurface, error) {
	return NewGlyphSurface(marker.DefaultGlyph(), size)
}

// NewGlyphSurface returns a surface drawing markers with glyph.
func NewGlyphSurface(glyph marker.Glyph, size int) (*ProjectedSurface, error) {
	r, err := marker.NewRenderer(glyph)
	if err != nil {
		return nil, err
	}
	return &ProjectedSurface{
		Renderer:   r,
		MarkerSize: size,
		VisibleMin: projection.DefaultVisibleMin,
		VisibleMax: projection.DefaultVisibleMax,
	}, nil
}

// Prepare projects and renders the markers.
func (s *ProjectedSurface) Prepare(ctx context.Context, frame geo.ReferenceFrame, markers []marker.Marker) (Layout, error) {
	if !frame.Valid() {
		return Layout{}, errors.New("reference frame has no positive scale")
	}

	var layout Layout
	for _, m := range markers {
		if err := ctx.Err(); err != nil {
			return Layout{}, err
		}
		pos, ok := projection.Project(frame, m.Coordinate)
		if !ok || !projection.VisibleWithin(pos, s.VisibleMin, s.VisibleMax) {
			continue
		}
		layout.Placements = append(layout.Placements, Placement{
			Marker:   m,
			Position: pos,
			Glyph:    s.Renderer.Render(m.Number, m.Heading, s.MarkerSize),
		})
	}
	return layout, nil
}
