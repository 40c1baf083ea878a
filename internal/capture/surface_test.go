package capture

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/marker"
)

func TestProjectedSurface_Prepare(t *testing.T) {
	s, err := NewProjectedSurface(32)
	require.NoError(t, err)

	heading := 90.0
	markers := []marker.Marker{
		{ItemID: "center", Number: 1, Coordinate: testFrame.Center},
		{ItemID: "edge", Number: 2, Heading: &heading, Coordinate: geo.Coordinate{Latitude: 40.006, Longitude: -74}},
		{ItemID: "far", Number: 3, Coordinate: geo.Coordinate{Latitude: 40.02, Longitude: -74}},
	}

	layout, err := s.Prepare(context.Background(), testFrame, markers)
	require.NoError(t, err)
	require.Len(t, layout.Placements, 2)

	first := layout.Placements[0]
	assert.Equal(t, "center", first.Marker.ItemID)
	assert.InDelta(t, 50, first.Position.X, 1e-9)
	assert.InDelta(t, 50, first.Position.Y, 1e-9)
	assert.Equal(t, 32, first.Glyph.Bounds().Dx())

	second := layout.Placements[1]
	assert.Equal(t, "edge", second.Marker.ItemID)
	assert.InDelta(t, -10, second.Position.Y, 1e-6)
}

func TestProjectedSurface_InvalidFrame(t *testing.T) {
	s, err := NewProjectedSurface(32)
	require.NoError(t, err)

	_, err = s.Prepare(context.Background(), geo.ReferenceFrame{}, []marker.Marker{centerMarker(1)})
	assert.Error(t, err)
}

func TestProjectedSurface_Cancelled(t *testing.T) {
	s, err := NewProjectedSurface(32)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Prepare(ctx, testFrame, []marker.Marker{centerMarker(1)})
	assert.ErrorIs(t, err, context.Canceled)

	layout, err := s.Prepare(ctx, testFrame, nil)
	require.NoError(t, err)
	assert.Empty(t, layout.Placements)
}

func TestProjectedSurface_CustomWindow(t *testing.T) {
	s, err := NewProjectedSurface(32)
	require.NoError(t, err)
	s.VisibleMin, s.VisibleMax = 0, 100

	edge := marker.Marker{ItemID: "edge", Coordinate: geo.Coordinate{Latitude: 40.006, Longitude: -74}}
	layout, err := s.Prepare(context.Background(), testFrame, []marker.Marker{edge})
	require.NoError(t, err)
	assert.Empty(t, layout.Placements)
}

func TestGlyphSurface(t *testing.T) {
	square := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for i := range square.Pix {
		square.Pix[i] = 0xff
	}
	glyph, err := marker.NewGlyph(square)
	require.NoError(t, err)

	s, err := NewGlyphSurface(glyph, 24)
	require.NoError(t, err)
	layout, err := s.Prepare(context.Background(), testFrame, []marker.Marker{centerMarker(0)})
	require.NoError(t, err)
	require.Len(t, layout.Placements, 1)

	g := layout.Placements[0].Glyph
	assert.Equal(t, image.Rect(0, 0, 24, 24), g.Bounds())
	assert.Equal(t, uint8(0xff), g.NRGBAAt(12, 12).A)

	_, err = NewGlyphSurface(marker.Glyph{}, 24)
	assert.Error(t, err)
}
