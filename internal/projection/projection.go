// Package projection maps geographic coordinates into normalized floorplan
// space for a given reference frame.
package projection

import "github.com/photokey/floorplan/internal/geo"

// Default render window, in percent. Markers projected outside it are
// usually suppressed by renderers.
const (
	DefaultVisibleMin = -20.0
	DefaultVisibleMax = 120.0
)

// Position is a point in percentage space: (50,50) is the image center,
// (0,0) the top-left corner and (100,100) the bottom-right corner. Values
// outside [0,100] are legal.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Project maps point onto the floorplan described by frame. It returns false
// when the frame has no usable scale; it never clamps or rejects positions
// based on range.
func Project(frame geo.ReferenceFrame, point geo.Coordinate) (Position, bool) {
	if !frame.Valid() {
		return Position{}, false
	}

	deltaLat := point.Latitude - frame.Center.Latitude
	deltaLng := point.Longitude - frame.Center.Longitude

	return Position{
		X: 50 + (deltaLng/frame.LngSpan())*100,
		// image y grows downward, latitude grows upward
		Y: 50 - (deltaLat/frame.LatSpan())*100,
	}, true
}

// Pixels converts the position to pixel coordinates on a width x height image.
func (p Position) Pixels(width, height int) (x, y float64) {
	return p.X / 100 * float64(width), p.Y / 100 * float64(height)
}

// VisibleWithin reports whether both axes lie inside [min,max].
func VisibleWithin(p Position, min, max float64) bool {
	return p.X >= min && p.X <= max && p.Y >= min && p.Y <= max
}

// Visible applies the default render window.
func Visible(p Position) bool {
	return VisibleWithin(p, DefaultVisibleMin, DefaultVisibleMax)
}
