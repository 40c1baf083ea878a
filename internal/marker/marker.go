// Package marker renders the numbered, heading-rotated glyph that stands for
// one photo on a floorplan or map.
package marker

import "github.com/photokey/floorplan/internal/geo"

// Marker is a photo location derived from a key item. It is never stored.
type Marker struct {
	ItemID     string         `json:"itemId"`
	Number     int            `json:"number"`
	Heading    *float64       `json:"heading,omitempty"`
	Coordinate geo.Coordinate `json:"coordinate"`
}

// HeadingDegrees returns the heading, defaulting to 0 (glyph up) when unknown.
func (m Marker) HeadingDegrees() float64 {
	if m.Heading == nil {
		return 0
	}
	return *m.Heading
}

// Coordinates returns the coordinates of all markers, in order.
func Coordinates(markers []Marker) []geo.Coordinate {
	coords := make([]geo.Coordinate, 0, len(markers))
	for _, m := range markers {
		coords = append(coords, m.Coordinate)
	}
	return coords
}
