// Package geo holds the coordinate model: geographic coordinates and the
// affine reference frame that ties a floorplan image to them.
package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when a "lat,lng" string cannot be parsed
// or is out of range.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Coordinate is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Point returns the coordinate as an orb point (X=lng, Y=lat).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// IsZero reports whether both components are exactly zero.
func (c Coordinate) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}

// CoordinateFromString parses a "lat,lng" string.
func CoordinateFromString(coords string) (Coordinate, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return Coordinate{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinate{}, ErrInvalidCoordinates
	}
	return Coordinate{Latitude: lat, Longitude: lng}, nil
}

// Centroid returns the arithmetic mean of the given coordinates.
// ok is false when coords is empty.
func Centroid(coords []Coordinate) (c Coordinate, ok bool) {
	if len(coords) == 0 {
		return Coordinate{}, false
	}
	var lat, lng float64
	for _, p := range coords {
		lat += p.Latitude
		lng += p.Longitude
	}
	n := float64(len(coords))
	return Coordinate{Latitude: lat / n, Longitude: lng / n}, true
}

// Bounds returns the lat/lng bounding box of the coordinates.
func Bounds(coords []Coordinate) (orb.Bound, bool) {
	if len(coords) == 0 {
		return orb.Bound{}, false
	}
	mp := make(orb.MultiPoint, 0, len(coords))
	for _, c := range coords {
		mp = append(mp, c.Point())
	}
	return mp.Bound(), true
}

// DistanceMeters is the geodesic distance between two coordinates.
func DistanceMeters(a, b Coordinate) float64 {
	return orbgeo.Distance(a.Point(), b.Point())
}

// StepDegrees converts a ground distance in meters at the given coordinate
// into latitude and longitude deltas in degrees. The conversion goes through
// Web Mercator, where a ground distance d spans d/cos(lat) projected meters.
func StepDegrees(at Coordinate, meters float64) (dLat, dLng float64) {
	epsg := wgs84.EPSG()
	toMercator := epsg.Transform(4326, 3857)
	toGeographic := epsg.Transform(3857, 4326)

	x, y, _ := toMercator(at.Longitude, at.Latitude, 0)
	projected := meters / math.Cos(at.Latitude*math.Pi/180)

	_, northLat, _ := toGeographic(x, y+projected, 0)
	eastLng, _, _ := toGeographic(x+projected, y, 0)

	return math.Abs(northLat - at.Latitude), math.Abs(eastLng - at.Longitude)
}
