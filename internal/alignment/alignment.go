// Package alignment lets a user bring a floorplan's reference frame into
// correspondence with the markers on its floor.
//
// Two strategies are offered. StepSession adjusts center, scale and bearing
// in fixed increments against a semi-transparent preview. ViewportSession
// pins the floorplan and records the extent of a pannable base map under it.
// Both refuse to start on a floor without geotagged markers, and neither
// touches the caller's frame until Commit returns a new one.
package alignment

import (
	"errors"
	"math"

	"github.com/photokey/floorplan/internal/geo"
)

var (
	// ErrNoGeotaggedMarkers is the terminal state of a floor that has no
	// photos with coordinates.
	ErrNoGeotaggedMarkers = errors.New("cannot align: no geotagged photos on this floor")
	// ErrSessionClosed is returned after Commit or Cancel.
	ErrSessionClosed = errors.New("alignment session is closed")
	// ErrInvalidExtent is returned for extents with non-positive spans.
	ErrInvalidExtent = errors.New("extent spans must be positive")
)

// State is the lifecycle state of a session.
type State int

const (
	StateEditing State = iota
	StateCommitted
	StateCancelled
	StateCannotAlign
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateCommitted:
		return "committed"
	case StateCancelled:
		return "cancelled"
	case StateCannotAlign:
		return "cannot-align"
	default:
		return "unknown"
	}
}

// Config holds the step sizes and limits for alignment.
type Config struct {
	StepMeters     float64 // Mode A move increment
	ScaleStep      float64 // Mode A multiplier increment
	RotateStep     float64 // Mode A bearing increment, degrees
	MinScale       float64
	MaxScale       float64
	MinSpan        float64 // smallest marker span in degrees, for single-marker floors
	Padding        float64 // fraction of the marker span added on each side
	PreviewOpacity float64
}

// DefaultConfig returns the stock alignment settings.
func DefaultConfig() Config {
	return Config{
		StepMeters:     5,
		ScaleStep:      0.1,
		RotateStep:     5,
		MinScale:       0.2,
		MaxScale:       3.0,
		MinSpan:        0.0002,
		Padding:        0.25,
		PreviewOpacity: 0.5,
	}
}

// seed is the starting point of a session.
type seed struct {
	center    geo.Coordinate
	latSpan   float64
	secondary float64
	bearing   float64
	source    geo.ImageRef
}

func (s seed) lngSpan() float64 {
	if s.secondary > 0 {
		return s.secondary
	}
	return s.latSpan
}

// newSeed starts from a committed frame when there is one, otherwise from the
// centroid and padded bounding span of the markers.
func newSeed(coords []geo.Coordinate, frame *geo.ReferenceFrame, cfg Config) seed {
	if frame != nil && frame.Valid() && !frame.IsUnset() {
		return seed{
			center:    frame.Center,
			latSpan:   frame.Scale,
			secondary: frame.SecondarySpan,
			bearing:   frame.BearingDegrees,
			source:    frame.Source,
		}
	}

	s := seed{}
	if frame != nil {
		s.source = frame.Source
	}
	s.center, _ = geo.Centroid(coords)
	s.latSpan, s.secondary = markerSpan(coords, cfg)
	return s
}

func markerSpan(coords []geo.Coordinate, cfg Config) (lat, lng float64) {
	bound, ok := geo.Bounds(coords)
	if !ok {
		return cfg.MinSpan, cfg.MinSpan
	}
	pad := 1 + 2*cfg.Padding
	lat = math.Max((bound.Max.Lat()-bound.Min.Lat())*pad, cfg.MinSpan)
	lng = math.Max((bound.Max.Lon()-bound.Min.Lon())*pad, cfg.MinSpan)
	return lat, lng
}
