// Package capture flattens a floorplan and its markers into a PNG per floor
// overview or per marker close-up.
//
// Each unit waits for two independent conditions, the floorplan image being
// decoded and the positioning surface being prepared, before composing. The
// join is explicit (see Readiness) and every unit is bounded by a timeout.
// A failed unit is reported in its Result; it never fails the batch.
package capture

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/marker"
	"github.com/photokey/floorplan/internal/projection"
)

var (
	ErrImageLoad       = errors.New("floorplan image could not be loaded")
	ErrSurface         = errors.New("positioning surface failed")
	ErrCaptureTimeout  = errors.New("capture timed out")
	ErrCaptureTooSmall = errors.New("captured image is implausibly small")
	ErrCaptureAborted  = errors.New("capture aborted")
)

// Kind is the kind of capture unit.
type Kind int

const (
	FloorOverview Kind = iota
	MarkerCloseUp
)

func (k Kind) String() string {
	switch k {
	case FloorOverview:
		return "overview"
	case MarkerCloseUp:
		return "closeup"
	default:
		return "unknown"
	}
}

// Request describes one capture unit. Key is the floor id for overviews and
// the item id for close-ups.
type Request struct {
	Key     string
	Kind    Kind
	Frame   geo.ReferenceFrame
	Markers []marker.Marker
	Image   ImageSource
}

// Result is the outcome of one capture unit.
type Result struct {
	Key  string
	Kind Kind
	PNG  []byte
	OK   bool
	Err  error
}

// Base64 returns the PNG as standard base64, or "" when the unit failed.
func (r Result) Base64() string {
	if !r.OK {
		return ""
	}
	return base64.StdEncoding.EncodeToString(r.PNG)
}

// Options tunes the pipeline.
type Options struct {
	MaxDimension    int           // longest output edge; smaller images are never upscaled
	MarkerSize      int           // glyph edge in output pixels
	SettleDelay     time.Duration // pause between readiness and composition
	Timeout         time.Duration // per unit
	MinBytes        int           // shorter encodings are treated as failures
	CloseUpFraction float64       // close-up edge relative to the longest overview edge
	Workers         int           // units captured at once
	VisibleMin      float64
	VisibleMax      float64
}

// DefaultOptions returns the stock pipeline settings.
func DefaultOptions() Options {
	return Options{
		MaxDimension:    1200,
		MarkerSize:      marker.DefaultSize,
		SettleDelay:     500 * time.Millisecond,
		Timeout:         15 * time.Second,
		MinBytes:        1000,
		CloseUpFraction: 0.4,
		Workers:         3,
		VisibleMin:      projection.DefaultVisibleMin,
		VisibleMax:      projection.DefaultVisibleMax,
	}
}
