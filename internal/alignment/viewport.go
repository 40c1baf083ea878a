package alignment

import (
	"math"
	"sync"

	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/marker"
	"github.com/photokey/floorplan/internal/projection"
)

// Extent is the visible region of the base map behind a pinned floorplan.
type Extent struct {
	CenterLat float64 `json:"centerLat"`
	CenterLng float64 `json:"centerLng"`
	LatSpan   float64 `json:"latSpan"`
	LngSpan   float64 `json:"lngSpan"`
}

// Valid reports whether both spans are positive and finite.
func (e Extent) Valid() bool {
	return positive(e.LatSpan) && positive(e.LngSpan) &&
		!math.IsNaN(e.CenterLat) && !math.IsNaN(e.CenterLng)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Frame returns the reference frame that maps the floorplan onto e.
func (e Extent) Frame(src geo.ImageRef) geo.ReferenceFrame {
	return geo.ReferenceFrame{
		Center:        geo.Coordinate{Latitude: e.CenterLat, Longitude: e.CenterLng},
		Scale:         e.LatSpan,
		SecondarySpan: e.LngSpan,
		Source:        src,
	}
}

// MarkerPosition is a marker placed on the pinned floorplan under the
// current extent.
type MarkerPosition struct {
	ItemID   string              `json:"itemId"`
	Number   int                 `json:"number"`
	Position projection.Position `json:"position"`
	Visible  bool                `json:"visible"`
}

// ViewportSession is the continuous alignment mode: the floorplan is fixed
// and the user pans and zooms the base map under it.
type ViewportSession struct {
	mu      sync.Mutex
	state   State
	markers []marker.Marker
	source  geo.ImageRef

	initial Extent
	current Extent
	sampled bool
}

// NewViewportSession starts a continuous session for the given floor markers
// and the floor's current frame (nil when none is attached).
func NewViewportSession(markers []marker.Marker, frame *geo.ReferenceFrame, cfg Config) *ViewportSession {
	coords := marker.Coordinates(markers)
	if len(coords) == 0 {
		return &ViewportSession{state: StateCannotAlign}
	}

	s := newSeed(coords, frame, cfg)
	initial := Extent{
		CenterLat: s.center.Latitude,
		CenterLng: s.center.Longitude,
		LatSpan:   s.latSpan,
		LngSpan:   s.lngSpan(),
	}
	return &ViewportSession{
		markers: append([]marker.Marker(nil), markers...),
		source:  s.source,
		initial: initial,
		current: initial,
	}
}

// State returns the session state.
func (v *ViewportSession) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *ViewportSession) check() error {
	switch v.state {
	case StateEditing:
		return nil
	case StateCannotAlign:
		return ErrNoGeotaggedMarkers
	default:
		return ErrSessionClosed
	}
}

// Initial returns the extent the base map should open at.
func (v *ViewportSession) Initial() Extent {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.initial
}

// Current returns the most recently sampled extent.
func (v *ViewportSession) Current() (Extent, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.check(); err != nil {
		return Extent{}, err
	}
	return v.current, nil
}

// Sample records the live base map extent. Invalid extents are ignored and
// reported with ErrInvalidExtent.
func (v *ViewportSession) Sample(e Extent) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.check(); err != nil {
		return err
	}
	if !e.Valid() {
		return ErrInvalidExtent
	}
	v.current = e
	v.sampled = true
	return nil
}

// MarkerPositions projects the floor markers under the current extent.
func (v *ViewportSession) MarkerPositions() ([]MarkerPosition, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.check(); err != nil {
		return nil, err
	}

	frame := v.current.Frame(v.source)
	out := make([]MarkerPosition, 0, len(v.markers))
	for _, m := range v.markers {
		pos, ok := projection.Project(frame, m.Coordinate)
		if !ok {
			continue
		}
		out = append(out, MarkerPosition{
			ItemID:   m.ItemID,
			Number:   m.Number,
			Position: pos,
			Visible:  projection.Visible(pos),
		})
	}
	return out, nil
}

// Commit closes the session and returns the frame for the last sampled
// extent, or the initial one if the map was never moved.
func (v *ViewportSession) Commit() (geo.ReferenceFrame, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.check(); err != nil {
		return geo.ReferenceFrame{}, err
	}
	v.state = StateCommitted
	e := v.initial
	if v.sampled {
		e = v.current
	}
	return e.Frame(v.source), nil
}

// Cancel discards all pending edits.
func (v *ViewportSession) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StateEditing {
		v.state = StateCancelled
	}
}
