package alignment

import (
	"math"
	"sync"

	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/marker"
)

// Direction is a Mode A move direction.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// StepState is the adjustable state of a stepped session.
type StepState struct {
	CenterLat       float64 `json:"centerLat"`
	CenterLng       float64 `json:"centerLng"`
	RotationDegrees float64 `json:"rotationDegrees"`
	ScaleMultiplier float64 `json:"scaleMultiplier"`
}

// Overlay is the preview placement of the floorplan image on the base map.
type Overlay struct {
	SouthWest      geo.Coordinate `json:"southWest"`
	NorthEast      geo.Coordinate `json:"northEast"`
	BearingDegrees float64        `json:"bearingDegrees"`
	Opacity        float64        `json:"opacity"`
	Source         geo.ImageRef   `json:"source"`
}

// StepSession is the discrete, stepped alignment mode.
//
// Adjustments are kept as signed step counts against the seed, so any
// sequence with zero net movement yields the seed values bit for bit.
type StepSession struct {
	mu    sync.Mutex
	cfg   Config
	state State
	seed  seed

	stepLat, stepLng float64

	north, east int
	scaleSteps  int
	rotateSteps int
}

// NewStepSession starts a stepped session for the given floor markers and
// the floor's current frame (nil when none is attached).
func NewStepSession(markers []marker.Marker, frame *geo.ReferenceFrame, cfg Config) *StepSession {
	coords := marker.Coordinates(markers)
	if len(coords) == 0 {
		return &StepSession{cfg: cfg, state: StateCannotAlign}
	}

	s := &StepSession{cfg: cfg, seed: newSeed(coords, frame, cfg)}
	s.stepLat, s.stepLng = geo.StepDegrees(s.seed.center, cfg.StepMeters)
	return s
}

// State returns the session state.
func (s *StepSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *StepSession) check() error {
	switch s.state {
	case StateEditing:
		return nil
	case StateCannotAlign:
		return ErrNoGeotaggedMarkers
	default:
		return ErrSessionClosed
	}
}

// Current returns the adjusted state.
func (s *StepSession) Current() (StepState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return StepState{}, err
	}
	return s.current(), nil
}

func (s *StepSession) current() StepState {
	rotation := s.seed.bearing
	if s.rotateSteps != 0 {
		rotation = geo.NormalizeBearing(rotation + float64(s.rotateSteps)*s.cfg.RotateStep)
	}
	return StepState{
		CenterLat:       s.seed.center.Latitude + float64(s.north)*s.stepLat,
		CenterLng:       s.seed.center.Longitude + float64(s.east)*s.stepLng,
		RotationDegrees: rotation,
		ScaleMultiplier: s.multiplier(s.scaleSteps),
	}
}

func (s *StepSession) multiplier(steps int) float64 {
	m := 1 + float64(steps)*s.cfg.ScaleStep
	return math.Min(math.Max(m, s.cfg.MinScale), s.cfg.MaxScale)
}

// Move shifts the center one step in the given direction.
func (s *StepSession) Move(d Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	switch d {
	case North:
		s.north++
	case South:
		s.north--
	case East:
		s.east++
	case West:
		s.east--
	}
	return nil
}

// Resize grows (delta > 0) or shrinks (delta < 0) the overlay by delta
// scale steps, clamped to [MinScale, MaxScale].
func (s *StepSession) Resize(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	for ; delta > 0; delta-- {
		s.scaleBy(1)
	}
	for ; delta < 0; delta++ {
		s.scaleBy(-1)
	}
	return nil
}

// scaleBy only moves the counter while the clamped value still changes, so
// pressing past a limit does not need to be undone.
func (s *StepSession) scaleBy(dir int) {
	if s.multiplier(s.scaleSteps+dir) != s.multiplier(s.scaleSteps) {
		s.scaleSteps += dir
	}
}

// Rotate turns the overlay clockwise (delta > 0) or counter-clockwise by
// delta rotate steps.
func (s *StepSession) Rotate(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	s.rotateSteps += delta
	if s.cfg.RotateStep > 0 {
		full := int(math.Round(360 / s.cfg.RotateStep))
		if full > 0 && s.rotateSteps%full == 0 {
			s.rotateSteps = 0
		}
	}
	return nil
}

// Preview returns the overlay box: center ± (span * multiplier) / 2.
func (s *StepSession) Preview() (Overlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return Overlay{}, err
	}
	st := s.current()
	halfLat := s.seed.latSpan * st.ScaleMultiplier / 2
	halfLng := s.seed.lngSpan() * st.ScaleMultiplier / 2
	return Overlay{
		SouthWest:      geo.Coordinate{Latitude: st.CenterLat - halfLat, Longitude: st.CenterLng - halfLng},
		NorthEast:      geo.Coordinate{Latitude: st.CenterLat + halfLat, Longitude: st.CenterLng + halfLng},
		BearingDegrees: st.RotationDegrees,
		Opacity:        s.cfg.PreviewOpacity,
		Source:         s.seed.source,
	}, nil
}

// Commit closes the session and returns the new frame.
func (s *StepSession) Commit() (geo.ReferenceFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return geo.ReferenceFrame{}, err
	}
	st := s.current()
	s.state = StateCommitted
	return geo.ReferenceFrame{
		Center:         geo.Coordinate{Latitude: st.CenterLat, Longitude: st.CenterLng},
		Scale:          s.seed.latSpan * st.ScaleMultiplier,
		SecondarySpan:  s.seed.secondary * st.ScaleMultiplier,
		BearingDegrees: st.RotationDegrees,
		Source:         s.seed.source,
	}, nil
}

// Cancel discards all pending edits.
func (s *StepSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEditing {
		s.state = StateCancelled
	}
}
