package geo

import "math"

// DefaultScale is the scale given to a freshly attached, unaligned floorplan.
const DefaultScale = 1.0

// ImageRef is an opaque reference to a floorplan image (a file path, URI or
// storage key). The core never dereferences it.
type ImageRef string

// ReferenceFrame maps normalized floorplan space to geographic coordinates.
//
// Scale is the latitude span covered by the image height. SecondarySpan is
// the longitude span covered by the image width; when it is not positive the
// frame is treated as square and Scale is used for both axes. BearingDegrees
// is only consumed by overlay previews; projection ignores it.
type ReferenceFrame struct {
	Center         Coordinate `json:"center"`
	Scale          float64    `json:"scale"`
	SecondarySpan  float64    `json:"secondarySpan"`
	BearingDegrees float64    `json:"bearingDegrees"`
	Source         ImageRef   `json:"source"`
}

// NewUnsetFrame returns the sentinel frame created when an image is attached
// to a floor.
func NewUnsetFrame(src ImageRef) ReferenceFrame {
	return ReferenceFrame{Scale: DefaultScale, Source: src}
}

// Valid reports whether the frame can be used for projection.
func (f ReferenceFrame) Valid() bool {
	return f.Scale > 0 && !math.IsInf(f.Scale, 0)
}

// IsUnset reports whether the frame is still the attach-time sentinel.
func (f ReferenceFrame) IsUnset() bool {
	return f.Center.IsZero() && f.Scale == DefaultScale && f.SecondarySpan == 0 && f.BearingDegrees == 0
}

// LatSpan is the latitude span covered by the image height.
func (f ReferenceFrame) LatSpan() float64 {
	return f.Scale
}

// LngSpan is the longitude span covered by the image width.
func (f ReferenceFrame) LngSpan() float64 {
	if f.SecondarySpan > 0 {
		return f.SecondarySpan
	}
	return f.Scale
}

// NormalizeBearing wraps degrees into [0,360).
func NormalizeBearing(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
