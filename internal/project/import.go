package project

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/photokey/floorplan/internal/geo"
)

// ErrInvalidImport is returned for records that fail validation.
var ErrInvalidImport = errors.New("invalid import record")

var validate = newValidator()

// newValidator adds the fileid rule: ids end up as file names in exports, so
// they may not contain path separators or be "." or "..".
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("fileid", func(fl validator.FieldLevel) bool {
		return SafeID(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// SafeID reports whether id can be used as a single path element.
func SafeID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`+"\x00")
}

// ValidateFloorID checks an id for a floor declared outside an item.
func ValidateFloorID(id string) error {
	if err := validate.Var(id, "required,fileid"); err != nil {
		return fmt.Errorf("floor id %q: %w", id, err)
	}
	return nil
}

// ImportRecord is a photo as read from its EXIF GPS tags. Latitude and
// longitude are unsigned magnitudes with an N/S and E/W reference. A record
// without magnitudes has no location.
type ImportRecord struct {
	ID                 string   `json:"id" validate:"required,fileid"`
	FloorID            string   `json:"floorId" validate:"omitempty,fileid"`
	LatitudeMagnitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=0,lte=90"`
	LatitudeRef        string   `json:"latitudeRef,omitempty" validate:"omitempty,oneof=N S n s"`
	LongitudeMagnitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=0,lte=180"`
	LongitudeRef       string   `json:"longitudeRef,omitempty" validate:"omitempty,oneof=E W e w"`
	Heading            *float64 `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
}

// Validate checks the record's fields. Latitude and longitude come as a pair.
func (r *ImportRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if (r.LatitudeMagnitude == nil) != (r.LongitudeMagnitude == nil) {
		return errors.New("latitude and longitude must both be present or both be missing")
	}
	return nil
}

// FromImport converts a validated record into a key item. Southern latitudes
// and western longitudes become negative.
func FromImport(r ImportRecord) (KeyItem, error) {
	if err := r.Validate(); err != nil {
		return KeyItem{}, fmt.Errorf("%w %q: %w", ErrInvalidImport, r.ID, err)
	}

	item := KeyItem{ID: r.ID, FloorID: r.FloorID, Heading: r.Heading}
	if r.LatitudeMagnitude != nil && r.LongitudeMagnitude != nil {
		c := geo.Coordinate{Latitude: *r.LatitudeMagnitude, Longitude: *r.LongitudeMagnitude}
		if strings.EqualFold(r.LatitudeRef, "S") {
			c.Latitude = -c.Latitude
		}
		if strings.EqualFold(r.LongitudeRef, "W") {
			c.Longitude = -c.Longitude
		}
		item.Coordinate = &c
	}
	return item, nil
}

// Import adds every record to the project. Invalid records are skipped and
// their errors joined into the returned error.
func (p *Project) Import(records []ImportRecord) error {
	var errs []error
	for _, r := range records {
		item, err := FromImport(r)
		if err == nil {
			err = p.AddItem(item)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
