// Package gormstorage implements storage.FrameStore on GORM. The same code
// serves SQLite and Postgres; the dialect comes with the *gorm.DB.
package gormstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/storage"
)

// FloorRecord is one floor of one project.
type FloorRecord struct {
	ID             uint   `gorm:"primaryKey"`
	ProjectID      string `gorm:"size:128;not null;uniqueIndex:idx_floor_states_project_floor"`
	FloorID        string `gorm:"size:128;not null;uniqueIndex:idx_floor_states_project_floor"`
	HasFrame       bool   `gorm:"not null;default:false"`
	CenterLat      float64
	CenterLng      float64
	Scale          float64
	SecondarySpan  float64
	BearingDegrees float64
	Source         string
	ItemOrder      datatypes.JSON
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName sets the table name.
func (FloorRecord) TableName() string {
	return "floor_states"
}

// Models lists the tables this backend owns, for migration.
var Models = []any{&FloorRecord{}}

var floorKey = []clause.Column{{Name: "project_id"}, {Name: "floor_id"}}

// Backend stores floor state through GORM.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New creates a backend on an open connection. The caller owns db.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate floor_states: %w", err)
	}
	b.log.Debug().Str("dialect", b.db.Dialector.Name()).Msg("Frame store ready")
	return nil
}

// Close is a no-op; the connection belongs to the caller.
func (b *Backend) Close() error {
	return nil
}

// SaveFrame upserts a committed frame.
func (b *Backend) SaveFrame(ctx context.Context, projectID, floorID string, frame geo.ReferenceFrame) error {
	rec := FloorRecord{
		ProjectID:      projectID,
		FloorID:        floorID,
		HasFrame:       true,
		CenterLat:      frame.Center.Latitude,
		CenterLng:      frame.Center.Longitude,
		Scale:          frame.Scale,
		SecondarySpan:  frame.SecondarySpan,
		BearingDegrees: frame.BearingDegrees,
		Source:         string(frame.Source),
	}
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: floorKey,
		DoUpdates: clause.AssignmentColumns([]string{
			"has_frame", "center_lat", "center_lng", "scale",
			"secondary_span", "bearing_degrees", "source", "updated_at",
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save frame %s/%s: %w", projectID, floorID, err)
	}
	b.log.Debug().Str("project", projectID).Str("floor", floorID).Msg("Saved frame")
	return nil
}

// ClearFrame resets the frame columns of a floor, keeping its item order.
func (b *Backend) ClearFrame(ctx context.Context, projectID, floorID string) error {
	err := b.db.WithContext(ctx).Model(&FloorRecord{}).
		Where("project_id = ? AND floor_id = ?", projectID, floorID).
		Updates(map[string]any{
			"has_frame":       false,
			"center_lat":      0,
			"center_lng":      0,
			"scale":           0,
			"secondary_span":  0,
			"bearing_degrees": 0,
			"source":          "",
		}).Error
	if err != nil {
		return fmt.Errorf("clear frame %s/%s: %w", projectID, floorID, err)
	}
	return nil
}

// SaveItemOrder upserts the item order of a floor.
func (b *Backend) SaveItemOrder(ctx context.Context, projectID, floorID string, itemIDs []string) error {
	if itemIDs == nil {
		itemIDs = []string{}
	}
	order, err := json.Marshal(itemIDs)
	if err != nil {
		return fmt.Errorf("encode item order: %w", err)
	}
	rec := FloorRecord{
		ProjectID: projectID,
		FloorID:   floorID,
		ItemOrder: datatypes.JSON(order),
	}
	err = b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   floorKey,
		DoUpdates: clause.AssignmentColumns([]string{"item_order", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save item order %s/%s: %w", projectID, floorID, err)
	}
	return nil
}

// Floor loads one floor.
func (b *Backend) Floor(ctx context.Context, projectID, floorID string) (storage.FloorState, error) {
	var rec FloorRecord
	err := b.db.WithContext(ctx).
		Where("project_id = ? AND floor_id = ?", projectID, floorID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.FloorState{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.FloorState{}, fmt.Errorf("load floor %s/%s: %w", projectID, floorID, err)
	}
	return rec.state()
}

// Floors loads every floor of a project ordered by floor id.
func (b *Backend) Floors(ctx context.Context, projectID string) ([]storage.FloorState, error) {
	var recs []FloorRecord
	err := b.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("floor_id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("load floors of %s: %w", projectID, err)
	}

	out := make([]storage.FloorState, 0, len(recs))
	for _, rec := range recs {
		st, err := rec.state()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (r FloorRecord) state() (storage.FloorState, error) {
	st := storage.FloorState{
		ProjectID: r.ProjectID,
		FloorID:   r.FloorID,
		UpdatedAt: r.UpdatedAt,
	}
	if r.HasFrame {
		st.Frame = &geo.ReferenceFrame{
			Center:         geo.Coordinate{Latitude: r.CenterLat, Longitude: r.CenterLng},
			Scale:          r.Scale,
			SecondarySpan:  r.SecondarySpan,
			BearingDegrees: r.BearingDegrees,
			Source:         geo.ImageRef(r.Source),
		}
	}
	if len(r.ItemOrder) > 0 {
		if err := json.Unmarshal(r.ItemOrder, &st.ItemOrder); err != nil {
			return storage.FloorState{}, fmt.Errorf("decode item order of %s/%s: %w", r.ProjectID, r.FloorID, err)
		}
	}
	return st, nil
}
