// Package storage persists committed reference frames and per-floor item
// order across runs.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/photokey/floorplan/internal/geo"
)

// ErrNotFound is returned when no state is stored for a floor.
var ErrNotFound = errors.New("floor state not found")

// FloorState is the persisted alignment state of one floor.
type FloorState struct {
	ProjectID string
	FloorID   string
	Frame     *geo.ReferenceFrame // nil when no floorplan frame is stored
	ItemOrder []string
	UpdatedAt time.Time
}

// FrameStore is the interface all storage implementations must satisfy
type FrameStore interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveFrame stores a committed frame, replacing any previous one.
	SaveFrame(ctx context.Context, projectID, floorID string, frame geo.ReferenceFrame) error
	// ClearFrame forgets the frame of a floor whose floorplan was removed.
	ClearFrame(ctx context.Context, projectID, floorID string) error
	// SaveItemOrder stores the user's item order within a floor.
	SaveItemOrder(ctx context.Context, projectID, floorID string, itemIDs []string) error

	// Floor returns the stored state of one floor or ErrNotFound.
	Floor(ctx context.Context, projectID, floorID string) (FloorState, error)
	// Floors returns all stored floors of a project ordered by floor id.
	Floors(ctx context.Context, projectID string) ([]FloorState, error)
}
