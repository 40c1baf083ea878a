// Package memory implements storage.FrameStore in process memory.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/storage"
)

type key struct {
	project string
	floor   string
}

// Backend keeps floor state in a map; everything is lost on exit.
type Backend struct {
	floors map[key]*storage.FloorState
	now    func() time.Time
	mu     sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{
		floors: make(map[key]*storage.FloorState),
		now:    time.Now,
	}
}

// Init is a no-op.
func (b *Backend) Init() error {
	return nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) entry(projectID, floorID string) *storage.FloorState {
	k := key{projectID, floorID}
	st, ok := b.floors[k]
	if !ok {
		st = &storage.FloorState{ProjectID: projectID, FloorID: floorID}
		b.floors[k] = st
	}
	st.UpdatedAt = b.now()
	return st
}

// SaveFrame stores a committed frame.
func (b *Backend) SaveFrame(_ context.Context, projectID, floorID string, frame geo.ReferenceFrame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entry(projectID, floorID).Frame = &frame
	return nil
}

// ClearFrame forgets a floor's frame, keeping its item order.
func (b *Backend) ClearFrame(_ context.Context, projectID, floorID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.floors[key{projectID, floorID}]; ok {
		st.Frame = nil
		st.UpdatedAt = b.now()
	}
	return nil
}

// SaveItemOrder stores the item order of a floor.
func (b *Backend) SaveItemOrder(_ context.Context, projectID, floorID string, itemIDs []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entry(projectID, floorID).ItemOrder = slices.Clone(itemIDs)
	return nil
}

// Floor returns a copy of a floor's state.
func (b *Backend) Floor(_ context.Context, projectID, floorID string) (storage.FloorState, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.floors[key{projectID, floorID}]
	if !ok {
		return storage.FloorState{}, storage.ErrNotFound
	}
	return clone(st), nil
}

// Floors returns copies of every floor in the project.
func (b *Backend) Floors(_ context.Context, projectID string) ([]storage.FloorState, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []storage.FloorState
	for k, st := range b.floors {
		if k.project == projectID {
			out = append(out, clone(st))
		}
	}
	slices.SortFunc(out, func(a, b storage.FloorState) int {
		return strings.Compare(a.FloorID, b.FloorID)
	})
	return out, nil
}

func clone(st *storage.FloorState) storage.FloorState {
	out := *st
	if st.Frame != nil {
		f := *st.Frame
		out.Frame = &f
	}
	out.ItemOrder = slices.Clone(st.ItemOrder)
	return out
}
