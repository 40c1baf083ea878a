package project

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/photokey/floorplan/internal/storage"
)

// Save writes every floor's frame and item order to the store. Floors
// without a floorplan have their stored frame cleared.
func (p *Project) Save(ctx context.Context, store storage.FrameStore) error {
	for _, f := range p.floors {
		if err := store.SaveItemOrder(ctx, p.ID, f.ID, f.ItemIDs); err != nil {
			return fmt.Errorf("saving item order of floor %s: %w", f.ID, err)
		}
		var err error
		if frame, ok := f.Frame(); ok {
			err = store.SaveFrame(ctx, p.ID, f.ID, frame)
		} else {
			err = store.ClearFrame(ctx, p.ID, f.ID)
		}
		if err != nil {
			return fmt.Errorf("saving frame of floor %s: %w", f.ID, err)
		}
	}
	return nil
}

// Restore applies stored frames and item orders to the project's floors.
// Stored ids of items the project no longer has are ignored; items missing
// from the stored order keep their relative order after the stored ones.
func (p *Project) Restore(ctx context.Context, store storage.FrameStore) error {
	for _, f := range p.floors {
		st, err := store.Floor(ctx, p.ID, f.ID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("restoring floor %s: %w", f.ID, err)
		}

		if st.Frame != nil {
			frame := *st.Frame
			f.Floorplan = &frame
		}
		if len(st.ItemOrder) > 0 {
			f.ItemIDs = reorder(f.ItemIDs, st.ItemOrder)
		}
	}
	return nil
}

func reorder(current, stored []string) []string {
	out := make([]string, 0, len(current))
	for _, id := range stored {
		if slices.Contains(current, id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	for _, id := range current {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
