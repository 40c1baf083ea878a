// Package storagetest holds the behavior every storage.FrameStore must show.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/storage"
)

// Run exercises a fresh store from newStore in subtests.
func Run(t *testing.T, newStore func(t *testing.T) storage.FrameStore) {
	ctx := context.Background()
	frame := geo.ReferenceFrame{
		Center:         geo.Coordinate{Latitude: 40.712812345678901, Longitude: -74.006012345678901},
		Scale:          0.0012,
		SecondarySpan:  0.00173,
		BearingDegrees: 35,
		Source:         "plans/floor-1.png",
	}

	t.Run("not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Floor(ctx, "p", "1")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		floors, err := s.Floors(ctx, "p")
		require.NoError(t, err)
		assert.Empty(t, floors)
	})

	t.Run("frame round trip is exact", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveFrame(ctx, "p", "1", frame))

		st, err := s.Floor(ctx, "p", "1")
		require.NoError(t, err)
		require.NotNil(t, st.Frame)
		assert.Equal(t, frame, *st.Frame)
		assert.Equal(t, "p", st.ProjectID)
		assert.Equal(t, "1", st.FloorID)
		assert.False(t, st.UpdatedAt.IsZero())
	})

	t.Run("save frame replaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveFrame(ctx, "p", "1", frame))
		next := frame
		next.Scale = 0.005
		next.BearingDegrees = 0
		require.NoError(t, s.SaveFrame(ctx, "p", "1", next))

		st, err := s.Floor(ctx, "p", "1")
		require.NoError(t, err)
		assert.Equal(t, next, *st.Frame)
	})

	t.Run("item order independent of frame", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveItemOrder(ctx, "p", "B1", []string{"c", "a", "b"}))

		st, err := s.Floor(ctx, "p", "B1")
		require.NoError(t, err)
		assert.Nil(t, st.Frame)
		assert.Equal(t, []string{"c", "a", "b"}, st.ItemOrder)

		require.NoError(t, s.SaveFrame(ctx, "p", "B1", frame))
		require.NoError(t, s.SaveItemOrder(ctx, "p", "B1", []string{"a"}))

		st, err = s.Floor(ctx, "p", "B1")
		require.NoError(t, err)
		assert.Equal(t, frame, *st.Frame)
		assert.Equal(t, []string{"a"}, st.ItemOrder)
	})

	t.Run("clear frame", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveFrame(ctx, "p", "1", frame))
		require.NoError(t, s.SaveItemOrder(ctx, "p", "1", []string{"x"}))
		require.NoError(t, s.ClearFrame(ctx, "p", "1"))
		require.NoError(t, s.ClearFrame(ctx, "p", "missing"))

		st, err := s.Floor(ctx, "p", "1")
		require.NoError(t, err)
		assert.Nil(t, st.Frame)
		assert.Equal(t, []string{"x"}, st.ItemOrder)
	})

	t.Run("floors are scoped and ordered", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveFrame(ctx, "p", "2", frame))
		require.NoError(t, s.SaveFrame(ctx, "p", "1", frame))
		require.NoError(t, s.SaveItemOrder(ctx, "p", "unassigned", []string{"z"}))
		require.NoError(t, s.SaveFrame(ctx, "other", "1", frame))

		floors, err := s.Floors(ctx, "p")
		require.NoError(t, err)
		require.Len(t, floors, 3)
		assert.Equal(t, "1", floors[0].FloorID)
		assert.Equal(t, "2", floors[1].FloorID)
		assert.Equal(t, "unassigned", floors[2].FloorID)
	})

	t.Run("returned state is a copy", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveFrame(ctx, "p", "1", frame))
		require.NoError(t, s.SaveItemOrder(ctx, "p", "1", []string{"a", "b"}))

		st, err := s.Floor(ctx, "p", "1")
		require.NoError(t, err)
		st.Frame.Scale = 99
		st.ItemOrder[0] = "mutated"

		st, err = s.Floor(ctx, "p", "1")
		require.NoError(t, err)
		assert.Equal(t, frame.Scale, st.Frame.Scale)
		assert.Equal(t, "a", st.ItemOrder[0])
	})
}
