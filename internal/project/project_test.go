package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/numbering"
)

func coord(lat, lng float64) *geo.Coordinate {
	return &geo.Coordinate{Latitude: lat, Longitude: lng}
}

func testProject(t *testing.T) *Project {
	t.Helper()
	p := New("p1")
	for _, it := range []KeyItem{
		{ID: "a", FloorID: "2", Coordinate: coord(40.001, -74)},
		{ID: "b", FloorID: "2"},
		{ID: "c", FloorID: "1", Coordinate: coord(40, -74.001)},
		{ID: "d", FloorID: "1", Coordinate: coord(40, -74.002)},
		{ID: "e"},
		{ID: "f", FloorID: numbering.Unassigned},
	} {
		require.NoError(t, p.AddItem(it))
	}
	return p
}

func TestAddItem(t *testing.T) {
	p := testProject(t)

	floors := p.Floors()
	require.Len(t, floors, 3)
	assert.Equal(t, "2", floors[0].ID)
	assert.Equal(t, []string{"c", "d"}, floors[1].ItemIDs)
	assert.Equal(t, numbering.Unassigned, floors[2].ID)
	assert.Equal(t, []string{"e", "f"}, floors[2].ItemIDs)

	err := p.AddItem(KeyItem{ID: "a"})
	assert.ErrorIs(t, err, ErrDuplicateItem)
	assert.Error(t, p.AddItem(KeyItem{}))

	it, ok := p.Item("e")
	require.True(t, ok)
	assert.Equal(t, numbering.Unassigned, it.FloorID)
	assert.False(t, it.Geotagged())
}

func TestAddItem_Invalid(t *testing.T) {
	heading := 400.0
	tests := []struct {
		name string
		item KeyItem
	}{
		{"empty id", KeyItem{}},
		{"id with separator", KeyItem{ID: "../../x"}},
		{"dot dot id", KeyItem{ID: ".."}},
		{"floor with separator", KeyItem{ID: "a", FloorID: "b/1"}},
		{"latitude out of range", KeyItem{ID: "a", Coordinate: &geo.Coordinate{Latitude: 91}}},
		{"longitude out of range", KeyItem{ID: "a", Coordinate: &geo.Coordinate{Longitude: -181}}},
		{"heading out of range", KeyItem{ID: "a", Heading: &heading}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New("p")
			assert.ErrorIs(t, p.AddItem(tt.item), ErrInvalidItem)
			assert.Empty(t, p.Floors())
		})
	}
}

func TestSafeID(t *testing.T) {
	for id, want := range map[string]bool{
		"IMG_0042.jpg": true,
		"B2":           true,
		"..a":          true,
		"":             false,
		".":            false,
		"..":           false,
		"a/b":          false,
		`a\b`:          false,
		"a\x00":        false,
	} {
		assert.Equal(t, want, SafeID(id), "%q", id)
	}
	assert.NoError(t, ValidateFloorID("1"))
	assert.Error(t, ValidateFloorID("../floors"))
	assert.Error(t, ValidateFloorID(""))
}

func TestNumbering_CanonicalOrder(t *testing.T) {
	p := testProject(t)

	idx := p.Numbering(numbering.Canonical)
	assert.Equal(t, []string{"c", "d", "a", "b", "e", "f"}, idx.Ordered())

	idx = p.Numbering(numbering.UnassignedFirst)
	assert.Equal(t, []string{"e", "f", "c", "d", "a", "b"}, idx.Ordered())
}

func TestMarkers(t *testing.T) {
	p := testProject(t)
	heading := 45.0
	p.items["c"].Heading = &heading

	idx := p.Numbering(numbering.Canonical)
	markers := p.Markers("1", idx)
	require.Len(t, markers, 2)
	assert.Equal(t, "c", markers[0].ItemID)
	assert.Equal(t, 1, markers[0].Number)
	assert.Equal(t, 45.0, markers[0].HeadingDegrees())
	assert.Equal(t, 2, markers[1].Number)

	markers = p.Markers("2", idx)
	require.Len(t, markers, 1, "items without coordinates have no marker")
	assert.Equal(t, 3, markers[0].Number)

	assert.Nil(t, p.Markers("missing", idx))
}

func TestFloor_AttachAndCommit(t *testing.T) {
	f := &Floor{ID: "1"}
	_, ok := f.Frame()
	assert.False(t, ok)

	err := f.CommitFrame(geo.ReferenceFrame{Scale: 0.01})
	assert.ErrorIs(t, err, ErrNoFloorplan)

	f.AttachFloorplan("plan.png")
	frame, ok := f.Frame()
	require.True(t, ok)
	assert.True(t, frame.IsUnset())
	assert.Equal(t, geo.ImageRef("plan.png"), frame.Source)

	assert.ErrorIs(t, f.CommitFrame(geo.ReferenceFrame{Scale: -1}), ErrInvalidFrame)

	aligned := geo.ReferenceFrame{Center: *coord(40, -74), Scale: 0.01, SecondarySpan: 0.013}
	require.NoError(t, f.CommitFrame(aligned))
	frame, _ = f.Frame()
	assert.Equal(t, 0.013, frame.SecondarySpan)
	assert.Equal(t, geo.ImageRef("plan.png"), frame.Source, "source carried over from the attached floorplan")

	frame.Scale = 99
	again, _ := f.Frame()
	assert.Equal(t, 0.01, again.Scale, "Frame returns a copy")
}

func TestFloorplansAreNotShared(t *testing.T) {
	p := testProject(t)
	f1, _ := p.Floor("1")
	f2, _ := p.Floor("2")
	f1.AttachFloorplan("plan.png")
	f2.AttachFloorplan("plan.png")

	require.NoError(t, f1.CommitFrame(geo.ReferenceFrame{Center: *coord(40, -74), Scale: 0.01}))
	frame, _ := f2.Frame()
	assert.True(t, frame.IsUnset())
}

func TestRemoveItem_LastGeotaggedDropsFloorplan(t *testing.T) {
	p := testProject(t)
	f, _ := p.Floor("1")
	f.AttachFloorplan("plan.png")

	require.NoError(t, p.RemoveItem("c"))
	assert.NotNil(t, f.Floorplan, "d is still geotagged")
	assert.Equal(t, []string{"d"}, f.ItemIDs)

	require.NoError(t, p.RemoveItem("d"))
	assert.Nil(t, f.Floorplan)
	assert.Empty(t, f.ItemIDs)

	assert.ErrorIs(t, p.RemoveItem("d"), ErrUnknownItem)
}

func TestRemoveItem_UntaggedKeepsFloorplan(t *testing.T) {
	p := testProject(t)
	f, _ := p.Floor("2")
	f.AttachFloorplan("plan.png")

	require.NoError(t, p.RemoveItem("b"))
	assert.NotNil(t, f.Floorplan)
}

func TestMoveItem(t *testing.T) {
	p := testProject(t)
	f2, _ := p.Floor("2")
	f2.AttachFloorplan("plan.png")

	require.NoError(t, p.MoveItem("a", "1", 1))
	f1, _ := p.Floor("1")
	assert.Equal(t, []string{"c", "a", "d"}, f1.ItemIDs)
	assert.Equal(t, []string{"b"}, f2.ItemIDs)
	assert.Nil(t, f2.Floorplan, "floor 2 lost its last geotagged item")

	it, _ := p.Item("a")
	assert.Equal(t, "1", it.FloorID)

	require.NoError(t, p.MoveItem("d", "1", 0))
	assert.Equal(t, []string{"d", "c", "a"}, f1.ItemIDs)

	require.NoError(t, p.MoveItem("d", "1", 99))
	assert.Equal(t, []string{"c", "a", "d"}, f1.ItemIDs)

	idx := p.Numbering(numbering.Canonical)
	assert.Equal(t, []string{"c", "a", "d", "b", "e", "f"}, idx.Ordered())

	assert.ErrorIs(t, p.MoveItem("x", "1", 0), ErrUnknownItem)
	assert.ErrorIs(t, p.MoveItem("a", "9", 0), ErrUnknownFloor)
}

func TestAddFloor(t *testing.T) {
	p := New("p")
	f := p.AddFloor("B1")
	assert.Same(t, f, p.AddFloor("B1"))
	assert.Len(t, p.Floors(), 1)
}
