// Package project holds key items grouped onto floors, the floorplan attached
// to each floor and the lifecycle rules tying them together.
package project

import (
	"errors"
	"fmt"
	"slices"

	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/marker"
	"github.com/photokey/floorplan/internal/numbering"
)

var (
	ErrUnknownItem   = errors.New("unknown item")
	ErrUnknownFloor  = errors.New("unknown floor")
	ErrDuplicateItem = errors.New("item already exists")
	ErrNoFloorplan   = errors.New("floor has no floorplan")
	ErrInvalidFrame  = errors.New("reference frame is not valid")
	ErrInvalidItem   = errors.New("invalid item")
)

// KeyItem is one photo of the project.
type KeyItem struct {
	ID         string          `json:"id" validate:"required,fileid"`
	FloorID    string          `json:"floorId" validate:"omitempty,fileid"`
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`
	Heading    *float64        `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
}

// Geotagged reports whether the item carries a location.
func (k KeyItem) Geotagged() bool {
	return k.Coordinate != nil
}

// Floor groups items and owns at most one floorplan frame.
type Floor struct {
	ID        string
	ItemIDs   []string
	Floorplan *geo.ReferenceFrame
}

// AttachFloorplan gives the floor a new, not yet aligned floorplan.
// A previous floorplan and its alignment are replaced.
func (f *Floor) AttachFloorplan(src geo.ImageRef) {
	frame := geo.NewUnsetFrame(src)
	f.Floorplan = &frame
}

// CommitFrame stores the frame produced by an alignment session.
func (f *Floor) CommitFrame(frame geo.ReferenceFrame) error {
	if f.Floorplan == nil {
		return fmt.Errorf("floor %s: %w", f.ID, ErrNoFloorplan)
	}
	if !frame.Valid() {
		return fmt.Errorf("floor %s: %w", f.ID, ErrInvalidFrame)
	}
	if frame.Source == "" {
		frame.Source = f.Floorplan.Source
	}
	f.Floorplan = &frame
	return nil
}

// Frame returns a copy of the floorplan frame.
func (f *Floor) Frame() (geo.ReferenceFrame, bool) {
	if f.Floorplan == nil {
		return geo.ReferenceFrame{}, false
	}
	return *f.Floorplan, true
}

// Project is the set of floors and items being reported on.
type Project struct {
	ID     string
	floors []*Floor
	items  map[string]*KeyItem
}

// New creates an empty project.
func New(id string) *Project {
	return &Project{ID: id, items: make(map[string]*KeyItem)}
}

// AddItem appends an item to its floor, creating the floor when needed.
// Items without a floor go to the unassigned floor.
func (p *Project) AddItem(item KeyItem) error {
	if err := validate.Struct(item); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidItem, item.ID, err)
	}
	if _, ok := p.items[item.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
	}
	if item.FloorID == "" {
		item.FloorID = numbering.Unassigned
	}

	f := p.ensureFloor(item.FloorID)
	f.ItemIDs = append(f.ItemIDs, item.ID)
	p.items[item.ID] = &item
	return nil
}

// AddFloor creates an empty floor, or returns the existing one.
func (p *Project) AddFloor(id string) *Floor {
	return p.ensureFloor(id)
}

func (p *Project) ensureFloor(id string) *Floor {
	if f, ok := p.Floor(id); ok {
		return f
	}
	f := &Floor{ID: id}
	p.floors = append(p.floors, f)
	return f
}

// Floor looks up a floor by id.
func (p *Project) Floor(id string) (*Floor, bool) {
	for _, f := range p.floors {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}

// Floors returns the floors in creation order.
func (p *Project) Floors() []*Floor {
	return slices.Clone(p.floors)
}

// Item returns a copy of an item.
func (p *Project) Item(id string) (KeyItem, bool) {
	it, ok := p.items[id]
	if !ok {
		return KeyItem{}, false
	}
	return *it, true
}

// RemoveItem deletes an item. Removing the last geotagged item of a floor
// also removes that floor's floorplan.
func (p *Project) RemoveItem(id string) error {
	it, ok := p.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	f, _ := p.Floor(it.FloorID)
	f.ItemIDs = slices.DeleteFunc(f.ItemIDs, func(s string) bool { return s == id })
	delete(p.items, id)

	if it.Geotagged() && !p.hasGeotagged(f) {
		f.Floorplan = nil
	}
	return nil
}

// MoveItem places an item at index within a floor, which may be its own.
// The index is clamped to the floor's item list.
func (p *Project) MoveItem(id, floorID string, index int) error {
	it, ok := p.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	from, _ := p.Floor(it.FloorID)
	to, ok := p.Floor(floorID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFloor, floorID)
	}

	from.ItemIDs = slices.DeleteFunc(from.ItemIDs, func(s string) bool { return s == id })
	index = min(max(index, 0), len(to.ItemIDs))
	to.ItemIDs = slices.Insert(to.ItemIDs, index, id)
	it.FloorID = floorID

	if from != to && it.Geotagged() && !p.hasGeotagged(from) {
		from.Floorplan = nil
	}
	return nil
}

func (p *Project) hasGeotagged(f *Floor) bool {
	for _, id := range f.ItemIDs {
		if p.items[id].Geotagged() {
			return true
		}
	}
	return false
}

// Numbering assigns the global item numbers.
func (p *Project) Numbering(order numbering.Order) numbering.Index {
	floors := make([]numbering.Floor, 0, len(p.floors))
	for _, f := range p.floors {
		floors = append(floors, numbering.Floor{ID: f.ID, ItemIDs: slices.Clone(f.ItemIDs)})
	}
	return numbering.Assign(floors, order)
}

// Markers returns the markers of a floor's geotagged items in item order.
func (p *Project) Markers(floorID string, idx numbering.Index) []marker.Marker {
	f, ok := p.Floor(floorID)
	if !ok {
		return nil
	}
	var markers []marker.Marker
	for _, id := range f.ItemIDs {
		it := p.items[id]
		if !it.Geotagged() {
			continue
		}
		n, _ := idx.Number(id)
		markers = append(markers, marker.Marker{
			ItemID:     id,
			Number:     n,
			Heading:    it.Heading,
			Coordinate: *it.Coordinate,
		})
	}
	return markers
}
