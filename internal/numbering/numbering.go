// Package numbering assigns the global 1-based sequence numbers shared by
// map markers, floorplan overlays and the report.
package numbering

import (
	"math"
	"sort"
	"strconv"
)

// Unassigned is the pseudo-floor holding photos not grouped onto a floor.
const Unassigned = "unassigned"

// Order selects where the unassigned pseudo-floor goes.
type Order int

const (
	// Canonical is the report order: numbered floors ascending, then named
	// floors, then the unassigned floor.
	Canonical Order = iota
	// UnassignedFirst is the live list order, with the unassigned floor on top.
	UnassignedFirst
)

// Floor is the minimal view of a floor needed for numbering.
type Floor struct {
	ID      string
	ItemIDs []string
}

// Index maps item id to its global 1-based number.
type Index map[string]int

// Assign numbers every item across all floors. Floors are ordered by
// SortFloors; items keep their insertion order within a floor. The result is
// recomputed from scratch on each call.
func Assign(floors []Floor, order Order) Index {
	sorted := SortFloors(floors, order)

	idx := make(Index)
	n := 0
	for _, f := range sorted {
		for _, id := range f.ItemIDs {
			if _, seen := idx[id]; seen {
				continue
			}
			n++
			idx[id] = n
		}
	}
	return idx
}

// SortFloors returns a copy of floors in the requested order.
func SortFloors(floors []Floor, order Order) []Floor {
	sorted := make([]Floor, len(floors))
	copy(sorted, floors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Less(sorted[i].ID, sorted[j].ID, order)
	})
	return sorted
}

// Less compares two floor identifiers under the given order.
func Less(a, b string, order Order) bool {
	ra, rb := rank(a, order), rank(b, order)
	if ra != rb {
		return ra < rb
	}
	switch ra {
	case rankNumeric:
		na, _ := numeric(a)
		nb, _ := numeric(b)
		return na < nb
	case rankNamed:
		return a < b
	}
	return false
}

const (
	rankUnassignedFirst = iota
	rankNumeric
	rankNamed
	rankUnassignedLast
)

func rank(id string, order Order) int {
	if id == Unassigned {
		if order == UnassignedFirst {
			return rankUnassignedFirst
		}
		return rankUnassignedLast
	}
	if _, ok := numeric(id); ok {
		return rankNumeric
	}
	return rankNamed
}

// numeric parses plain floor numbers; "Inf" and "NaN" count as names.
func numeric(id string) (float64, bool) {
	n, err := strconv.ParseFloat(id, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Number returns the number for id and whether it was assigned.
func (idx Index) Number(id string) (int, bool) {
	n, ok := idx[id]
	return n, ok
}

// Ordered returns the item ids sorted by their number.
func (idx Index) Ordered() []string {
	ids := make([]string, len(idx))
	for id, n := range idx {
		ids[n-1] = id
	}
	return ids
}
