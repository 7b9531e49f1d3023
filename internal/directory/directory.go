// Package directory merges the business units of every floor into one store
// list and decides how a selection moves the kiosk between floors.
package directory

import (
	"sort"
	"strings"

	"github.com/northwalk/floormap/pkg/floorplan"
)

// placeholderMarkers flag ids that are drawn but never listed.
var placeholderMarkers = []string{"e-shop", "wall", "corridor"}

// Store is one listed business.
type Store struct {
	ID          string
	Name        string
	Type        floorplan.FeatureType
	Description string
	Floor       floorplan.FloorID
}

// Directory is the merged store list.
type Directory struct {
	stores []Store
	byID   map[string]int
}

// IsPlaceholder reports whether id names a back-of-house, wall or corridor unit.
func IsPlaceholder(id string) bool {
	lower := strings.ToLower(id)
	for _, m := range placeholderMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Build merges the business features of floors, visiting floors ground first.
// The first occurrence of an id wins.
func Build(floors map[floorplan.FloorID][]floorplan.Feature) *Directory {
	d := &Directory{byID: make(map[string]int)}
	for i := len(floorplan.Floors) - 1; i >= 0; i-- {
		floor := floorplan.Floors[i]
		for _, f := range floors[floor] {
			if !f.Type.IsBusiness() || IsPlaceholder(f.ID) {
				continue
			}
			if _, dup := d.byID[f.ID]; dup {
				continue
			}
			d.byID[f.ID] = len(d.stores)
			d.stores = append(d.stores, Store{
				ID:          f.ID,
				Name:        f.Name,
				Type:        f.Type,
				Description: f.Description,
				Floor:       floor,
			})
		}
	}
	return d
}

// Len returns the number of stores.
func (d *Directory) Len() int {
	return len(d.stores)
}

// Lookup returns the store with id.
func (d *Directory) Lookup(id string) (Store, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Store{}, false
	}
	return d.stores[i], true
}

// Stores returns the stores sorted by name.
func (d *Directory) Stores() []Store {
	out := append([]Store(nil), d.stores...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Decision is the selection state a pick leads to.
type Decision struct {
	Floor      floorplan.FloorID
	SelectedID string
	ShowRoute  bool
}

// Decide applies the kiosk policy to a reported id: "" clears the selection;
// a listed store moves to its floor with the route hidden; anything else is
// selected on the current floor with its route shown.
func (d *Directory) Decide(current floorplan.FloorID, id string) Decision {
	if id == "" {
		return Decision{Floor: current}
	}
	if s, ok := d.Lookup(id); ok {
		return Decision{Floor: s.Floor, SelectedID: id}
	}
	return Decision{Floor: current, SelectedID: id, ShowRoute: true}
}
