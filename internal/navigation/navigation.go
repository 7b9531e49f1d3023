// Package navigation holds the static table of precomputed kiosk routes.
package navigation

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/northwalk/floormap/internal/geo"
	"github.com/northwalk/floormap/pkg/floorplan"
	"gopkg.in/yaml.v3"
)

//go:embed data/navigation.yaml
var defaultTable []byte

// Table maps floor, then destination id, to its authored routes.
type Table struct {
	routes map[floorplan.FloorID]map[string]floorplan.NavigationPath
}

// Default returns the table embedded in the binary.
func Default() *Table {
	t, err := Parse(defaultTable, ".yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded navigation table: %v", err))
	}
	return t
}

// Load reads a table from a YAML or JSON file. An empty path returns Default().
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read navigation table: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a table. ext selects the format: ".json" for JSON, anything
// else for YAML.
func Parse(data []byte, ext string) (*Table, error) {
	raw := map[string]map[string]floorplan.NavigationPath{}
	var err error
	if strings.EqualFold(ext, ".json") {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse navigation table: %w", err)
	}

	t := &Table{routes: make(map[floorplan.FloorID]map[string]floorplan.NavigationPath, len(raw))}
	for key, entries := range raw {
		floor, err := floorplan.ParseFloorID(key)
		if err != nil {
			return nil, fmt.Errorf("navigation table: %w", err)
		}
		if entries == nil {
			entries = map[string]floorplan.NavigationPath{}
		}
		t.routes[floor] = entries
	}
	return t, nil
}

// Lookup returns the routes to id on floor. ok is false when the floor has no
// entry for id.
func (t *Table) Lookup(floor floorplan.FloorID, id string) (floorplan.NavigationPath, bool) {
	if t == nil || id == "" {
		return nil, false
	}
	p, ok := t.routes[floor][id]
	if !ok || len(p) == 0 {
		return nil, false
	}
	return p, true
}

// Destinations lists the routable ids on floor in sorted order.
func (t *Table) Destinations(floor floorplan.FloorID) []string {
	if t == nil {
		return nil
	}
	ids := make([]string, 0, len(t.routes[floor]))
	for id := range t.routes[floor] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Set replaces the routes to id on floor.
func (t *Table) Set(floor floorplan.FloorID, id string, path floorplan.NavigationPath) {
	if t.routes == nil {
		t.routes = map[floorplan.FloorID]map[string]floorplan.NavigationPath{}
	}
	if t.routes[floor] == nil {
		t.routes[floor] = map[string]floorplan.NavigationPath{}
	}
	t.routes[floor][id] = path
}

// Validate checks every route for at least two waypoints inside the authoring
// space. When known is non-nil it also reports destinations that have no
// feature on their floor. All problems are joined into one error.
func (t *Table) Validate(known map[floorplan.FloorID]map[string]bool) error {
	var errs []error
	for _, floor := range floorplan.Floors {
		for _, id := range t.Destinations(floor) {
			for i, list := range t.routes[floor][id] {
				if len(list) < 2 {
					errs = append(errs, fmt.Errorf("%s/%s route %d: %d waypoints, need at least 2", floor, id, i, len(list)))
				}
				for j, wp := range list {
					if !geo.AuthoringBounds.Contains(wp) {
						errs = append(errs, fmt.Errorf("%s/%s route %d waypoint %d: (%g, %g) outside authoring space", floor, id, i, j, wp.X, wp.Y))
					}
				}
			}
			if known != nil && !known[floor][id] {
				errs = append(errs, fmt.Errorf("%s/%s: no such feature on floor", floor, id))
			}
		}
	}
	return errors.Join(errs...)
}
