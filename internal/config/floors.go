package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// FloorOverride adjusts the built-in profile of one floor. Nil fields keep the
// built-in value.
//
//	[floor.first]
//	featureElevation = 1.0
//	backOfHouseMarker = "e-shop"
//
//	[floor.first.palette]
//	empty = "#f1f5f9"
type FloorOverride struct {
	OffsetX           *float64          `toml:"offsetX"`
	OffsetY           *float64          `toml:"offsetY"`
	FeatureElevation  *float64          `toml:"featureElevation"`
	WallMarker        *string           `toml:"wallMarker"`
	BackOfHouseMarker *string           `toml:"backOfHouseMarker"`
	Palette           map[string]string `toml:"palette"`
	// YouAreHere places the kiosk marker in authoring coordinates.
	YouAreHere []float64 `toml:"youAreHere"`
}

type floorsFile struct {
	Floor map[string]FloorOverride `toml:"floor"`
}

// LoadFloors decodes a TOML floors file. Keys under [floor] accept canonical
// floor ids and their short aliases.
func LoadFloors(path string) (map[floorplan.FloorID]FloorOverride, error) {
	var f floorsFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("error reading floors file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("floors file: unknown key %q", undecoded[0].String())
	}
	return collectFloors(f)
}

// ParseFloors decodes TOML floor overrides from a string.
func ParseFloors(data string) (map[floorplan.FloorID]FloorOverride, error) {
	var f floorsFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("error parsing floors: %w", err)
	}
	return collectFloors(f)
}

func collectFloors(f floorsFile) (map[floorplan.FloorID]FloorOverride, error) {
	out := make(map[floorplan.FloorID]FloorOverride, len(f.Floor))
	for key, o := range f.Floor {
		id, err := floorplan.ParseFloorID(key)
		if err != nil {
			return nil, fmt.Errorf("floors file: %w", err)
		}
		if o.YouAreHere != nil && len(o.YouAreHere) != 2 {
			return nil, fmt.Errorf("floors file: %s youAreHere needs 2 values, got %d", id, len(o.YouAreHere))
		}
		out[id] = o
	}
	return out, nil
}
