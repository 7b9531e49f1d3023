// Package floorplan holds the floor-plan data types shared between the engine,
// its storage backends and the kiosk bridge. The types carry no GIS or render
// dependencies so that collaborators can import them freely.
package floorplan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFloor is returned when a floor identifier is not one of the known floors.
var ErrUnknownFloor = errors.New("unknown floor")

// FloorID identifies one floor of the building.
type FloorID string

const (
	Ground     FloorID = "ground-floor"
	First      FloorID = "first-floor"
	Restaurant FloorID = "restaurant-floor"
)

// Floors lists every floor, top to bottom, in the order the floor switcher shows them.
var Floors = []FloorID{Restaurant, First, Ground}

// ParseFloorID accepts a canonical floor id or its short alias ("ground", "first", "restaurant").
func ParseFloorID(s string) (FloorID, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "ground", "gf", string(Ground):
		return Ground, nil
	case "first", "1f", string(First):
		return First, nil
	case "restaurant", "rf", string(Restaurant):
		return Restaurant, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFloor, s)
}

// Valid reports whether f is one of the known floors.
func (f FloorID) Valid() bool {
	switch f {
	case Ground, First, Restaurant:
		return true
	}
	return false
}

// Short returns the floor switcher label.
func (f FloorID) Short() string {
	switch f {
	case Ground:
		return "GF"
	case First:
		return "1F"
	case Restaurant:
		return "RF"
	}
	return string(f)
}

// FeatureType is the semantic class of a Feature.
type FeatureType string

const (
	TypeRetail  FeatureType = "retail"
	TypeFood    FeatureType = "food"
	TypeFun     FeatureType = "fun"
	TypeBanking FeatureType = "banking"
	TypePath    FeatureType = "path"
	TypeEmpty   FeatureType = "empty"
	TypeOther   FeatureType = "other"
)

// ParseFeatureType maps an authored type string to a FeatureType. Unknown or
// missing values become TypeOther.
func ParseFeatureType(s string) FeatureType {
	switch t := FeatureType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeRetail, TypeFood, TypeFun, TypeBanking, TypePath, TypeEmpty:
		return t
	}
	return TypeOther
}

// IsBusiness reports whether the type denotes an interactive business unit.
func (t FeatureType) IsBusiness() bool {
	switch t {
	case TypeRetail, TypeFood, TypeFun, TypeBanking:
		return true
	}
	return false
}

// Icon is the amenity kind drawn as a flat icon on the floor.
type Icon string

// Vec2 is a planar coordinate. In a Feature it is expressed in authoring space.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Feature is one physical element of a floor plan.
type Feature struct {
	ID          string
	Type        FeatureType
	Name        string
	Description string
	Icon        Icon
	// Outline is the polygon's outer ring in authoring coordinates, without
	// the repeated closing vertex.
	Outline []Vec2
	// Floor is set once the feature has been placed on a floor.
	Floor FloorID
}

// IsAmenity reports whether the feature is an amenity (icon set, no business type).
func (f Feature) IsAmenity() bool {
	return f.Icon != "" && !f.Type.IsBusiness()
}
