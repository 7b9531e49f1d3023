package scene

import (
	"github.com/golang/geo/r3"
	"github.com/northwalk/floormap/internal/render"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// EntityKey identifies an entity within one Scene. Keys are dense and stable
// for the scene's lifetime.
type EntityKey int

// EntityKind is the semantic class of an entity: Business, Amenity or Structural.
type EntityKind interface {
	EntityID() string
	isKind()
}

// Business is a retail, food, fun or banking unit.
type Business struct {
	ID   string
	Name string
	Type floorplan.FeatureType
}

// Amenity is a lift, staircase, toilet and the like.
type Amenity struct {
	ID   string
	Icon floorplan.Icon
}

// Structural is everything else: walls, corridors, empty units.
type Structural struct {
	ID   string
	Type floorplan.FeatureType
}

func (b Business) EntityID() string   { return b.ID }
func (a Amenity) EntityID() string    { return a.ID }
func (s Structural) EntityID() string { return s.ID }

func (Business) isKind()   {}
func (Amenity) isKind()    {}
func (Structural) isKind() {}

// KindOf classifies a feature.
func KindOf(f floorplan.Feature) EntityKind {
	switch {
	case f.Type.IsBusiness():
		return Business{ID: f.ID, Name: f.Name, Type: f.Type}
	case f.IsAmenity():
		return Amenity{ID: f.ID, Icon: f.Icon}
	default:
		return Structural{ID: f.ID, Type: f.Type}
	}
}

// Selectable returns the id a pick on the entity reports, "" when the entity
// is not selectable.
func Selectable(k EntityKind) string {
	switch v := k.(type) {
	case Business:
		return v.ID
	case Amenity:
		return v.ID
	}
	return ""
}

// Triangle is a world-space triangle on a horizontal plane.
type Triangle [3]r3.Vector

// Entity is one rendered feature.
type Entity struct {
	Key     EntityKey
	Kind    EntityKind
	Feature floorplan.Feature

	Elevation float64
	// Anchor is the centroid of the outline at the surface's elevation.
	Anchor    r3.Vector
	Triangles []Triangle
	Color     render.Color

	Surface render.Handle
	Outline render.Handle
	// Label is the business overlay, zero when none.
	Label render.Handle
	// Icon is the amenity icon plane, zero until its texture has loaded.
	Icon          render.Handle
	IconTexture   render.Handle
	IconTriangles []Triangle
}

// ID returns the feature id.
func (e *Entity) ID() string {
	return e.Feature.ID
}
