// Package geo converts floor-plan geometry between authoring space and scene
// space and provides the planar helpers the scene, picking and route packages
// share: triangulation, centroids, resampling and path length.
package geo

import (
	"github.com/northwalk/floormap/pkg/floorplan"
)

// Authoring space is the 1920x1080 pixel grid the floor plans were drawn on.
// Scene space is centred on the middle of that grid.

// Offset is subtracted from authoring coordinates to centre a floor on the scene origin.
type Offset struct {
	X float64 `toml:"x" json:"x"`
	Y float64 `toml:"y" json:"y"`
}

// DefaultOffset centres the authoring grid.
var DefaultOffset = Offset{X: 960, Y: 540}

// Apply maps an authoring coordinate to the scene ground plane.
func (o Offset) Apply(p floorplan.Vec2) floorplan.Vec2 {
	return floorplan.Vec2{X: p.X - o.X, Y: p.Y - o.Y}
}

// Invert maps a scene ground-plane coordinate back to authoring space.
func (o Offset) Invert(p floorplan.Vec2) floorplan.Vec2 {
	return floorplan.Vec2{X: p.X + o.X, Y: p.Y + o.Y}
}

// Bounds is an axis-aligned rectangle in authoring space.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// AuthoringBounds is the drawable area of every floor plan.
var AuthoringBounds = Bounds{MinX: 0, MinY: 0, MaxX: 1920, MaxY: 1080}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p floorplan.Vec2) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// BoundsOf returns the bounding box of pts. The zero Bounds is returned for no points.
func BoundsOf(pts []floorplan.Vec2) Bounds {
	if len(pts) == 0 {
		return Bounds{}
	}
	b := Bounds{MinX: pts[0].X, MinY: pts[0].Y, MaxX: pts[0].X, MaxY: pts[0].Y}
	for _, p := range pts[1:] {
		b.MinX = min(b.MinX, p.X)
		b.MinY = min(b.MinY, p.Y)
		b.MaxX = max(b.MaxX, p.X)
		b.MaxY = max(b.MaxY, p.Y)
	}
	return b
}
