// Package picking resolves screen positions to floor entities and labels.
package picking

import (
	"log/slog"
	"math"

	"github.com/golang/geo/r3"

	"github.com/northwalk/floormap/internal/render"
	"github.com/northwalk/floormap/internal/scene"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// LabelRadius is how far in pixels from a label's anchor a tap still hits it.
const LabelRadius = 24

// Caster turns pixels into view rays.
type Caster interface {
	NDC(x, y float64) (ndcX, ndcY float64)
	Ray(ndcX, ndcY float64) (origin, dir r3.Vector)
}

// Hit is the nearest surface under a pointer.
type Hit struct {
	Entity   *scene.Entity
	Point    r3.Vector
	Distance float64
	// Icon is true when the hit landed on an amenity's icon plane.
	Icon bool
}

// Controller picks against the scene it was last bound to. The spatial index
// is rebuilt whenever the scene's pickable geometry changes.
type Controller struct {
	log     *slog.Logger
	scene   *scene.Scene
	version int
	planes  []*plane
}

// New creates an unbound controller.
func New(log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{log: log}
}

// Bind points the controller at s. A nil scene makes every pick miss.
func (c *Controller) Bind(s *scene.Scene) {
	c.scene = s
	c.planes = nil
	if s != nil {
		c.reindex()
	}
}

func (c *Controller) reindex() {
	c.version = c.scene.Version()
	c.planes = indexScene(c.scene)
	c.log.Debug("Picking index rebuilt", "floor", c.scene.Floor(), "planes", len(c.planes))
}

// Intersect returns the nearest surface under pixel (x, y).
func (c *Controller) Intersect(cam Caster, x, y float64) (Hit, bool) {
	if c.scene == nil {
		return Hit{}, false
	}
	if c.version != c.scene.Version() {
		c.reindex()
	}

	origin, dir := cam.Ray(cam.NDC(x, y))
	if dir.Y == 0 {
		return Hit{}, false
	}

	var (
		best  Hit
		found bool
	)
	for _, p := range c.planes {
		t := (p.elevation - origin.Y) / dir.Y
		if t < 0 || (found && t > best.Distance) {
			continue
		}
		at := origin.Add(dir.Mul(t))
		p.hits(at.X, at.Z, func(r record) bool {
			if found && t == best.Distance && r.key < best.Entity.Key {
				return true
			}
			e, _ := c.scene.Entity(r.key)
			best = Hit{Entity: e, Point: at, Distance: t, Icon: r.icon}
			found = true
			return true
		})
	}
	return best, found
}

// Pick returns the selectable id under pixel (x, y), "" on a miss or when the
// nearest surface is not a business or amenity.
func (c *Controller) Pick(cam Caster, x, y float64) string {
	hit, ok := c.Intersect(cam, x, y)
	if !ok {
		return ""
	}
	return scene.Selectable(hit.Entity.Kind)
}

// GroundPoint returns the authoring coordinate under pixel (x, y) on the
// floor's path plane.
func (c *Controller) GroundPoint(cam Caster, x, y float64) (floorplan.Vec2, bool) {
	if c.scene == nil {
		return floorplan.Vec2{}, false
	}
	origin, dir := cam.Ray(cam.NDC(x, y))
	if dir.Y == 0 {
		return floorplan.Vec2{}, false
	}
	t := (c.scene.Profile.PathElevation - origin.Y) / dir.Y
	if t < 0 {
		return floorplan.Vec2{}, false
	}
	at := origin.Add(dir.Mul(t))
	return c.scene.Profile.Offset.Invert(floorplan.Vec2{X: at.X, Y: at.Z}), true
}

// LabelAt returns the id of the nearest visible business label within
// LabelRadius of (x, y).
func LabelAt(overlays []render.Overlay, x, y float64) string {
	id := ""
	best := math.Inf(1)
	for _, o := range overlays {
		if !o.Visible || o.ID == "" {
			continue
		}
		d := math.Hypot(o.X-x, o.Y-y)
		if d <= LabelRadius && d < best {
			best, id = d, o.ID
		}
	}
	return id
}
