// Package scene turns a floor's features into device objects and keeps the
// per-entity state the picker, the selection and the frame builder need.
package scene

import (
	"fmt"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/northwalk/floormap/internal/render"
	"github.com/northwalk/floormap/internal/resource"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// Viewer projects world positions to the screen.
type Viewer interface {
	Project(p r3.Vector) (x, y float64, visible bool)
	OnScreen(p r3.Vector) bool
}

// LabelAnchor is a screen-space overlay attached to a world position.
type LabelAnchor struct {
	Handle render.Handle
	// ID is the business id, "" for the non-interactive kiosk marker.
	ID     string
	Anchor r3.Vector
}

// TextureRequest asks the engine to fetch a texture for an entity.
type TextureRequest struct {
	Entity EntityKey
	// Logo is true for label logos, false for amenity icons.
	Logo     bool
	Key      string
	Fallback string
}

// Scene is one floor's built geometry.
type Scene struct {
	Profile Profile

	tracker  *resource.Tracker
	entities []*Entity
	byID     map[string][]EntityKey
	order    []EntityKey
	labels   []LabelAnchor
	requests []TextureRequest
	selected string
	version  int
}

// Floor returns the scene's floor.
func (s *Scene) Floor() floorplan.FloorID {
	return s.Profile.Floor
}

// Entities returns every entity in key order.
func (s *Scene) Entities() []*Entity {
	return s.entities
}

// Entity returns the entity with key k.
func (s *Scene) Entity(k EntityKey) (*Entity, bool) {
	if k < 0 || int(k) >= len(s.entities) {
		return nil, false
	}
	return s.entities[k], true
}

// Lookup returns every entity whose feature id is id.
func (s *Scene) Lookup(id string) []*Entity {
	keys := s.byID[id]
	out := make([]*Entity, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.entities[k])
	}
	return out
}

// Has reports whether a feature with id exists on the floor.
func (s *Scene) Has(id string) bool {
	return len(s.byID[id]) > 0
}

// Selected returns the id currently highlighted, "" for none.
func (s *Scene) Selected() string {
	return s.selected
}

// Version changes whenever pickable geometry is added.
func (s *Scene) Version() int {
	return s.version
}

// ApplySelection recolours every entity for the selection id without
// rebuilding geometry and returns how many entities changed colour.
func (s *Scene) ApplySelection(id string) int {
	s.selected = id
	changed := 0
	for _, e := range s.entities {
		c := s.Profile.ColorFor(e.Feature.Type, e.Feature.ID, id)
		if c != e.Color {
			e.Color = c
			changed++
		}
	}
	return changed
}

// TakeRequests returns the outstanding texture requests and forgets them.
func (s *Scene) TakeRequests() []TextureRequest {
	r := s.requests
	s.requests = nil
	return r
}

// Labels returns the label anchors, business labels first.
func (s *Scene) Labels() []LabelAnchor {
	return s.labels
}

// AttachLogo puts a loaded logo texture on the entity's label.
func (s *Scene) AttachLogo(k EntityKey, tex render.Handle) error {
	e, ok := s.Entity(k)
	if !ok || e.Label == 0 {
		return fmt.Errorf("entity %d has no label", k)
	}
	return s.tracker.Device().SetLabelLogo(e.Label, tex)
}

// AttachIcon creates the amenity's flat icon plane textured with tex. A
// second call for the same entity is a no-op.
func (s *Scene) AttachIcon(k EntityKey, tex render.Handle) error {
	e, ok := s.Entity(k)
	if !ok {
		return fmt.Errorf("unknown entity %d", k)
	}
	if e.Icon != 0 {
		return nil
	}
	half := s.Profile.IconSize / 2
	c := e.Anchor
	c.Y = e.Elevation + s.Profile.IconLift
	verts := []r3.Vector{
		{X: c.X - half, Y: c.Y, Z: c.Z - half},
		{X: c.X + half, Y: c.Y, Z: c.Z - half},
		{X: c.X + half, Y: c.Y, Z: c.Z + half},
		{X: c.X - half, Y: c.Y, Z: c.Z + half},
	}
	h, err := s.tracker.Mesh(verts, []uint32{0, 1, 2, 0, 2, 3})
	if err != nil {
		return fmt.Errorf("icon plane for %s: %w", e.ID(), err)
	}
	e.Icon = h
	e.IconTexture = tex
	e.IconTriangles = []Triangle{
		{verts[0], verts[1], verts[2]},
		{verts[0], verts[2], verts[3]},
	}
	s.version++
	return nil
}

// Items returns the scene's drawables, lowest surfaces first, icon planes last.
func (s *Scene) Items() []render.Item {
	items := make([]render.Item, 0, len(s.entities)*2)
	for _, k := range s.order {
		e := s.entities[k]
		items = append(items,
			render.Item{Handle: e.Surface, Material: render.Material{Color: e.Color, Opacity: 1}, DrawCount: -1},
			render.Item{Handle: e.Outline, Material: render.Material{Color: s.Profile.Palette.Outline, Opacity: 1}, DrawCount: -1},
		)
	}
	for _, k := range s.order {
		e := s.entities[k]
		if e.Icon == 0 {
			continue
		}
		items = append(items, render.Item{
			Handle:    e.Icon,
			Material:  render.Material{Color: 0xffffff, Opacity: 1, Texture: e.IconTexture},
			DrawCount: -1,
		})
	}
	return items
}

// Overlays projects every label for this frame.
func (s *Scene) Overlays(v Viewer) []render.Overlay {
	out := make([]render.Overlay, 0, len(s.labels))
	for _, l := range s.labels {
		x, y, _ := v.Project(l.Anchor)
		out = append(out, render.Overlay{
			Handle:  l.Handle,
			ID:      l.ID,
			X:       x,
			Y:       y,
			Visible: v.OnScreen(l.Anchor),
		})
	}
	return out
}

func (s *Scene) sortOrder() {
	s.order = make([]EntityKey, len(s.entities))
	for i := range s.entities {
		s.order[i] = EntityKey(i)
	}
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.entities[s.order[i]].Elevation < s.entities[s.order[j]].Elevation
	})
}
