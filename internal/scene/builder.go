package scene

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang/geo/r3"
	"github.com/northwalk/floormap/internal/assets"
	"github.com/northwalk/floormap/internal/geo"
	"github.com/northwalk/floormap/internal/resource"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// YouAreHereText is the kiosk marker's caption.
const YouAreHereText = "YOU ARE HERE"

// Build creates device objects for every feature through tr. Features whose
// outline cannot be triangulated are skipped with a warning. A device error
// aborts the build; objects created so far stay tracked by tr.
func Build(tr *resource.Tracker, p Profile, features []floorplan.Feature, log *slog.Logger) (*Scene, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Scene{
		Profile: p,
		tracker: tr,
		byID:    make(map[string][]EntityKey),
	}

	for _, f := range features {
		e, err := s.buildEntity(f)
		if errors.Is(err, geo.ErrDegeneratePolygon) {
			log.Warn("Skipping feature", "floor", p.Floor, "id", f.ID, "error", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		s.entities = append(s.entities, e)
		s.byID[f.ID] = append(s.byID[f.ID], e.Key)
	}

	if p.YouAreHere != nil {
		at := p.Offset.Apply(*p.YouAreHere)
		h, err := tr.Label(renderLabel("", YouAreHereText))
		if err != nil {
			return nil, fmt.Errorf("kiosk marker: %w", err)
		}
		s.labels = append(s.labels, LabelAnchor{
			Handle: h,
			Anchor: r3.Vector{X: at.X, Y: p.FeatureElevation, Z: at.Y},
		})
	}

	s.sortOrder()
	log.Debug("Scene built",
		"floor", p.Floor,
		"entities", len(s.entities),
		"labels", len(s.labels),
		"textureRequests", len(s.requests))
	return s, nil
}

func (s *Scene) buildEntity(f floorplan.Feature) (*Entity, error) {
	p := s.Profile
	tris, err := geo.Triangulate(f.Outline)
	if err != nil {
		return nil, err
	}

	elev := p.ElevationFor(f.Type, f.ID)
	verts := make([]r3.Vector, len(f.Outline))
	for i, v := range f.Outline {
		sp := p.Offset.Apply(v)
		verts[i] = r3.Vector{X: sp.X, Y: elev, Z: sp.Y}
	}
	indices := make([]uint32, 0, len(tris)*3)
	triangles := make([]Triangle, 0, len(tris))
	for _, t := range tris {
		indices = append(indices, uint32(t[0]), uint32(t[1]), uint32(t[2]))
		triangles = append(triangles, Triangle{verts[t[0]], verts[t[1]], verts[t[2]]})
	}

	c := p.Offset.Apply(geo.Centroid(f.Outline))
	e := &Entity{
		Key:       EntityKey(len(s.entities)),
		Kind:      KindOf(f),
		Feature:   f,
		Elevation: elev,
		Anchor:    r3.Vector{X: c.X, Y: elev, Z: c.Y},
		Triangles: triangles,
		Color:     p.ColorFor(f.Type, f.ID, s.selected),
	}

	if e.Surface, err = s.tracker.Mesh(verts, indices); err != nil {
		return nil, fmt.Errorf("surface for %s: %w", f.ID, err)
	}
	if e.Outline, err = s.tracker.Lines(verts, true); err != nil {
		return nil, fmt.Errorf("outline for %s: %w", f.ID, err)
	}

	switch k := e.Kind.(type) {
	case Business:
		if p.IsBackOfHouse(f.ID) {
			break
		}
		if e.Label, err = s.tracker.Label(renderLabel(k.ID, k.Name)); err != nil {
			return nil, fmt.Errorf("label for %s: %w", f.ID, err)
		}
		anchor := e.Anchor
		anchor.Y += p.LabelLift
		s.labels = append(s.labels, LabelAnchor{Handle: e.Label, ID: k.ID, Anchor: anchor})
		s.requests = append(s.requests, TextureRequest{
			Entity:   e.Key,
			Logo:     true,
			Key:      assets.LogoKey(k.ID),
			Fallback: assets.DefaultLogoKey,
		})
	case Amenity:
		s.requests = append(s.requests, TextureRequest{
			Entity:   e.Key,
			Key:      assets.IconKey(k.Icon),
			Fallback: assets.DefaultIconKey,
		})
	}
	return e, nil
}
