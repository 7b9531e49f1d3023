package geo

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/northwalk/floormap/pkg/floorplan"
	geom "github.com/peterstace/simplefeatures/geom"
)

// SkippedFeature records a GeoJSON feature that could not become a floorplan.Feature.
type SkippedFeature struct {
	Index  int
	ID     string
	Reason string
}

// Document is the parsed content of one floor document.
type Document struct {
	Features []floorplan.Feature
	Skipped  []SkippedFeature
}

// ParseFloorDocument decodes a GeoJSON FeatureCollection. Only Polygon
// geometries are kept, using their outer ring; other features are reported in
// Document.Skipped rather than failing the whole document.
func ParseFloorDocument(data []byte) (Document, error) {
	var fc geom.GeoJSONFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return Document{}, fmt.Errorf("failed to parse floor document: %w", err)
	}

	var doc Document
	for i, f := range fc {
		id := propString(f.Properties, "id")
		if id == "" {
			id = idString(f.ID)
		}
		if id == "" {
			doc.Skipped = append(doc.Skipped, SkippedFeature{Index: i, Reason: "missing id"})
			continue
		}
		if f.Geometry.Type() != geom.TypePolygon {
			doc.Skipped = append(doc.Skipped, SkippedFeature{
				Index:  i,
				ID:     id,
				Reason: fmt.Sprintf("unsupported geometry %s", f.Geometry.Type()),
			})
			continue
		}
		poly, ok := f.Geometry.AsPolygon()
		if !ok {
			doc.Skipped = append(doc.Skipped, SkippedFeature{Index: i, ID: id, Reason: "geometry is not a polygon"})
			continue
		}
		outline := OuterRing(poly)
		if len(outline) < 3 {
			doc.Skipped = append(doc.Skipped, SkippedFeature{Index: i, ID: id, Reason: "ring has fewer than 3 vertices"})
			continue
		}
		if _, err := Polygon(outline); err != nil {
			doc.Skipped = append(doc.Skipped, SkippedFeature{Index: i, ID: id, Reason: err.Error()})
			continue
		}
		doc.Features = append(doc.Features, floorplan.Feature{
			ID:          id,
			Type:        floorplan.ParseFeatureType(propString(f.Properties, "type")),
			Name:        propString(f.Properties, "name"),
			Description: propString(f.Properties, "description"),
			Icon:        floorplan.Icon(propString(f.Properties, "icon")),
			Outline:     outline,
		})
	}
	return doc, nil
}

// OuterRing returns the exterior ring of poly without its closing vertex.
func OuterRing(poly geom.Polygon) []floorplan.Vec2 {
	seq := poly.ExteriorRing().Coordinates()
	n := seq.Length()
	out := make([]floorplan.Vec2, 0, n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		out = append(out, floorplan.Vec2{X: xy.X, Y: xy.Y})
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// Polygon builds a single-ring simplefeatures polygon from an open outline.
// Rings simplefeatures rejects, such as self-intersecting ones, return an error.
func Polygon(outline []floorplan.Vec2) (geom.Polygon, error) {
	flat := make([]float64, 0, (len(outline)+1)*2)
	for _, p := range outline {
		flat = append(flat, p.X, p.Y)
	}
	if len(outline) > 0 {
		flat = append(flat, outline[0].X, outline[0].Y)
	}
	ring, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("invalid ring: %w", err)
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring})
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("invalid polygon: %w", err)
	}
	return poly, nil
}

// Centroid returns the area centroid of the outline. Degenerate or invalid
// outlines fall back to the mean of their vertices.
func Centroid(outline []floorplan.Vec2) floorplan.Vec2 {
	if len(outline) >= 3 && SignedArea(outline) != 0 {
		if poly, err := Polygon(outline); err == nil {
			if xy, ok := poly.Centroid().XY(); ok {
				return floorplan.Vec2{X: xy.X, Y: xy.Y}
			}
		}
	}
	var c floorplan.Vec2
	if len(outline) == 0 {
		return c
	}
	for _, p := range outline {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= float64(len(outline))
	c.Y /= float64(len(outline))
	return c
}

func propString(props map[string]interface{}, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	return idString(v)
}

func idString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
