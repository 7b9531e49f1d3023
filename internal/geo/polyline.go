package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/northwalk/floormap/pkg/floorplan"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrInvalidWaypoints is returned when an ad-hoc waypoint list cannot form a route.
var ErrInvalidWaypoints = errors.New("invalid waypoints")

// ParseWaypoints reads an ad-hoc route written as "[[x,y],[x,y],...]" in
// authoring coordinates. Every point must be an exact pair inside
// AuthoringBounds and the route needs at least two points.
func ParseWaypoints(input string) ([]floorplan.Waypoint, error) {
	var pairs [][]float64
	if err := json.Unmarshal([]byte(input), &pairs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWaypoints, err)
	}
	if len(pairs) < 2 {
		return nil, fmt.Errorf("%w: need 2 points, got %d", ErrInvalidWaypoints, len(pairs))
	}
	out := make([]floorplan.Waypoint, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: point %d has %d values", ErrInvalidWaypoints, i, len(pair))
		}
		wp := floorplan.Waypoint{X: pair[0], Y: pair[1]}
		if !AuthoringBounds.Contains(wp) {
			return nil, fmt.Errorf("%w: point %d (%g, %g) is off the floor", ErrInvalidWaypoints, i, wp.X, wp.Y)
		}
		out = append(out, wp)
	}
	return out, nil
}

// LineString builds a simplefeatures line string through pts.
func LineString(pts []floorplan.Vec2) (geom.LineString, error) {
	flat := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		flat = append(flat, p.X, p.Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// PathLength returns the planar length of the polyline through pts.
func PathLength(pts []floorplan.Vec2) (float64, error) {
	if len(pts) < 2 {
		return 0, nil
	}
	ls, err := LineString(pts)
	if err != nil {
		return 0, fmt.Errorf("path length: %w", err)
	}
	return ls.Length(), nil
}

// Resample subdivides every consecutive pair of pts into equal segments of at
// least spacing each (floor(|ab| / spacing) of them), but never fewer than
// minSegments per pair, so short pairs get segments shorter than spacing. Shared
// joints appear once. A single point is returned unchanged.
func Resample(pts []floorplan.Vec2, spacing float64, minSegments int) []floorplan.Vec2 {
	if len(pts) < 2 {
		return append([]floorplan.Vec2(nil), pts...)
	}
	out := []floorplan.Vec2{pts[0]}
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		n := SegmentCount(a, b, spacing, minSegments)
		for k := 1; k <= n; k++ {
			t := float64(k) / float64(n)
			out = append(out, floorplan.Vec2{
				X: a.X + (b.X-a.X)*t,
				Y: a.Y + (b.Y-a.Y)*t,
			})
		}
	}
	return out
}

// SegmentCount is the number of equal segments Resample splits a..b into:
// max(floor(|ab| / spacing), minSegments).
func SegmentCount(a, b floorplan.Vec2, spacing float64, minSegments int) int {
	n := 0
	if spacing > 0 {
		n = int(math.Floor(math.Hypot(b.X-a.X, b.Y-a.Y) / spacing))
	}
	return max(n, minSegments, 1)
}
