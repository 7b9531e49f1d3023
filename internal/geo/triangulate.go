package geo

import (
	"errors"
	"fmt"

	"github.com/northwalk/floormap/pkg/floorplan"
)

// ErrDegeneratePolygon is returned when an outline encloses no area.
var ErrDegeneratePolygon = errors.New("degenerate polygon")

const areaEpsilon = 1e-9

// SignedArea returns the shoelace area of the outline. It is positive when the
// vertices run counter-clockwise in a y-up frame.
func SignedArea(outline []floorplan.Vec2) float64 {
	var a float64
	n := len(outline)
	for i := 0; i < n; i++ {
		p, q := outline[i], outline[(i+1)%n]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// Triangulate ear-clips a simple polygon outline and returns vertex index
// triples into outline. All triangles share the outline's winding.
func Triangulate(outline []floorplan.Vec2) ([][3]int, error) {
	n := len(outline)
	if n < 3 {
		return nil, fmt.Errorf("%w: %d vertices", ErrDegeneratePolygon, n)
	}
	area := SignedArea(outline)
	if area > -areaEpsilon && area < areaEpsilon {
		return nil, fmt.Errorf("%w: zero area", ErrDegeneratePolygon)
	}

	// Work on a counter-clockwise index ring and flip the output back if needed.
	idx := make([]int, n)
	for i := range idx {
		if area > 0 {
			idx[i] = i
		} else {
			idx[i] = n - 1 - i
		}
	}

	tris := make([][3]int, 0, n-2)
	for len(idx) > 3 {
		clipped := false
		for i := range idx {
			prev := idx[(i+len(idx)-1)%len(idx)]
			cur := idx[i]
			next := idx[(i+1)%len(idx)]
			if !isEar(outline, idx, prev, cur, next) {
				continue
			}
			tris = append(tris, [3]int{prev, cur, next})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// Self-touching or self-intersecting ring.
			return nil, fmt.Errorf("%w: no ear among %d remaining vertices", ErrDegeneratePolygon, len(idx))
		}
	}
	tris = append(tris, [3]int{idx[0], idx[1], idx[2]})

	if area < 0 {
		for i := range tris {
			tris[i][1], tris[i][2] = tris[i][2], tris[i][1]
		}
	}
	return tris, nil
}

func isEar(pts []floorplan.Vec2, ring []int, prev, cur, next int) bool {
	a, b, c := pts[prev], pts[cur], pts[next]
	if cross(a, b, c) <= areaEpsilon {
		return false
	}
	for _, j := range ring {
		if j == prev || j == cur || j == next {
			continue
		}
		p := pts[j]
		if p == a || p == b || p == c {
			continue
		}
		if PointInTriangle(p, a, b, c) {
			return false
		}
	}
	return true
}

func cross(a, b, c floorplan.Vec2) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// PointInTriangle reports whether p lies inside triangle abc or on its edges,
// for either winding.
func PointInTriangle(p, a, b, c floorplan.Vec2) bool {
	d1 := cross(a, b, p)
	d2 := cross(b, c, p)
	d3 := cross(c, a, p)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}
