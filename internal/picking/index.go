package picking

import (
	"errors"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/peterstace/simplefeatures/rtree"

	"github.com/northwalk/floormap/internal/geo"
	"github.com/northwalk/floormap/internal/scene"
	"github.com/northwalk/floormap/pkg/floorplan"
)

var errStop = errors.New("stop")

type record struct {
	key  scene.EntityKey
	tri  scene.Triangle
	icon bool
}

// plane holds every pickable triangle lying at one elevation.
type plane struct {
	elevation float64
	records   []record
	tree      *rtree.RTree
}

func (p *plane) build() {
	items := make([]rtree.BulkItem, len(p.records))
	for i, r := range p.records {
		items[i] = rtree.BulkItem{Box: triangleBox(r.tri), RecordID: i}
	}
	p.tree = rtree.BulkLoad(items)
}

// hits calls fn for each record whose triangle contains (x, z).
func (p *plane) hits(x, z float64, fn func(record) bool) {
	if p.tree == nil {
		return
	}
	pt := floorplan.Vec2{X: x, Y: z}
	_ = p.tree.RangeSearch(rtree.Box{MinX: x, MinY: z, MaxX: x, MaxY: z}, func(id int) error {
		r := p.records[id]
		if !geo.PointInTriangle(pt, flat(r.tri[0]), flat(r.tri[1]), flat(r.tri[2])) {
			return nil
		}
		if !fn(r) {
			return errStop
		}
		return nil
	})
}

// flat drops the elevation of a scene vertex onto the ground plane.
func flat(v r3.Vector) floorplan.Vec2 {
	return floorplan.Vec2{X: v.X, Y: v.Z}
}

func triangleBox(t scene.Triangle) rtree.Box {
	b := rtree.Box{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, v := range t {
		b.MinX = math.Min(b.MinX, v.X)
		b.MaxX = math.Max(b.MaxX, v.X)
		b.MinY = math.Min(b.MinY, v.Z)
		b.MaxY = math.Max(b.MaxY, v.Z)
	}
	return b
}

// indexScene groups every surface and icon triangle by elevation, highest first.
func indexScene(s *scene.Scene) []*plane {
	byElevation := make(map[float64]*plane)
	add := func(elev float64, r record) {
		p, ok := byElevation[elev]
		if !ok {
			p = &plane{elevation: elev}
			byElevation[elev] = p
		}
		p.records = append(p.records, r)
	}
	for _, e := range s.Entities() {
		for _, t := range e.Triangles {
			add(e.Elevation, record{key: e.Key, tri: t})
		}
		for _, t := range e.IconTriangles {
			add(t[0].Y, record{key: e.Key, tri: t, icon: true})
		}
	}

	planes := make([]*plane, 0, len(byElevation))
	for _, p := range byElevation {
		p.build()
		planes = append(planes, p)
	}
	sort.Slice(planes, func(i, j int) bool { return planes[i].elevation > planes[j].elevation })
	return planes
}
