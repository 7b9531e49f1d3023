package geo

import (
	"errors"
	"testing"

	"github.com/northwalk/floormap/pkg/floorplan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triArea(outline []floorplan.Vec2, tris [][3]int) float64 {
	var sum float64
	for _, tr := range tris {
		sum += SignedArea([]floorplan.Vec2{outline[tr[0]], outline[tr[1]], outline[tr[2]]})
	}
	return sum
}

func TestTriangulate_Square(t *testing.T) {
	sq := []floorplan.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	tris, err := Triangulate(sq)
	require.NoError(t, err)
	assert.Len(t, tris, 2)
	assert.InDelta(t, 100.0, triArea(sq, tris), 1e-9)
}

func TestTriangulate_ClockwiseKeepsWinding(t *testing.T) {
	sq := []floorplan.Vec2{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}}
	tris, err := Triangulate(sq)
	require.NoError(t, err)
	assert.InDelta(t, -100.0, triArea(sq, tris), 1e-9)
}

func TestTriangulate_Concave(t *testing.T) {
	// L-shaped unit.
	l := []floorplan.Vec2{
		{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 10},
		{X: 10, Y: 10}, {X: 10, Y: 20}, {X: 0, Y: 20},
	}
	tris, err := Triangulate(l)
	require.NoError(t, err)
	assert.Len(t, tris, 4)
	assert.InDelta(t, SignedArea(l), triArea(l, tris), 1e-9)

	// The notch is not covered.
	notch := floorplan.Vec2{X: 15, Y: 15}
	for _, tr := range tris {
		assert.False(t, PointInTriangle(notch, l[tr[0]], l[tr[1]], l[tr[2]]))
	}
}

func TestTriangulate_Degenerate(t *testing.T) {
	_, err := Triangulate([]floorplan.Vec2{{X: 0, Y: 0}, {X: 1, Y: 1}})
	assert.True(t, errors.Is(err, ErrDegeneratePolygon))

	_, err = Triangulate([]floorplan.Vec2{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}})
	assert.True(t, errors.Is(err, ErrDegeneratePolygon))
}

func TestTriangulate_SelfTouchingRingFails(t *testing.T) {
	// two squares sharing the corner at the origin
	ring := []floorplan.Vec2{
		{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2},
		{X: 0, Y: 0}, {X: -2, Y: 0}, {X: -2, Y: -2}, {X: 0, Y: -2},
	}
	tris, err := Triangulate(ring)
	assert.True(t, errors.Is(err, ErrDegeneratePolygon))
	assert.Nil(t, tris)
}

func TestPointInTriangle(t *testing.T) {
	a, b, c := floorplan.Vec2{X: 0, Y: 0}, floorplan.Vec2{X: 10, Y: 0}, floorplan.Vec2{X: 0, Y: 10}
	assert.True(t, PointInTriangle(floorplan.Vec2{X: 2, Y: 2}, a, b, c))
	assert.True(t, PointInTriangle(floorplan.Vec2{X: 5, Y: 0}, a, b, c))
	assert.True(t, PointInTriangle(floorplan.Vec2{X: 2, Y: 2}, a, c, b))
	assert.False(t, PointInTriangle(floorplan.Vec2{X: 6, Y: 6}, a, b, c))
}
