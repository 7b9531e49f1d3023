package picking

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/northwalk/floormap/internal/camera"
	"github.com/northwalk/floormap/internal/render"
	"github.com/northwalk/floormap/internal/render/headless"
	"github.com/northwalk/floormap/internal/resource"
	"github.com/northwalk/floormap/internal/scene"
	"github.com/northwalk/floormap/pkg/floorplan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(x, y, size float64) []floorplan.Vec2 {
	return []floorplan.Vec2{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
}

// Features sit around the authoring centre so the home view sees them all.
func setup(t *testing.T) (*Controller, *scene.Scene, *camera.Rig, *resource.Tracker) {
	t.Helper()
	features := []floorplan.Feature{
		{ID: "corridor", Type: floorplan.TypePath, Outline: square(760, 340, 400)},
		{ID: "bata", Type: floorplan.TypeRetail, Name: "Bata", Outline: square(900, 480, 120)},
		{ID: "lift1", Type: floorplan.TypeOther, Icon: "lift", Outline: square(1100, 640, 20)},
	}
	tr := resource.NewTracker(headless.New())
	s, err := scene.Build(tr, scene.DefaultProfile(floorplan.First), features, nil)
	require.NoError(t, err)

	c := New(nil)
	c.Bind(s)
	return c, s, camera.New(1280, 720), tr
}

func pixelOf(cam *camera.Rig, p r3.Vector) (float64, float64) {
	x, y, _ := cam.Project(p)
	return x, y
}

func TestPick_Business(t *testing.T) {
	c, s, cam, _ := setup(t)
	bata := s.Lookup("bata")[0]

	x, y := pixelOf(cam, bata.Anchor)
	assert.Equal(t, "bata", c.Pick(cam, x, y))

	hit, ok := c.Intersect(cam, x, y)
	require.True(t, ok)
	assert.InDelta(t, bata.Anchor.X, hit.Point.X, 1e-6)
	assert.InDelta(t, bata.Anchor.Z, hit.Point.Z, 1e-6)
}

func TestPick_StructuralReportsNothing(t *testing.T) {
	c, _, cam, _ := setup(t)
	x, y := pixelOf(cam, r3.Vector{X: -150, Y: 0, Z: -150})

	hit, ok := c.Intersect(cam, x, y)
	require.True(t, ok)
	assert.Equal(t, "corridor", hit.Entity.ID())
	assert.Equal(t, "", c.Pick(cam, x, y))
}

func TestPick_Miss(t *testing.T) {
	c, _, cam, _ := setup(t)
	x, y := pixelOf(cam, r3.Vector{X: 350, Y: 0, Z: 350})

	_, ok := c.Intersect(cam, x, y)
	assert.False(t, ok)
	assert.Equal(t, "", c.Pick(cam, x, y))
}

func TestPick_IconPlaneExtendsAmenity(t *testing.T) {
	c, s, cam, tr := setup(t)
	lift := s.Lookup("lift1")[0]

	// the lift outline is 20 wide, its icon plane 80
	p := lift.Anchor
	p.X += 30
	x, y := pixelOf(cam, p)
	assert.NotEqual(t, "lift1", c.Pick(cam, x, y))

	tex, err := tr.Texture("icons/elevator.svg", []byte("<svg/>"))
	require.NoError(t, err)
	require.NoError(t, s.AttachIcon(lift.Key, tex))

	p.Y = lift.Elevation + s.Profile.IconLift
	x, y = pixelOf(cam, p)
	hit, ok := c.Intersect(cam, x, y)
	require.True(t, ok)
	assert.True(t, hit.Icon)
	assert.Equal(t, "lift1", c.Pick(cam, x, y))
}

func TestPick_Unbound(t *testing.T) {
	c := New(nil)
	assert.Equal(t, "", c.Pick(camera.New(100, 100), 50, 50))
	_, ok := c.GroundPoint(camera.New(100, 100), 50, 50)
	assert.False(t, ok)
}

func TestGroundPoint_ReturnsAuthoringCoordinates(t *testing.T) {
	c, _, cam, _ := setup(t)
	x, y := pixelOf(cam, r3.Vector{X: 40, Y: 0, Z: -20})

	pt, ok := c.GroundPoint(cam, x, y)
	require.True(t, ok)
	assert.InDelta(t, 1000, pt.X, 1e-6)
	assert.InDelta(t, 520, pt.Y, 1e-6)
}

func TestLabelAt(t *testing.T) {
	overlays := []render.Overlay{
		{ID: "bata", X: 100, Y: 100, Visible: true},
		{ID: "kfc", X: 110, Y: 100, Visible: true},
		{ID: "hidden", X: 200, Y: 200, Visible: false},
		{ID: "", X: 300, Y: 300, Visible: true},
	}
	assert.Equal(t, "kfc", LabelAt(overlays, 108, 100))
	assert.Equal(t, "bata", LabelAt(overlays, 90, 100))
	assert.Equal(t, "", LabelAt(overlays, 200, 200))
	assert.Equal(t, "", LabelAt(overlays, 300, 300))
	assert.Equal(t, "", LabelAt(overlays, 500, 500))
}

func TestPlaneHits_UsesGroundCoordinates(t *testing.T) {
	tri := scene.Triangle{{X: 0, Y: 3, Z: 0}, {X: 10, Y: 3, Z: 0}, {X: 0, Y: 3, Z: 10}}
	p := &plane{elevation: 3, records: []record{{key: 1, tri: tri}}}
	p.build()

	var got []scene.EntityKey
	p.hits(2, 2, func(r record) bool {
		got = append(got, r.key)
		return true
	})
	assert.Equal(t, []scene.EntityKey{1}, got)

	got = nil
	p.hits(8, 8, func(r record) bool {
		got = append(got, r.key)
		return true
	})
	assert.Empty(t, got)
}
