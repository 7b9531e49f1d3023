package camera

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_HomePose(t *testing.T) {
	r := New(1600, 900)
	assert.Equal(t, HomePosition, r.Position)
	assert.Equal(t, r3.Vector{}, r.Target)
	assert.Equal(t, 1.0, r.Zoom)

	halfW, halfH := r.HalfExtents()
	assert.InDelta(t, 800.0, halfW, 1e-9)
	assert.Equal(t, 450.0, halfH)
}

func TestResize_ZeroAreaIgnored(t *testing.T) {
	r := New(800, 600)
	assert.False(t, r.Resize(0, 600))
	assert.False(t, r.Resize(800, 0))
	w, h := r.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	assert.True(t, r.Resize(1000, 500))
	assert.InDelta(t, 2.0, r.Aspect(), 1e-9)
}

func TestProject_TargetAtCentre(t *testing.T) {
	r := New(1000, 500)
	x, y, vis := r.Project(r3.Vector{})
	require.True(t, vis)
	assert.InDelta(t, 500, x, 1e-6)
	assert.InDelta(t, 250, y, 1e-6)
	assert.True(t, r.OnScreen(r3.Vector{}))
	assert.False(t, r.OnScreen(r3.Vector{X: 5000}))
}

func TestRay_HitsProjectedPoint(t *testing.T) {
	r := New(1280, 720)
	p := r3.Vector{X: 120, Y: 2, Z: -80}
	ndcX, ndcY, _ := r.ProjectNDC(p)

	origin, dir := r.Ray(ndcX, ndcY)
	// Walk the ray to p's depth; it must land on p.
	tHit := p.Sub(origin).Dot(dir)
	hit := origin.Add(dir.Mul(tHit))
	assert.InDelta(t, 0, hit.Sub(p).Norm(), 1e-6)
}

func TestNDC_RoundTrip(t *testing.T) {
	r := New(800, 400)
	nx, ny := r.NDC(0, 0)
	assert.Equal(t, -1.0, nx)
	assert.Equal(t, 1.0, ny)
	nx, ny = r.NDC(400, 200)
	assert.Equal(t, 0.0, nx)
	assert.Equal(t, 0.0, ny)
}

func TestOrbit_DampedAndClamped(t *testing.T) {
	r := New(800, 600)
	r.Orbit(0, -10) // push hard towards the horizon
	for i := 0; i < 200 && r.Update(); i++ {
	}
	assert.InDelta(t, MaxPolarAngle, r.PolarAngle(), 1e-6)
	assert.False(t, r.Moving())

	r.Orbit(0, 10)
	for i := 0; i < 200 && r.Update(); i++ {
	}
	assert.InDelta(t, MinPolarAngle, r.PolarAngle(), 1e-6)
}

func TestOrbit_FirstStepIsDampingFraction(t *testing.T) {
	r := New(800, 600)
	start := math.Atan2(r.Position.X, r.Position.Z)
	r.Orbit(-0.2, 0)
	require.True(t, r.Update())
	now := math.Atan2(r.Position.X, r.Position.Z)
	assert.InDelta(t, 0.2*DampingFactor, now-start, 1e-9)

	// Radius is preserved.
	assert.InDelta(t, HomePosition.Norm(), r.Position.Norm(), 1e-6)
}

func TestPan_MovesTarget(t *testing.T) {
	r := New(800, 600)
	r.Pan(100, 0)
	for i := 0; i < 500 && r.Update(); i++ {
	}
	right, _, _ := r.Basis()
	// Dragging right moves the target left along the camera's right axis.
	assert.Less(t, r.Target.Dot(right), 0.0)
	halfW, _ := r.HalfExtents()
	assert.InDelta(t, 100*2*halfW/800, r.Target.Norm(), 1e-3)
}

func TestZoomBy_Clamped(t *testing.T) {
	r := New(800, 600)
	r.ZoomBy(10)
	assert.Equal(t, MaxZoom, r.Zoom)
	r.ZoomBy(0.01)
	assert.Equal(t, MinZoom, r.Zoom)
	r.ZoomBy(-1)
	assert.Equal(t, MinZoom, r.Zoom)
}

func TestReset_ClearsPendingMotion(t *testing.T) {
	r := New(800, 600)
	r.Orbit(1, 0.3)
	r.Pan(40, 40)
	r.ZoomBy(1.5)
	r.Update()

	r.Reset()
	assert.Equal(t, HomePosition, r.Position)
	assert.Equal(t, 1.0, r.Zoom)
	assert.False(t, r.Moving())
	assert.False(t, r.Update())
}
