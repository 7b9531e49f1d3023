// Package camera implements the orthographic orbit camera the map is viewed
// through. Motion requested by input is damped: each Update applies a fixed
// fraction of the outstanding motion.
package camera

import (
	"math"

	"github.com/golang/geo/r3"
)

const (
	// FrustumHalfHeight is the vertical half extent of the view at zoom 1.
	FrustumHalfHeight = 450.0
	Near              = 1.0
	Far               = 5000.0

	DampingFactor = 0.15
	MinPolarAngle = 0.05
	MaxPolarAngle = math.Pi / 2.5
	MinZoom       = 0.5
	MaxZoom       = 2.0

	motionEpsilon = 1e-6
)

var (
	// HomePosition is where Reset puts the camera.
	HomePosition = r3.Vector{X: 800, Y: 500, Z: 800}
	worldUp      = r3.Vector{X: 0, Y: 1, Z: 0}
)

// Rig is an orthographic camera orbiting a target point.
type Rig struct {
	Position r3.Vector
	Target   r3.Vector
	Zoom     float64

	width, height int

	dTheta, dPhi float64
	panOffset    r3.Vector
}

// New creates a rig for a viewport of w by h pixels, at its home pose.
func New(w, h int) *Rig {
	r := &Rig{width: 1, height: 1}
	r.Resize(w, h)
	r.Reset()
	return r
}

// Reset returns the camera to its home pose and drops pending motion.
func (r *Rig) Reset() {
	r.Position = HomePosition
	r.Target = r3.Vector{}
	r.Zoom = 1
	r.dTheta, r.dPhi = 0, 0
	r.panOffset = r3.Vector{}
}

// Resize sets the viewport size. A zero-area size is ignored and Resize
// returns false.
func (r *Rig) Resize(w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	r.width, r.height = w, h
	return true
}

// Size returns the viewport size in pixels.
func (r *Rig) Size() (w, h int) {
	return r.width, r.height
}

// Aspect is width over height.
func (r *Rig) Aspect() float64 {
	return float64(r.width) / float64(r.height)
}

// HalfExtents returns the frustum half width and half height at zoom 1.
func (r *Rig) HalfExtents() (halfW, halfH float64) {
	return FrustumHalfHeight * r.Aspect(), FrustumHalfHeight
}

// Orbit queues a rotation: dTheta around the vertical axis, dPhi towards
// the pole, both in radians.
func (r *Rig) Orbit(dTheta, dPhi float64) {
	r.dTheta -= dTheta
	r.dPhi -= dPhi
}

// Pan queues a screen-space translation of dx, dy pixels.
func (r *Rig) Pan(dx, dy float64) {
	halfW, halfH := r.HalfExtents()
	right, up, _ := r.Basis()
	perPixelX := 2 * halfW / r.Zoom / float64(r.width)
	perPixelY := 2 * halfH / r.Zoom / float64(r.height)
	r.panOffset = r.panOffset.
		Add(right.Mul(-dx * perPixelX)).
		Add(up.Mul(dy * perPixelY))
}

// ZoomBy multiplies the zoom by factor and clamps it.
func (r *Rig) ZoomBy(factor float64) {
	if factor <= 0 || math.IsNaN(factor) {
		return
	}
	r.Zoom = clamp(r.Zoom*factor, MinZoom, MaxZoom)
}

// Moving reports whether damped motion is still outstanding.
func (r *Rig) Moving() bool {
	return math.Abs(r.dTheta) > motionEpsilon ||
		math.Abs(r.dPhi) > motionEpsilon ||
		r.panOffset.Norm() > motionEpsilon
}

// Update applies one frame of damped motion and reports whether the pose changed.
func (r *Rig) Update() bool {
	if !r.Moving() {
		r.dTheta, r.dPhi, r.panOffset = 0, 0, r3.Vector{}
		return false
	}

	radius, theta, phi := toSpherical(r.Position.Sub(r.Target))
	theta += r.dTheta * DampingFactor
	phi = clamp(phi+r.dPhi*DampingFactor, MinPolarAngle, MaxPolarAngle)

	r.Target = r.Target.Add(r.panOffset.Mul(DampingFactor))
	r.Position = r.Target.Add(fromSpherical(radius, theta, phi))

	r.dTheta *= 1 - DampingFactor
	r.dPhi *= 1 - DampingFactor
	r.panOffset = r.panOffset.Mul(1 - DampingFactor)
	return true
}

// PolarAngle is the angle between the view offset and the vertical axis.
func (r *Rig) PolarAngle() float64 {
	_, _, phi := toSpherical(r.Position.Sub(r.Target))
	return phi
}

// Basis returns the camera's right, up and forward unit vectors.
func (r *Rig) Basis() (right, up, forward r3.Vector) {
	forward = r.Target.Sub(r.Position).Normalize()
	right = forward.Cross(worldUp).Normalize()
	up = right.Cross(forward)
	return right, up, forward
}

// NDC converts a pixel position to normalised device coordinates.
func (r *Rig) NDC(x, y float64) (ndcX, ndcY float64) {
	return x/float64(r.width)*2 - 1, -(y/float64(r.height)*2 - 1)
}

// Ray returns the view ray through an NDC point. The ray is parallel to the
// view direction since the projection is orthographic.
func (r *Rig) Ray(ndcX, ndcY float64) (origin, dir r3.Vector) {
	halfW, halfH := r.HalfExtents()
	right, up, forward := r.Basis()
	origin = r.Position.
		Add(right.Mul(ndcX * halfW / r.Zoom)).
		Add(up.Mul(ndcY * halfH / r.Zoom))
	return origin, forward
}

// ProjectNDC maps a world position to NDC and view depth.
func (r *Rig) ProjectNDC(p r3.Vector) (ndcX, ndcY, depth float64) {
	halfW, halfH := r.HalfExtents()
	right, up, forward := r.Basis()
	rel := p.Sub(r.Position)
	ndcX = rel.Dot(right) * r.Zoom / halfW
	ndcY = rel.Dot(up) * r.Zoom / halfH
	return ndcX, ndcY, rel.Dot(forward)
}

// Project maps a world position to pixels. visible is false outside the
// near/far range.
func (r *Rig) Project(p r3.Vector) (x, y float64, visible bool) {
	ndcX, ndcY, depth := r.ProjectNDC(p)
	x = (ndcX + 1) / 2 * float64(r.width)
	y = (1 - ndcY) / 2 * float64(r.height)
	return x, y, depth >= Near && depth <= Far
}

// OnScreen reports whether a world position projects inside the viewport.
func (r *Rig) OnScreen(p r3.Vector) bool {
	ndcX, ndcY, depth := r.ProjectNDC(p)
	return depth >= Near && depth <= Far && math.Abs(ndcX) <= 1 && math.Abs(ndcY) <= 1
}

func toSpherical(v r3.Vector) (radius, theta, phi float64) {
	radius = v.Norm()
	if radius == 0 {
		return 0, 0, 0
	}
	theta = math.Atan2(v.X, v.Z)
	phi = math.Acos(clamp(v.Y/radius, -1, 1))
	return radius, theta, phi
}

func fromSpherical(radius, theta, phi float64) r3.Vector {
	s := math.Sin(phi) * radius
	return r3.Vector{X: s * math.Sin(theta), Y: math.Cos(phi) * radius, Z: s * math.Cos(theta)}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
