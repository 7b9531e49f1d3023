// Package resource tracks device objects so a floor can be torn down without
// leaking GPU memory.
package resource

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/northwalk/floormap/internal/render"
)

// Tracker records every handle created through it. Handles are released
// exactly once, either individually or together by ReleaseAll.
type Tracker struct {
	mu    sync.Mutex
	dev   render.Device
	order []render.Handle
	kinds map[render.Handle]render.Kind
}

// NewTracker creates a tracker that uploads through dev.
func NewTracker(dev render.Device) *Tracker {
	return &Tracker{dev: dev, kinds: make(map[render.Handle]render.Kind)}
}

// Device returns the device the tracker uploads through.
func (t *Tracker) Device() render.Device {
	return t.dev
}

// Track adopts a handle created elsewhere.
func (t *Tracker) Track(h render.Handle, kind render.Kind) {
	if h == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.kinds[h]; ok {
		return
	}
	t.kinds[h] = kind
	t.order = append(t.order, h)
}

func (t *Tracker) track(h render.Handle, kind render.Kind, err error) (render.Handle, error) {
	if err != nil {
		return 0, err
	}
	t.Track(h, kind)
	return h, nil
}

func (t *Tracker) Mesh(vertices []r3.Vector, indices []uint32) (render.Handle, error) {
	h, err := t.dev.UploadMesh(render.Mesh{Vertices: vertices, Indices: indices})
	return t.track(h, render.KindMesh, err)
}

func (t *Tracker) Lines(points []r3.Vector, closed bool) (render.Handle, error) {
	h, err := t.dev.UploadLines(render.Lines{Points: points, Closed: closed})
	return t.track(h, render.KindLines, err)
}

func (t *Tracker) Points(points []r3.Vector) (render.Handle, error) {
	h, err := t.dev.UploadPoints(render.Points{Points: points})
	return t.track(h, render.KindPoints, err)
}

func (t *Tracker) Texture(key string, data []byte) (render.Handle, error) {
	h, err := t.dev.UploadTexture(key, data)
	return t.track(h, render.KindTexture, err)
}

func (t *Tracker) Label(l render.Label) (render.Handle, error) {
	h, err := t.dev.CreateLabel(l)
	return t.track(h, render.KindLabel, err)
}

// Release frees one tracked handle. Releasing an untracked or already
// released handle returns render.ErrUnknownHandle without touching the device.
func (t *Tracker) Release(h render.Handle) error {
	t.mu.Lock()
	if _, ok := t.kinds[h]; !ok {
		t.mu.Unlock()
		return fmt.Errorf("release %d: %w", h, render.ErrUnknownHandle)
	}
	delete(t.kinds, h)
	for i, o := range t.order {
		if o == h {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
	return t.dev.Release(h)
}

// ReleaseAll frees every tracked handle in reverse creation order. It is
// idempotent; device errors are joined and returned after all releases ran.
func (t *Tracker) ReleaseAll() error {
	t.mu.Lock()
	order := t.order
	t.order = nil
	t.kinds = make(map[render.Handle]render.Kind)
	t.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		if err := t.dev.Release(order[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of live tracked handles.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

// Count returns the number of live tracked handles of kind.
func (t *Tracker) Count(kind render.Kind) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, k := range t.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

// Owns reports whether h is tracked.
func (t *Tracker) Owns(h render.Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.kinds[h]
	return ok
}
