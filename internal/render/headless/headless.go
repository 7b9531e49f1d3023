// Package headless is a recording render device. It keeps every live object
// in memory and remembers the last frame, which is all tests and the kiosk
// bridge need.
package headless

import (
	"errors"
	"fmt"
	"sync"

	"github.com/northwalk/floormap/internal/render"
)

// Object is a live device object.
type Object struct {
	Kind   render.Kind
	Mesh   render.Mesh
	Lines  render.Lines
	Points render.Points
	Label  render.Label
	// Key and Size describe a texture upload.
	Key  string
	Size int
}

// Device records uploads, releases and frames.
type Device struct {
	mu       sync.Mutex
	next     render.Handle
	live     map[render.Handle]Object
	uploads  map[render.Kind]int
	releases map[render.Kind]int
	frames   int
	last     render.Frame
	closed   bool

	// FailTextures makes every UploadTexture fail.
	FailTextures bool
}

// Compile-time interface check
var _ render.Device = (*Device)(nil)

// New creates an empty recording device.
func New() *Device {
	return &Device{
		live:     make(map[render.Handle]Object),
		uploads:  make(map[render.Kind]int),
		releases: make(map[render.Kind]int),
	}
}

var errClosed = errors.New("headless device closed")

func (d *Device) add(o Object) (render.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, errClosed
	}
	d.next++
	d.live[d.next] = o
	d.uploads[o.Kind]++
	return d.next, nil
}

func (d *Device) UploadMesh(m render.Mesh) (render.Handle, error) {
	if len(m.Indices)%3 != 0 {
		return 0, fmt.Errorf("mesh index count %d is not a multiple of 3", len(m.Indices))
	}
	return d.add(Object{Kind: render.KindMesh, Mesh: m})
}

func (d *Device) UploadLines(l render.Lines) (render.Handle, error) {
	return d.add(Object{Kind: render.KindLines, Lines: l})
}

func (d *Device) UploadPoints(p render.Points) (render.Handle, error) {
	return d.add(Object{Kind: render.KindPoints, Points: p})
}

func (d *Device) UploadTexture(key string, data []byte) (render.Handle, error) {
	if d.FailTextures {
		return 0, fmt.Errorf("texture %s: upload refused", key)
	}
	return d.add(Object{Kind: render.KindTexture, Key: key, Size: len(data)})
}

func (d *Device) CreateLabel(l render.Label) (render.Handle, error) {
	return d.add(Object{Kind: render.KindLabel, Label: l})
}

func (d *Device) SetLabelLogo(label, logo render.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.live[label]
	if !ok || o.Kind != render.KindLabel {
		return fmt.Errorf("label %d: %w", label, render.ErrUnknownHandle)
	}
	if _, ok := d.live[logo]; !ok {
		return fmt.Errorf("logo %d: %w", logo, render.ErrUnknownHandle)
	}
	o.Label.Logo = logo
	d.live[label] = o
	return nil
}

// Release frees h. Releasing an unknown or already released handle fails.
func (d *Device) Release(h render.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.live[h]
	if !ok {
		return fmt.Errorf("release %d: %w", h, render.ErrUnknownHandle)
	}
	delete(d.live, h)
	d.releases[o.Kind]++
	return nil
}

// Draw records f. Every referenced handle must be live.
func (d *Device) Draw(f *render.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errClosed
	}
	for _, it := range f.Items {
		if _, ok := d.live[it.Handle]; !ok {
			return fmt.Errorf("draw %d: %w", it.Handle, render.ErrUnknownHandle)
		}
		if t := it.Material.Texture; t != 0 {
			if _, ok := d.live[t]; !ok {
				return fmt.Errorf("texture %d: %w", t, render.ErrUnknownHandle)
			}
		}
	}
	for _, ov := range f.Overlays {
		if _, ok := d.live[ov.Handle]; !ok {
			return fmt.Errorf("overlay %d: %w", ov.Handle, render.ErrUnknownHandle)
		}
	}
	d.frames++
	d.last = render.Frame{
		Width:      f.Width,
		Height:     f.Height,
		Background: f.Background,
		Camera:     f.Camera,
		Items:      append([]render.Item(nil), f.Items...),
		Overlays:   append([]render.Overlay(nil), f.Overlays...),
	}
	return nil
}

// Close marks the device closed. Live objects are left for inspection.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Live returns the number of live objects, of every kind when kinds is empty.
func (d *Device) Live(kinds ...render.Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(kinds) == 0 {
		return len(d.live)
	}
	n := 0
	for _, o := range d.live {
		for _, k := range kinds {
			if o.Kind == k {
				n++
				break
			}
		}
	}
	return n
}

// Object returns the live object behind h.
func (d *Device) Object(h render.Handle) (Object, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.live[h]
	return o, ok
}

// Uploads returns how many objects of kind were ever created.
func (d *Device) Uploads(kind render.Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uploads[kind]
}

// Releases returns how many objects of kind were released.
func (d *Device) Releases(kind render.Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.releases[kind]
}

// Frames returns the number of frames drawn.
func (d *Device) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// LastFrame returns a copy of the most recent frame.
func (d *Device) LastFrame() render.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.last
	f.Items = append([]render.Item(nil), d.last.Items...)
	f.Overlays = append([]render.Overlay(nil), d.last.Overlays...)
	return f
}
