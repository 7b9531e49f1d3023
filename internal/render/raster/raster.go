// Package raster is a software render device. It fills projected geometry with
// golang.org/x/image/vector and keeps the last frame as an image, which the
// snapshot command writes out as PNG.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sync"

	_ "image/jpeg"

	"github.com/golang/geo/r3"
	"github.com/northwalk/floormap/internal/render"
	"golang.org/x/image/vector"
)

// fallbackTexture is used for textures that do not decode (SVG icons).
var fallbackTexture = color.RGBA{R: 0x94, G: 0xa3, B: 0xb8, A: 0xff}

type object struct {
	kind   render.Kind
	mesh   render.Mesh
	lines  render.Lines
	points render.Points
	label  render.Label
	// tint is a texture's average colour.
	tint color.RGBA
}

// Device rasterises frames into an RGBA image.
type Device struct {
	mu   sync.Mutex
	next render.Handle
	objs map[render.Handle]*object
	img  *image.RGBA
	z    *vector.Rasterizer
}

// Compile-time interface check
var _ render.Device = (*Device)(nil)

// New creates a raster device.
func New() *Device {
	return &Device{objs: make(map[render.Handle]*object)}
}

func (d *Device) add(o *object) render.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.objs[d.next] = o
	return d.next
}

func (d *Device) UploadMesh(m render.Mesh) (render.Handle, error) {
	if len(m.Indices)%3 != 0 {
		return 0, fmt.Errorf("mesh index count %d is not a multiple of 3", len(m.Indices))
	}
	return d.add(&object{kind: render.KindMesh, mesh: m}), nil
}

func (d *Device) UploadLines(l render.Lines) (render.Handle, error) {
	return d.add(&object{kind: render.KindLines, lines: l}), nil
}

func (d *Device) UploadPoints(p render.Points) (render.Handle, error) {
	return d.add(&object{kind: render.KindPoints, points: p}), nil
}

// UploadTexture decodes raster formats to an average tint. Undecodable data
// (SVG) gets a neutral tint.
func (d *Device) UploadTexture(_ string, data []byte) (render.Handle, error) {
	tint := fallbackTexture
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		tint = averageColor(img)
	}
	return d.add(&object{kind: render.KindTexture, tint: tint}), nil
}

func (d *Device) CreateLabel(l render.Label) (render.Handle, error) {
	return d.add(&object{kind: render.KindLabel, label: l}), nil
}

func (d *Device) SetLabelLogo(label, logo render.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.objs[label]
	if !ok || o.kind != render.KindLabel {
		return fmt.Errorf("label %d: %w", label, render.ErrUnknownHandle)
	}
	o.label.Logo = logo
	return nil
}

func (d *Device) Release(h render.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.objs[h]; !ok {
		return fmt.Errorf("release %d: %w", h, render.ErrUnknownHandle)
	}
	delete(d.objs, h)
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.objs = make(map[render.Handle]*object)
	return nil
}

// Draw rasterises f into the device image.
func (d *Device) Draw(f *render.Frame) error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame size %dx%d", f.Width, f.Height)
	}
	if f.Camera == nil {
		return fmt.Errorf("frame has no camera")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.img == nil || d.img.Bounds().Dx() != f.Width || d.img.Bounds().Dy() != f.Height {
		d.img = image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		d.z = vector.NewRasterizer(f.Width, f.Height)
	}
	draw.Draw(d.img, d.img.Bounds(), image.NewUniform(toRGBA(f.Background, 1)), image.Point{}, draw.Src)

	for _, it := range f.Items {
		o, ok := d.objs[it.Handle]
		if !ok {
			return fmt.Errorf("draw %d: %w", it.Handle, render.ErrUnknownHandle)
		}
		c := toRGBA(it.Material.Color, it.Material.Opacity)
		if t := it.Material.Texture; t != 0 {
			if tex, ok := d.objs[t]; ok {
				c = scaleAlpha(tex.tint, it.Material.Opacity)
			}
		}
		switch o.kind {
		case render.KindMesh:
			d.fillMesh(f.Camera, o.mesh, c)
		case render.KindLines:
			d.strokeLines(f.Camera, o.lines, c)
		case render.KindPoints:
			d.drawPoints(f.Camera, o.points, it.DrawCount, it.Material.Size, c)
		}
	}

	for _, ov := range f.Overlays {
		if !ov.Visible {
			continue
		}
		d.z.Reset(f.Width, f.Height)
		rect(d.z, float32(ov.X)-6, float32(ov.Y)-6, 12, 12)
		d.z.Draw(d.img, d.img.Bounds(), image.NewUniform(color.RGBA{R: 0x33, G: 0x41, B: 0x55, A: 0xff}), image.Point{})
	}
	return nil
}

func (d *Device) fillMesh(cam render.Projector, m render.Mesh, c color.RGBA) {
	w, h := d.img.Bounds().Dx(), d.img.Bounds().Dy()
	d.z.Reset(w, h)
	drawn := false
	for i := 0; i+2 < len(m.Indices); i += 3 {
		var xs, ys [3]float32
		ok := true
		for k := 0; k < 3; k++ {
			x, y, vis := cam.Project(m.Vertices[m.Indices[i+k]])
			if !vis {
				ok = false
				break
			}
			xs[k], ys[k] = float32(x), float32(y)
		}
		if !ok {
			continue
		}
		d.z.MoveTo(xs[0], ys[0])
		d.z.LineTo(xs[1], ys[1])
		d.z.LineTo(xs[2], ys[2])
		d.z.ClosePath()
		drawn = true
	}
	if drawn {
		d.z.Draw(d.img, d.img.Bounds(), image.NewUniform(c), image.Point{})
	}
}

func (d *Device) strokeLines(cam render.Projector, l render.Lines, c color.RGBA) {
	pts := l.Points
	if l.Closed && len(pts) > 1 {
		pts = append(append([]r3.Vector(nil), pts...), pts[0])
	}
	w, h := d.img.Bounds().Dx(), d.img.Bounds().Dy()
	d.z.Reset(w, h)
	drawn := false
	for i := 0; i+1 < len(pts); i++ {
		ax, ay, av := cam.Project(pts[i])
		bx, by, bv := cam.Project(pts[i+1])
		if !av || !bv {
			continue
		}
		if segment(d.z, ax, ay, bx, by, 0.75) {
			drawn = true
		}
	}
	if drawn {
		d.z.Draw(d.img, d.img.Bounds(), image.NewUniform(c), image.Point{})
	}
}

func (d *Device) drawPoints(cam render.Projector, p render.Points, count int, size float64, c color.RGBA) {
	n := len(p.Points)
	if count >= 0 && count < n {
		n = count
	}
	if n == 0 {
		return
	}
	if size <= 0 {
		size = 1
	}
	w, h := d.img.Bounds().Dx(), d.img.Bounds().Dy()
	d.z.Reset(w, h)
	for _, pt := range p.Points[:n] {
		x, y, vis := cam.Project(pt)
		if !vis {
			continue
		}
		circle(d.z, float32(x), float32(y), float32(size/2))
	}
	d.z.Draw(d.img, d.img.Bounds(), image.NewUniform(c), image.Point{})
}

// Snapshot returns a copy of the last drawn frame, nil before the first Draw.
func (d *Device) Snapshot() *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.img == nil {
		return nil
	}
	out := image.NewRGBA(d.img.Bounds())
	copy(out.Pix, d.img.Pix)
	return out
}

// EncodePNG writes the last frame as PNG.
func (d *Device) EncodePNG(w io.Writer) error {
	img := d.Snapshot()
	if img == nil {
		return fmt.Errorf("no frame drawn")
	}
	return png.Encode(w, img)
}

func segment(z *vector.Rasterizer, ax, ay, bx, by, halfWidth float64) bool {
	dx, dy := bx-ax, by-ay
	l := math.Hypot(dx, dy)
	if l == 0 {
		return false
	}
	nx, ny := -dy/l*halfWidth, dx/l*halfWidth
	z.MoveTo(float32(ax+nx), float32(ay+ny))
	z.LineTo(float32(bx+nx), float32(by+ny))
	z.LineTo(float32(bx-nx), float32(by-ny))
	z.LineTo(float32(ax-nx), float32(ay-ny))
	z.ClosePath()
	return true
}

func circle(z *vector.Rasterizer, cx, cy, r float32) {
	const steps = 16
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / steps
		x := cx + r*float32(math.Cos(a))
		y := cy + r*float32(math.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}

func rect(z *vector.Rasterizer, x, y, w, h float32) {
	z.MoveTo(x, y)
	z.LineTo(x+w, y)
	z.LineTo(x+w, y+h)
	z.LineTo(x, y+h)
	z.ClosePath()
}

func toRGBA(c render.Color, opacity float64) color.RGBA {
	r, g, b := c.RGB()
	return scaleAlpha(color.RGBA{R: r, G: g, B: b, A: 0xff}, opacity)
}

// scaleAlpha returns c premultiplied by opacity; opacity <= 0 means opaque.
func scaleAlpha(c color.RGBA, opacity float64) color.RGBA {
	if opacity <= 0 || opacity >= 1 {
		return c
	}
	return color.RGBA{
		R: uint8(float64(c.R) * opacity),
		G: uint8(float64(c.G) * opacity),
		B: uint8(float64(c.B) * opacity),
		A: uint8(float64(c.A) * opacity),
	}
}

func averageColor(img image.Image) color.RGBA {
	b := img.Bounds()
	var r, g, bl, n uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, ca := img.At(x, y).RGBA()
			if ca != 0xffff {
				continue
			}
			r += uint64(cr >> 8)
			g += uint64(cg >> 8)
			bl += uint64(cb >> 8)
			n++
		}
	}
	if n == 0 {
		return fallbackTexture
	}
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n), A: 0xff}
}
