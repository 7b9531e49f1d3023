// Package render defines the device abstraction the engine draws through.
// A device owns uploaded GPU-side objects; the engine refers to them by Handle
// and hands the device one Frame per tick.
package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
)

// ErrUnknownHandle is returned when a handle was never issued or is already released.
var ErrUnknownHandle = errors.New("unknown render handle")

// Handle identifies one device object. Zero is never issued.
type Handle uint64

// Kind classifies device objects.
type Kind int

const (
	KindMesh Kind = iota
	KindLines
	KindPoints
	KindTexture
	KindLabel
)

func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindLines:
		return "lines"
	case KindPoints:
		return "points"
	case KindTexture:
		return "texture"
	case KindLabel:
		return "label"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Kinds lists every kind in declaration order.
var Kinds = []Kind{KindMesh, KindLines, KindPoints, KindTexture, KindLabel}

// Color is a 24-bit RGB colour, 0xRRGGBB.
type Color uint32

// RGB splits c into its channels.
func (c Color) RGB() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

func (c Color) String() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

// ParseColor accepts "#rrggbb", "rrggbb" or "0xrrggbb".
func ParseColor(s string) (Color, error) {
	t := strings.TrimSpace(strings.ToLower(s))
	t = strings.TrimPrefix(t, "#")
	t = strings.TrimPrefix(t, "0x")
	if len(t) != 6 {
		return 0, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(t, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return Color(v), nil
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []r3.Vector
	Indices  []uint32
}

// Lines is a polyline; Closed joins the last point to the first.
type Lines struct {
	Points []r3.Vector
	Closed bool
}

// Points is a point cloud drawn as screen-facing sprites.
type Points struct {
	Points []r3.Vector
}

// Label is a screen-space overlay anchored to a world position.
type Label struct {
	ID   string
	Text string
	// Logo is a texture handle, zero when none has loaded yet.
	Logo Handle
}

// Material describes how an item is shaded.
type Material struct {
	Color   Color
	Opacity float64
	// Texture is sampled when non-zero.
	Texture Handle
	// Size is the point sprite size for KindPoints.
	Size float64
}

// Item is one drawable in a frame.
type Item struct {
	Handle   Handle
	Material Material
	// DrawCount limits how many vertices (points) are drawn; negative draws all.
	DrawCount int
}

// Overlay is a label placed in screen pixels.
type Overlay struct {
	Handle  Handle
	ID      string
	X, Y    float64
	Visible bool
}

// Projector maps world positions to screen pixels.
type Projector interface {
	Project(p r3.Vector) (x, y float64, visible bool)
}

// Frame is everything a device needs to present one tick.
type Frame struct {
	Width, Height int
	Background    Color
	Camera        Projector
	// Items are drawn in order; later items paint over earlier ones.
	Items    []Item
	Overlays []Overlay
}

// Device is a rendering backend.
type Device interface {
	UploadMesh(m Mesh) (Handle, error)
	UploadLines(l Lines) (Handle, error)
	UploadPoints(p Points) (Handle, error)
	UploadTexture(key string, data []byte) (Handle, error)
	CreateLabel(l Label) (Handle, error)
	// SetLabelLogo attaches a loaded logo texture to a label.
	SetLabelLogo(label, logo Handle) error
	Release(h Handle) error
	Draw(f *Frame) error
	Close() error
}
