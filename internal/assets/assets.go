// Package assets resolves logo and icon keys and fetches them with fallbacks.
package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/northwalk/floormap/internal/storage"
	"github.com/northwalk/floormap/pkg/floorplan"
	"golang.org/x/image/vector"
)

const (
	DefaultLogoKey = "logos/default.png"
	DefaultIconKey = "icons/default.svg"
	// PlaceholderKey names the generated image used when even a fallback fails.
	PlaceholderKey = "placeholder.png"
)

var iconRenames = map[floorplan.Icon]string{
	"lift":  "elevator",
	"stair": "stairs",
}

// LogoKey returns the logo key for a business id. A trailing "-<digit>" unit
// suffix is dropped so every unit of a chain shares one logo.
func LogoKey(id string) string {
	return "logos/" + BaseID(id) + ".png"
}

// BaseID strips a trailing "-<digit>" unit suffix.
func BaseID(id string) string {
	n := len(id)
	if n >= 2 && id[n-2] == '-' && id[n-1] >= '0' && id[n-1] <= '9' {
		return id[:n-2]
	}
	return id
}

// IconKey returns the icon key for an amenity icon.
func IconKey(icon floorplan.Icon) string {
	name := string(icon)
	if renamed, ok := iconRenames[icon]; ok {
		name = renamed
	}
	return "icons/" + name + ".svg"
}

// Asset is a fetched asset.
type Asset struct {
	// Key is the key the bytes came from, PlaceholderKey for the generated image.
	Key  string
	Data []byte
}

// Fallback reports whether the asset is not the one originally requested.
func (a Asset) Fallback(requested string) bool {
	return a.Key != requested
}

// Resolver fetches assets from a storage source, falling back to a default key
// and then to a generated placeholder.
type Resolver struct {
	src storage.Source
	log *slog.Logger
}

// NewResolver creates a resolver over src.
func NewResolver(src storage.Source, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{src: src, log: log}
}

// Logo fetches the logo for a business id.
func (r *Resolver) Logo(ctx context.Context, id string) (Asset, error) {
	return r.Fetch(ctx, LogoKey(id), DefaultLogoKey)
}

// Icon fetches the icon for an amenity.
func (r *Resolver) Icon(ctx context.Context, icon floorplan.Icon) (Asset, error) {
	return r.Fetch(ctx, IconKey(icon), DefaultIconKey)
}

// Fetch tries key, then fallback, then the placeholder. It only fails when ctx
// is done.
func (r *Resolver) Fetch(ctx context.Context, key, fallback string) (Asset, error) {
	for _, k := range []string{key, fallback} {
		if k == "" {
			continue
		}
		data, err := r.src.Fetch(ctx, k)
		if err == nil {
			return Asset{Key: k, Data: data}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Asset{}, ctxErr
		}
		if !errors.Is(err, storage.ErrNotFound) {
			r.log.Warn("Asset fetch failed", "key", k, "error", err)
		} else {
			r.log.Debug("Asset not found", "key", k)
		}
	}
	return Asset{Key: PlaceholderKey, Data: Placeholder()}, nil
}

// CircleKey is the texture key of the shared route point sprite.
const CircleKey = "route/circle.png"

var (
	placeholderOnce sync.Once
	placeholderPNG  []byte
	circleOnce      sync.Once
	circlePNG       []byte
)

// Placeholder returns a 64x64 PNG of a grey disc.
func Placeholder() []byte {
	placeholderOnce.Do(func() {
		placeholderPNG = encodeDisc(color.RGBA{R: 0x94, G: 0xa3, B: 0xb8, A: 0xff})
	})
	return placeholderPNG
}

// Circle returns the 64x64 white disc route points are drawn with.
func Circle() []byte {
	circleOnce.Do(func() {
		circlePNG = encodeDisc(color.White)
	})
	return circlePNG
}

func encodeDisc(c color.Color) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Disc(64, c)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Disc rasterises a filled circle of the given colour on a transparent square.
// The route point texture and the placeholder use it.
func Disc(size int, c color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	z := vector.NewRasterizer(size, size)
	r := float32(size) / 2
	const steps = 48
	for i := 0; i <= steps; i++ {
		a := 2 * math.Pi * float64(i) / steps
		x := r + r*float32(math.Cos(a))
		y := r + r*float32(math.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
	return dst
}

// IsSVG reports whether data looks like an SVG document.
func IsSVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(strings.ToLower(string(head)), "<svg")
}
