// Package route draws the animated path from the kiosk to a selected
// destination.
package route

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/golang/geo/r3"

	"github.com/northwalk/floormap/internal/assets"
	"github.com/northwalk/floormap/internal/geo"
	"github.com/northwalk/floormap/internal/navigation"
	"github.com/northwalk/floormap/internal/render"
	"github.com/northwalk/floormap/internal/resource"
	"github.com/northwalk/floormap/internal/scene"
)

const (
	Spacing     = 20
	MinSegments = 2
	Elevation   = 5

	RevealStep = 0.2
	PulseStep  = 0.05

	PointSize      = 10
	PulseOpacity   = 0.7
	PulseAmplitude = 0.3
	PulseSize      = 12
	PulseGrowth    = 4
	SettledOpacity = 0.9
	SettledSize    = 12
)

// eps absorbs float drift in the accumulated reveal counter.
const eps = 1e-9

// Colors are assigned to concurrent paths by index. Index 0 uses the
// floor palette's route colour.
var Colors = []render.Color{0x000000, 0x2563eb, 0xea580c, 0x16a34a}

// Path is one animated route.
type Path struct {
	Handle render.Handle
	Points []r3.Vector
	Color  render.Color

	counter    float64
	DrawnCount int
	FullyDrawn bool
	GlowPhase  float64
	GlowDone   bool
	Opacity    float64
	Size       float64
}

// Total is the number of resampled points.
func (p *Path) Total() int {
	return len(p.Points)
}

func (p *Path) step() bool {
	switch {
	case !p.FullyDrawn:
		p.counter += RevealStep
		p.DrawnCount = min(int(math.Floor(p.counter+eps)), len(p.Points))
		if p.counter+eps >= float64(len(p.Points)) {
			p.FullyDrawn = true
		}
		return true
	case !p.GlowDone:
		p.GlowPhase += PulseStep
		pulse := math.Sin(p.GlowPhase)
		p.Opacity = PulseOpacity + pulse*PulseAmplitude
		p.Size = PulseSize + pulse*PulseGrowth
		if p.GlowPhase >= math.Pi {
			p.GlowDone = true
			p.Opacity = SettledOpacity
			p.Size = SettledSize
		}
		return true
	}
	return false
}

// Animator owns the route objects of one floor.
type Animator struct {
	tracker *resource.Tracker
	table   *navigation.Table
	profile scene.Profile
	log     *slog.Logger

	target string
	paths  []*Path
	circle render.Handle
}

// New creates an animator drawing through tr.
func New(tr *resource.Tracker, table *navigation.Table, profile scene.Profile, log *slog.Logger) *Animator {
	if log == nil {
		log = slog.Default()
	}
	return &Animator{tracker: tr, table: table, profile: profile, log: log}
}

// Target returns the destination currently drawn, "" when none.
func (a *Animator) Target() string {
	return a.target
}

// Paths returns the active paths.
func (a *Animator) Paths() []*Path {
	return a.paths
}

// Sync brings the drawn routes in line with the selection. Re-selecting the
// drawn destination changes nothing; anything else tears every path down
// before the new one, if any, is created.
func (a *Animator) Sync(selected string, show bool) error {
	if !show || selected == "" {
		return a.Clear()
	}
	if selected == a.target {
		return nil
	}
	if err := a.Clear(); err != nil {
		return err
	}

	routes, ok := a.table.Lookup(a.profile.Floor, selected)
	if !ok {
		a.log.Info("No route to destination", "floor", a.profile.Floor, "id", selected)
		return nil
	}
	if a.circle == 0 {
		h, err := a.tracker.Texture(assets.CircleKey, assets.Circle())
		if err != nil {
			return fmt.Errorf("route sprite: %w", err)
		}
		a.circle = h
	}

	for i, waypoints := range routes {
		pts := geo.Resample(waypoints, Spacing, MinSegments)
		world := make([]r3.Vector, len(pts))
		for j, p := range pts {
			sp := a.profile.Offset.Apply(p)
			world[j] = r3.Vector{X: sp.X, Y: Elevation, Z: sp.Y}
		}
		h, err := a.tracker.Points(world)
		if err != nil {
			return errors.Join(fmt.Errorf("route %d to %s: %w", i, selected, err), a.Clear())
		}
		a.paths = append(a.paths, &Path{
			Handle:  h,
			Points:  world,
			Color:   a.color(i),
			Opacity: 1,
			Size:    PointSize,
		})
	}
	a.target = selected
	a.log.Debug("Route created", "floor", a.profile.Floor, "id", selected, "paths", len(a.paths))
	return nil
}

func (a *Animator) color(i int) render.Color {
	if i == 0 {
		return a.profile.Palette.Route
	}
	// Colors[0] stands for the palette colour, so extra paths cycle the rest.
	return Colors[1+(i-1)%(len(Colors)-1)]
}

// Clear releases every path object. The shared sprite stays.
func (a *Animator) Clear() error {
	var errs []error
	for _, p := range a.paths {
		if err := a.tracker.Release(p.Handle); err != nil {
			errs = append(errs, err)
		}
	}
	a.paths = nil
	a.target = ""
	return errors.Join(errs...)
}

// Step advances every path by one frame and reports whether anything moved.
func (a *Animator) Step() bool {
	moved := false
	for _, p := range a.paths {
		if p.step() {
			moved = true
		}
	}
	return moved
}

// Items returns the route drawables for this frame.
func (a *Animator) Items() []render.Item {
	items := make([]render.Item, 0, len(a.paths))
	for _, p := range a.paths {
		items = append(items, render.Item{
			Handle: p.Handle,
			Material: render.Material{
				Color:   p.Color,
				Opacity: p.Opacity,
				Texture: a.circle,
				Size:    p.Size,
			},
			DrawCount: p.DrawnCount,
		})
	}
	return items
}
