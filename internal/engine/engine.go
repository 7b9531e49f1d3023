// Package engine is the map engine's public face. Every call enqueues a
// command; Step drains the queue on the frame goroutine, advances the camera
// and the route animation and draws a frame.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/northwalk/floormap/internal/assets"
	"github.com/northwalk/floormap/internal/cache"
	"github.com/northwalk/floormap/internal/loader"
	"github.com/northwalk/floormap/internal/navigation"
	"github.com/northwalk/floormap/internal/picking"
	"github.com/northwalk/floormap/internal/queue"
	"github.com/northwalk/floormap/internal/render"
	"github.com/northwalk/floormap/internal/scene"
	"github.com/northwalk/floormap/internal/storage"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// ErrDisposed is returned by Step once the engine has been disposed.
var ErrDisposed = errors.New("engine disposed")

// DefaultFrameInterval paces Run at roughly 60 frames per second.
const DefaultFrameInterval = 16 * time.Millisecond

// Input is the selection state supplied by the collaborator. An empty
// SelectedID means nothing is selected.
type Input struct {
	Floor      floorplan.FloorID
	SelectedID string
	ShowRoute  bool
}

// SelectFunc receives the id reported by a pick or label tap, "" to clear.
type SelectFunc func(id string)

// Options configures an Engine.
type Options struct {
	Device     render.Device
	Source     storage.Source
	Navigation *navigation.Table
	// Profiles overrides the built-in per-floor profiles.
	Profiles map[floorplan.FloorID]scene.Profile

	Width, Height int
	FrameInterval time.Duration
	Logger        *slog.Logger
}

type command struct {
	name string
	// gen scopes a completion to one floor activation, 0 for none.
	gen uint64
	// input marks pointer and camera gestures.
	input bool
	// floor is the target of a configure command.
	floor floorplan.FloorID
	run   func(e *Engine)
}

// Engine renders one floor at a time.
type Engine struct {
	log      *slog.Logger
	dev      render.Device
	loader   *loader.Loader
	assets   *assets.Resolver
	nav      *navigation.Table
	profiles map[floorplan.FloorID]scene.Profile
	interval time.Duration
	metrics  *metrics

	commands   *queue.Queue[command]
	generation atomic.Uint64
	active     atomic.Value

	mu        sync.Mutex
	picker    *picking.Controller
	textures  *cache.TextureCache
	width     int
	height    int
	input     Input
	onSelect  SelectFunc
	floor     *floorState
	notify    []string
	frames    uint64
	stale     uint64
	lastFrame time.Duration
	disposed  bool
}

// New creates an engine. Nothing is loaded until the first Configure.
func New(opts Options) (*Engine, error) {
	if opts.Device == nil {
		return nil, errors.New("engine: no render device")
	}
	if opts.Source == nil {
		return nil, errors.New("engine: no storage source")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	nav := opts.Navigation
	if nav == nil {
		nav = navigation.Default()
	}
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		log:      log,
		dev:      opts.Device,
		loader:   loader.New(opts.Source, log),
		assets:   assets.NewResolver(opts.Source, log),
		nav:      nav,
		profiles: opts.Profiles,
		interval: interval,
		metrics:  m,
		commands: queue.New[command](),
		picker:   picking.New(log),
		textures: cache.NewTextureCache(),
		width:    max(opts.Width, 1),
		height:   max(opts.Height, 1),
	}
	e.active.Store(floorplan.FloorID(""))
	return e, nil
}

// ActiveFloor returns the floor currently shown, "" before the first
// Configure. It never blocks.
func (e *Engine) ActiveFloor() floorplan.FloorID {
	return e.active.Load().(floorplan.FloorID)
}

func (e *Engine) push(c command) {
	e.commands.Push(c)
}

func (e *Engine) pushInput(name string, run func(e *Engine)) {
	e.push(command{name: name, input: true, run: run})
}

// Configure sets the floor, selection and route flag. A floor change tears
// the current floor down and loads the new one; input queued before it is
// dropped. A selection change only recolours and re-syncs the route.
func (e *Engine) Configure(in Input, onSelect SelectFunc) error {
	if !in.Floor.Valid() {
		return fmt.Errorf("configure: %w: %q", floorplan.ErrUnknownFloor, in.Floor)
	}
	e.push(command{name: "configure", floor: in.Floor, run: func(e *Engine) {
		if onSelect != nil {
			e.onSelect = onSelect
		}
		e.input = in
		if e.floor == nil || e.floor.id != in.Floor {
			if err := e.teardown(); err != nil {
				e.log.Warn("Floor teardown incomplete", "error", err)
			}
			e.activate(in.Floor)
		}
		e.syncSelection()
	}})
	return nil
}

// ResetView returns the camera to its home pose.
func (e *Engine) ResetView() {
	e.push(command{name: "resetView", run: func(e *Engine) {
		if e.floor != nil {
			e.floor.cam.Reset()
		}
	}})
}

// Resize sets the viewport size. Zero-area sizes are ignored.
func (e *Engine) Resize(w, h int) {
	e.push(command{name: "resize", run: func(e *Engine) {
		if w <= 0 || h <= 0 {
			e.log.Debug("Ignoring zero-area resize", "width", w, "height", h)
			return
		}
		e.width, e.height = w, h
		if e.floor != nil {
			e.floor.cam.Resize(w, h)
		}
	}})
}

// Pointer reports a click or tap at pixel (x, y). Labels are tested before
// the scene so a label tap never reaches the picker. Exactly one selection
// callback follows.
func (e *Engine) Pointer(x, y float64) {
	e.pushInput("pointer", func(e *Engine) {
		e.notifySelect(e.pick(x, y))
	})
}

// TapLabel reports a tap on the label of id.
func (e *Engine) TapLabel(id string) {
	e.pushInput("labelTap", func(e *Engine) {
		e.notifySelect(id)
	})
}

// Orbit rotates the camera around its target by the given angles in radians.
func (e *Engine) Orbit(dTheta, dPhi float64) {
	e.pushInput("orbit", func(e *Engine) {
		if e.floor != nil {
			e.floor.cam.Orbit(dTheta, dPhi)
		}
	})
}

// Pan moves the camera target by a pixel delta.
func (e *Engine) Pan(dx, dy float64) {
	e.pushInput("pan", func(e *Engine) {
		if e.floor != nil {
			e.floor.cam.Pan(dx, dy)
		}
	})
}

// Zoom scales the camera zoom by factor.
func (e *Engine) Zoom(factor float64) {
	e.pushInput("zoom", func(e *Engine) {
		if e.floor != nil {
			e.floor.cam.ZoomBy(factor)
		}
	})
}

// Run steps the engine every frame interval until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.Step(); err != nil {
				if errors.Is(err, ErrDisposed) {
					return nil
				}
				e.log.Warn("Frame failed", "error", err)
			}
		}
	}
}

// Dispose tears the active floor down and stops the engine. Later calls are
// no-ops. The render device is left to its owner.
func (e *Engine) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil
	}
	e.disposed = true
	err := e.teardown()
	e.commands.Clear()
	e.active.Store(floorplan.FloorID(""))
	e.log.Info("Engine disposed", "frames", e.frames)
	return err
}

// Stats is a snapshot of the engine state.
type Stats struct {
	Floor          floorplan.FloorID
	Generation     uint64
	Loading        bool
	Entities       int
	Handles        int
	Textures       int
	Selected       string
	ShowRoute      bool
	RouteTarget    string
	RoutePaths     int
	Frames         uint64
	StaleDiscarded uint64
	Queued         int
	QueuePeak      int
	LastFrame      time.Duration
	Disposed       bool

	// PendingTextures counts asset keys still being fetched.
	PendingTextures int
	// TextureHits counts logo lookups served by an already uploaded texture.
	TextureHits int
}

// Stats returns a snapshot of the engine state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Stats{
		Generation:     e.generation.Load(),
		Selected:       e.input.SelectedID,
		ShowRoute:      e.input.ShowRoute,
		Frames:         e.frames,
		StaleDiscarded: e.stale,
		Queued:         e.commands.Len(),
		QueuePeak:      e.commands.Peak(),
		LastFrame:      e.lastFrame,
		Textures:       e.textures.Len(),
		Disposed:       e.disposed,
	}
	s.TextureHits, _ = e.textures.Counts()
	if fs := e.floor; fs != nil {
		s.Floor = fs.id
		s.Loading = fs.loading
		s.PendingTextures = len(fs.waiting)
		s.Handles = fs.tracker.Len()
		s.RouteTarget = fs.animator.Target()
		s.RoutePaths = len(fs.animator.Paths())
		if fs.scene != nil {
			s.Entities = len(fs.scene.Entities())
		}
	}
	return s
}

func (e *Engine) notifySelect(id string) {
	e.notify = append(e.notify, id)
}
