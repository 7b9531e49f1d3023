package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/northwalk/floormap/internal/assets"
	"github.com/northwalk/floormap/internal/camera"
	"github.com/northwalk/floormap/internal/loader"
	"github.com/northwalk/floormap/internal/render"
	"github.com/northwalk/floormap/internal/resource"
	"github.com/northwalk/floormap/internal/route"
	"github.com/northwalk/floormap/internal/scene"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// floorState is everything owned by one floor activation. It is created by
// activate and discarded by teardown.
type floorState struct {
	id      floorplan.FloorID
	gen     uint64
	profile scene.Profile
	log     *slog.Logger

	tracker  *resource.Tracker
	cam      *camera.Rig
	animator *route.Animator
	scene    *scene.Scene
	loading  bool
	// waiting holds texture requests per asset key until the fetch lands.
	waiting map[string][]scene.TextureRequest

	ctx    context.Context
	cancel context.CancelFunc
}

func (e *Engine) profileFor(floor floorplan.FloorID) scene.Profile {
	if p, ok := e.profiles[floor]; ok {
		return p
	}
	return scene.DefaultProfile(floor)
}

func (e *Engine) activate(floor floorplan.FloorID) {
	gen := e.generation.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	p := e.profileFor(floor)
	log := e.log.With("floor", floor, "generation", gen)
	tr := resource.NewTracker(e.dev)

	fs := &floorState{
		id:       floor,
		gen:      gen,
		profile:  p,
		log:      log,
		tracker:  tr,
		cam:      camera.New(e.width, e.height),
		animator: route.New(tr, e.nav, p, log),
		loading:  true,
		waiting:  make(map[string][]scene.TextureRequest),
		ctx:      ctx,
		cancel:   cancel,
	}
	e.floor = fs
	e.active.Store(floor)
	e.metrics.activation(floor)
	log.Info("Floor activated")

	e.loader.LoadAsync(ctx, floor, func(res loader.Result) {
		e.push(command{name: "floorLoaded", gen: gen, run: func(e *Engine) {
			e.floorLoaded(res)
		}})
	})
}

// teardown stops the floor's frame participation, drops its queued
// completions, cancels its fetches and finally releases its device objects.
func (e *Engine) teardown() error {
	fs := e.floor
	if fs == nil {
		return nil
	}
	e.floor = nil
	e.picker.Bind(nil)

	dropped := e.commands.Drop(func(c command) bool {
		return c.gen == fs.gen
	})
	e.stale += uint64(dropped)
	fs.cancel()

	err := fs.tracker.ReleaseAll()
	e.textures.Reset()
	fs.log.Info("Floor torn down", "droppedCompletions", dropped)
	return err
}

func (e *Engine) floorLoaded(res loader.Result) {
	fs := e.floor
	fs.loading = false

	features := res.Features
	if res.Err != nil {
		features = nil
	}
	sc, err := scene.Build(fs.tracker, fs.profile, features, fs.log)
	if err != nil {
		fs.log.Error("Scene build failed", "error", err)
		if err := fs.animator.Clear(); err != nil {
			fs.log.Warn("Route teardown failed", "error", err)
		}
		if err := fs.tracker.ReleaseAll(); err != nil {
			fs.log.Warn("Releasing partial scene failed", "error", err)
		}
		fs.tracker = resource.NewTracker(e.dev)
		fs.animator = route.New(fs.tracker, e.nav, fs.profile, fs.log)
		e.syncSelection()
		return
	}

	fs.scene = sc
	e.picker.Bind(sc)
	e.syncSelection()
	e.requestTextures(fs)
	fs.log.Info("Floor ready", "features", len(features), "entities", len(sc.Entities()))
}

func (e *Engine) syncSelection() {
	fs := e.floor
	if fs == nil {
		return
	}
	if fs.scene != nil {
		fs.scene.ApplySelection(e.input.SelectedID)
	}
	if err := fs.animator.Sync(e.input.SelectedID, e.input.ShowRoute); err != nil {
		fs.log.Warn("Route sync failed", "id", e.input.SelectedID, "error", err)
	}
}

func (e *Engine) requestTextures(fs *floorState) {
	for _, req := range fs.scene.TakeRequests() {
		if h, ok := e.textures.Get(req.Key); ok {
			e.attach(fs, req, h)
			continue
		}
		fs.waiting[req.Key] = append(fs.waiting[req.Key], req)
		if !e.textures.Begin(req.Key) {
			continue
		}

		key, fallback, gen, ctx := req.Key, req.Fallback, fs.gen, fs.ctx
		go func() {
			a, err := e.assets.Fetch(ctx, key, fallback)
			e.push(command{name: "textureLoaded", gen: gen, run: func(e *Engine) {
				e.textureLoaded(key, a, err)
			}})
		}()
	}
}

func (e *Engine) textureLoaded(key string, a assets.Asset, err error) {
	fs := e.floor
	waiters := fs.waiting[key]
	delete(fs.waiting, key)
	if err != nil {
		e.textures.Abandon(key)
		if !errors.Is(err, context.Canceled) {
			fs.log.Warn("Texture fetch failed", "key", key, "error", err)
		}
		return
	}
	if a.Fallback(key) {
		fs.log.Debug("Texture fell back", "key", key, "using", a.Key)
	}

	h, ok := e.textures.Get(a.Key)
	if !ok {
		h, err = fs.tracker.Texture(a.Key, a.Data)
		if err != nil {
			e.textures.Abandon(key)
			fs.log.Warn("Texture upload failed", "key", a.Key, "error", err)
			return
		}
		e.textures.Add(a.Key, h)
	}
	if a.Key != key {
		e.textures.Add(key, h)
	}
	for _, req := range waiters {
		e.attach(fs, req, h)
	}
}

func (e *Engine) attach(fs *floorState, req scene.TextureRequest, tex render.Handle) {
	var err error
	if req.Logo {
		err = fs.scene.AttachLogo(req.Entity, tex)
	} else {
		err = fs.scene.AttachIcon(req.Entity, tex)
	}
	if err != nil {
		fs.log.Warn("Attaching texture failed", "key", req.Key, "error", err)
	}
}
