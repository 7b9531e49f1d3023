package engine

import (
	"time"

	"github.com/northwalk/floormap/internal/picking"
	"github.com/northwalk/floormap/internal/render"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// Step runs one frame: queued commands, camera damping, route animation and
// drawing. Selection callbacks fire after the frame, outside the engine lock,
// so a callback may call back into the engine.
func (e *Engine) Step() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	start := time.Now()

	batch := e.commands.Drain()
	cut := e.floorChange(batch)
	dropped := 0
	for i, c := range batch {
		if c.input && i < cut {
			dropped++
			continue
		}
		if c.gen != 0 && (e.floor == nil || c.gen != e.floor.gen) {
			e.stale++
			e.metrics.staleCompletion(c.name)
			e.log.Debug("Discarding stale command", "command", c.name, "generation", c.gen)
			continue
		}
		c.run(e)
	}
	if dropped > 0 {
		e.log.Debug("Dropped input queued before floor change", "count", dropped)
	}

	err := e.draw()
	e.frames++
	e.lastFrame = time.Since(start)
	e.metrics.frame(e.lastFrame)

	notify, onSelect := e.notify, e.onSelect
	e.notify = nil
	e.mu.Unlock()

	if onSelect != nil {
		for _, id := range notify {
			onSelect(id)
		}
	}
	return err
}

// floorChange returns the index of the last configure in batch that switches
// floor, or -1 when the batch stays on the current floor.
func (e *Engine) floorChange(batch []command) int {
	cut := -1
	var cur floorplan.FloorID
	if e.floor != nil {
		cur = e.floor.id
	}
	for i, c := range batch {
		if c.floor != "" && c.floor != cur {
			cut = i
			cur = c.floor
		}
	}
	return cut
}

func (e *Engine) draw() error {
	fs := e.floor
	if fs == nil {
		return nil
	}
	fs.cam.Update()
	fs.animator.Step()

	frame := render.Frame{
		Width:      e.width,
		Height:     e.height,
		Background: fs.profile.Palette.Background,
		Camera:     fs.cam,
	}
	if fs.scene != nil {
		frame.Items = fs.scene.Items()
		frame.Overlays = fs.scene.Overlays(fs.cam)
	}
	frame.Items = append(frame.Items, fs.animator.Items()...)
	return e.dev.Draw(&frame)
}

func (e *Engine) pick(x, y float64) string {
	fs := e.floor
	if fs == nil || fs.scene == nil {
		return ""
	}
	if id := picking.LabelAt(fs.scene.Overlays(fs.cam), x, y); id != "" {
		return id
	}
	id := e.picker.Pick(fs.cam, x, y)
	if pt, ok := e.picker.GroundPoint(fs.cam, x, y); ok {
		fs.log.Debug("Pointer", "x", pt.X, "y", pt.Y, "id", id)
	}
	return id
}
