// Package loader retrieves and parses floor documents.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/northwalk/floormap/internal/geo"
	"github.com/northwalk/floormap/internal/storage"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// ErrUnknownFloor is returned for floor ids outside floorplan.Floors.
var ErrUnknownFloor = floorplan.ErrUnknownFloor

// Result is the outcome of one floor retrieval.
type Result struct {
	Floor    floorplan.FloorID
	Features []floorplan.Feature
	Skipped  []geo.SkippedFeature
	Err      error
}

// Loader fetches floor documents from a storage source.
type Loader struct {
	src    storage.Source
	bounds geo.Bounds
	log    *slog.Logger
}

// New creates a loader reading from src. Features must lie inside
// geo.AuthoringBounds.
func New(src storage.Source, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{src: src, bounds: geo.AuthoringBounds, log: log}
}

// Fetch retrieves and parses floor, reporting skipped features alongside the
// kept ones.
func (l *Loader) Fetch(ctx context.Context, floor floorplan.FloorID) Result {
	res := Result{Floor: floor}
	if !floor.Valid() {
		res.Err = fmt.Errorf("%w: %q", ErrUnknownFloor, floor)
		return res
	}

	data, err := l.src.Fetch(ctx, storage.FloorKey(floor))
	if err != nil {
		res.Err = fmt.Errorf("fetch %s: %w", floor, err)
		return res
	}
	doc, err := geo.ParseFloorDocument(data)
	if err != nil {
		res.Err = fmt.Errorf("parse %s: %w", floor, err)
		return res
	}

	res.Skipped = doc.Skipped
	res.Features = make([]floorplan.Feature, 0, len(doc.Features))
	for i, f := range doc.Features {
		if !l.inBounds(f.Outline) {
			res.Skipped = append(res.Skipped, geo.SkippedFeature{
				Index:  i,
				ID:     f.ID,
				Reason: "outline outside authoring space",
			})
			continue
		}
		f.Floor = floor
		res.Features = append(res.Features, f)
	}
	for _, s := range res.Skipped {
		l.log.Warn("Feature skipped", "floor", floor, "index", s.Index, "id", s.ID, "reason", s.Reason)
	}
	return res
}

func (l *Loader) inBounds(outline []floorplan.Vec2) bool {
	for _, v := range outline {
		if !l.bounds.Contains(v) {
			return false
		}
	}
	return true
}

// Load returns the features of floor.
func (l *Loader) Load(ctx context.Context, floor floorplan.FloorID) ([]floorplan.Feature, error) {
	res := l.Fetch(ctx, floor)
	return res.Features, res.Err
}

// LoadAsync retrieves floor on its own goroutine and hands the result to
// done. A failure is logged once and reported through Result.Err with no
// features.
func (l *Loader) LoadAsync(ctx context.Context, floor floorplan.FloorID, done func(Result)) {
	go func() {
		res := l.Fetch(ctx, floor)
		if res.Err != nil && !errors.Is(res.Err, context.Canceled) {
			l.log.Warn("Floor document unavailable", "floor", floor, "error", res.Err)
		}
		done(res)
	}()
}

// LoadAll retrieves every floor in parallel. Floors that fail are missing
// from the map and their errors are joined.
func (l *Loader) LoadAll(ctx context.Context, floors []floorplan.FloorID) (map[floorplan.FloorID][]floorplan.Feature, error) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		out     = make(map[floorplan.FloorID][]floorplan.Feature, len(floors))
		errList []error
	)
	for _, floor := range floors {
		wg.Add(1)
		go func(floor floorplan.FloorID) {
			defer wg.Done()
			res := l.Fetch(ctx, floor)
			mu.Lock()
			defer mu.Unlock()
			if res.Err != nil {
				errList = append(errList, res.Err)
				return
			}
			out[floor] = res.Features
		}(floor)
	}
	wg.Wait()
	return out, errors.Join(errList...)
}
