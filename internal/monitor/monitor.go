// Package monitor exposes engine health over HTTP and samples engine
// performance into InfluxDB and a status file.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/northwalk/floormap/internal/engine"
	"github.com/northwalk/floormap/internal/influx"
	"github.com/northwalk/floormap/internal/navigation"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Stats      func() engine.Stats
	Navigation *navigation.Table
	// Influx receives one point per sample when set.
	Influx *influx.Manager
	// StatusFile is rewritten every sample when set.
	StatusFile string
	Interval   time.Duration
	Logger     *slog.Logger
}

// Status is the JSON form of an engine snapshot.
type Status struct {
	Time            time.Time `json:"time"`
	Floor           string    `json:"floor"`
	Generation      uint64    `json:"generation"`
	Loading         bool      `json:"loading"`
	Entities        int       `json:"entities"`
	Handles         int       `json:"handles"`
	Textures        int       `json:"textures"`
	PendingTextures int       `json:"pendingTextures"`
	TextureHits     int       `json:"textureHits"`
	Selected        string    `json:"selected"`
	ShowRoute       bool      `json:"showRoute"`
	RouteTarget     string    `json:"routeTarget"`
	RoutePaths      int       `json:"routePaths"`
	Frames          uint64    `json:"frames"`
	StaleDiscarded  uint64    `json:"staleDiscarded"`
	Queued          int       `json:"queued"`
	QueuePeak       int       `json:"queuePeak"`
	LastFrameMs     float64   `json:"lastFrameMs"`
	Disposed        bool      `json:"disposed"`
}

// NewStatus converts an engine snapshot.
func NewStatus(s engine.Stats, at time.Time) Status {
	return Status{
		Time:            at.UTC(),
		Floor:           string(s.Floor),
		Generation:      s.Generation,
		Loading:         s.Loading,
		Entities:        s.Entities,
		Handles:         s.Handles,
		Textures:        s.Textures,
		PendingTextures: s.PendingTextures,
		TextureHits:     s.TextureHits,
		Selected:        s.Selected,
		ShowRoute:       s.ShowRoute,
		RouteTarget:     s.RouteTarget,
		RoutePaths:      s.RoutePaths,
		Frames:          s.Frames,
		StaleDiscarded:  s.StaleDiscarded,
		Queued:          s.Queued,
		QueuePeak:       s.QueuePeak,
		LastFrameMs:     float64(s.LastFrame.Microseconds()) / 1000,
		Disposed:        s.Disposed,
	}
}

// Point returns the InfluxDB point for st.
func (st Status) Point() *influxdb2_write.Point {
	return influx.NewPoint("engine",
		map[string]string{"floor": st.Floor},
		map[string]any{
			"frames":          int64(st.Frames),
			"handles":         st.Handles,
			"entities":        st.Entities,
			"queued":          st.Queued,
			"queue_peak":      st.QueuePeak,
			"stale_discarded": int64(st.StaleDiscarded),
			"last_frame_ms":   st.LastFrameMs,
			"route_paths":     st.RoutePaths,
		},
		st.Time)
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// Router returns the monitor's HTTP routes.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/floors/{floor}/destinations", s.handleDestinations)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.deps.Stats()
	if st.Disposed {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "disposed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewStatus(s.deps.Stats(), time.Now()))
}

func (s *Service) handleDestinations(w http.ResponseWriter, r *http.Request) {
	floor, err := floorplan.ParseFloorID(chi.URLParam(r, "floor"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	dests := []string{}
	if s.deps.Navigation != nil {
		dests = append(dests, s.deps.Navigation.Destinations(floor)...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"floor": floor, "destinations": dests})
}

// Serve listens on addr until ctx is done.
func (s *Service) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.deps.Logger.Info("Monitor listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// IsRunning returns whether the sampler is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample takes one snapshot, writes it to the status file and InfluxDB and
// returns it.
func (s *Service) Sample() Status {
	st := NewStatus(s.deps.Stats(), time.Now())
	logger := s.deps.Logger

	if s.deps.StatusFile != "" {
		data, err := json.MarshalIndent(st, "", "  ")
		if err == nil {
			err = os.WriteFile(s.deps.StatusFile, data, 0644)
		}
		if err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}
	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(st.Point()); err != nil {
			logger.Error("Error writing engine point", "error", err)
		}
	}
	return st
}

// Start starts the sampling goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Sample()
			}
		}
	}()

	return nil
}

// Stop stops the sampler
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
		s.isRunning = false
	}
}
