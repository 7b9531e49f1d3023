// Package bridge connects the engine to the kiosk UI over a WebSocket. It
// forwards UI input to the engine and applies the store directory policy
// when the engine reports a selection.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/northwalk/floormap/internal/directory"
	"github.com/northwalk/floormap/internal/dispatcher"
	"github.com/northwalk/floormap/internal/engine"
	"github.com/northwalk/floormap/pkg/bridgeproto"
	"github.com/northwalk/floormap/pkg/floorplan"
)

// DefaultStatusInterval is how often a status message is sent.
const DefaultStatusInterval = 5 * time.Second

// Engine is the part of *engine.Engine the bridge drives.
type Engine interface {
	Configure(in engine.Input, onSelect engine.SelectFunc) error
	Pointer(x, y float64)
	TapLabel(id string)
	Resize(w, h int)
	ResetView()
	Orbit(dTheta, dPhi float64)
	Pan(dx, dy float64)
	Zoom(factor float64)
	Stats() engine.Stats
}

// Config holds bridge connection settings.
type Config struct {
	URL            string
	Secret         string
	Version        string
	StatusInterval time.Duration
}

// Bridge is one kiosk session.
type Bridge struct {
	cfg     Config
	eng     Engine
	dir     *directory.Directory
	disp    *dispatcher.Dispatcher
	conn    *connection
	session string
	log     *slog.Logger

	mu    sync.Mutex
	input engine.Input

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a bridge session. A nil dispatcher gets one logging through log.
func New(cfg Config, eng Engine, dir *directory.Directory, disp *dispatcher.Dispatcher, log *slog.Logger) (*Bridge, error) {
	if log == nil {
		log = slog.Default()
	}
	if dir == nil {
		dir = directory.Build(nil)
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	if disp == nil {
		var err error
		if disp, err = dispatcher.New(log); err != nil {
			return nil, fmt.Errorf("creating dispatcher: %w", err)
		}
	}

	session := uuid.NewString()
	b := &Bridge{
		cfg:     cfg,
		eng:     eng,
		dir:     dir,
		disp:    disp,
		session: session,
		log:     log.With("session", session),
		stop:    make(chan struct{}),
	}
	b.conn = newConnection(b.log, b.receive)
	b.register()
	return b, nil
}

// Session returns the session id sent in hello and status messages.
func (b *Bridge) Session() string {
	return b.session
}

// Input returns the inputs last applied to the engine.
func (b *Bridge) Input() engine.Input {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.input
}

// Start applies initial, dials the kiosk UI and starts the status loop.
func (b *Bridge) Start(ctx context.Context, initial engine.Input) error {
	if err := b.apply(initial); err != nil {
		return err
	}

	q := url.Values{}
	q.Set("secret", b.cfg.Secret)
	q.Set("session", b.session)
	if err := b.conn.dial(b.cfg.URL, q); err != nil {
		return err
	}

	hello, err := bridgeproto.Marshal(bridgeproto.TypeHello, bridgeproto.HelloPayload{
		Session: b.session,
		Version: b.cfg.Version,
	})
	if err != nil {
		return err
	}
	b.conn.mu.Lock()
	b.conn.cachedHello = hello
	b.conn.mu.Unlock()
	b.conn.send(hello)

	go b.statusLoop(ctx)
	b.log.Info("Bridge connected", "url", b.cfg.URL)
	return nil
}

// Close stops the status loop, disconnects and closes the dispatcher.
func (b *Bridge) Close() error {
	b.stopOnce.Do(func() { close(b.stop) })
	err := b.conn.close()
	b.disp.Close()
	return err
}

func (b *Bridge) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.StatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stop:
			return
		case <-ticker.C:
			b.sendStatus()
		}
	}
}

func (b *Bridge) sendStatus() {
	st := b.eng.Stats()
	b.send(bridgeproto.TypeStatus, bridgeproto.StatusPayload{
		Session:     b.session,
		Floor:       string(st.Floor),
		Loading:     st.Loading,
		Selected:    st.Selected,
		RouteTarget: st.RouteTarget,
		Entities:    st.Entities,
		Frames:      st.Frames,
	})
}

func (b *Bridge) send(msgType string, payload any) {
	data, err := bridgeproto.Marshal(msgType, payload)
	if err != nil {
		b.log.Error("Encoding bridge message", "type", msgType, "error", err)
		return
	}
	b.conn.send(data)
}

// receive is called on the read goroutine for every inbound frame.
func (b *Bridge) receive(data []byte) {
	env, err := bridgeproto.Unmarshal(data)
	if err != nil {
		b.log.Debug("Ignoring malformed bridge message", "error", err)
		return
	}
	if _, err := b.disp.Dispatch(dispatcher.Event{
		Type:     env.Type,
		Payload:  env.Payload,
		Received: time.Now(),
	}); err != nil {
		b.log.Warn("Bridge message rejected", "type", env.Type, "error", err)
	}
}

func (b *Bridge) apply(in engine.Input) error {
	b.mu.Lock()
	b.input = in
	b.mu.Unlock()
	return b.eng.Configure(in, b.onSelect)
}

// onSelect runs the directory policy for a pick or label tap and echoes the
// applied inputs to the UI.
func (b *Bridge) onSelect(id string) {
	b.mu.Lock()
	d := b.dir.Decide(b.input.Floor, id)
	b.mu.Unlock()

	in := engine.Input{Floor: d.Floor, SelectedID: d.SelectedID, ShowRoute: d.ShowRoute}
	if err := b.apply(in); err != nil {
		b.log.Error("Applying selection", "id", id, "error", err)
		return
	}
	b.send(bridgeproto.TypeSelect, bridgeproto.SelectPayload{
		ID:        d.SelectedID,
		Floor:     string(d.Floor),
		ShowRoute: d.ShowRoute,
	})
}

func (b *Bridge) register() {
	b.disp.Register(bridgeproto.TypeConfigure, func(e dispatcher.Event) (any, error) {
		var p bridgeproto.ConfigurePayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		floor, err := floorplan.ParseFloorID(p.Floor)
		if err != nil {
			return nil, err
		}
		return nil, b.apply(engine.Input{Floor: floor, SelectedID: p.SelectedID, ShowRoute: p.ShowRoute})
	}, dispatcher.Logged())

	b.disp.Register(bridgeproto.TypePointer, func(e dispatcher.Event) (any, error) {
		var p bridgeproto.PointerPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		b.eng.Pointer(p.X, p.Y)
		return nil, nil
	})

	b.disp.Register(bridgeproto.TypeLabelTap, func(e dispatcher.Event) (any, error) {
		var p bridgeproto.LabelTapPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		b.eng.TapLabel(p.ID)
		return nil, nil
	}, dispatcher.Logged())

	b.disp.Register(bridgeproto.TypeResize, func(e dispatcher.Event) (any, error) {
		var p bridgeproto.ResizePayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		b.eng.Resize(p.Width, p.Height)
		return nil, nil
	})

	b.disp.Register(bridgeproto.TypeResetView, func(dispatcher.Event) (any, error) {
		b.eng.ResetView()
		return nil, nil
	})

	b.disp.Register(bridgeproto.TypeOrbit, func(e dispatcher.Event) (any, error) {
		var p bridgeproto.OrbitPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		b.eng.Orbit(p.Theta, p.Phi)
		return nil, nil
	})

	b.disp.Register(bridgeproto.TypePan, func(e dispatcher.Event) (any, error) {
		var p bridgeproto.PanPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		b.eng.Pan(p.DX, p.DY)
		return nil, nil
	})

	b.disp.Register(bridgeproto.TypeZoom, func(e dispatcher.Event) (any, error) {
		var p bridgeproto.ZoomPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		b.eng.Zoom(p.Factor)
		return nil, nil
	})
}
