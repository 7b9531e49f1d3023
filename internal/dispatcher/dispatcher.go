// Package dispatcher routes decoded bridge messages to their handlers by
// message type. Handlers run inline by default, which keeps messages of
// different types in arrival order; Buffered moves a type onto its own queue.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/northwalk/floormap/internal/dispatcher"

var (
	ErrUnknownType = errors.New("unknown message type")
	ErrQueueFull   = errors.New("queue full")
	ErrClosed      = errors.New("dispatcher closed")
)

// Event is one inbound bridge message.
type Event struct {
	Type     string
	Payload  json.RawMessage
	Received time.Time
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: decoding payload: %w", e.Type, err)
	}
	return nil
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is satisfied by *slog.Logger and by logging.DispatcherLogger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*options)

type options struct {
	queue    int
	blocking bool
	logged   bool
}

// Buffered runs the handler on its own goroutine behind a queue of size n.
// Events of that type then lose their ordering relative to other types.
func Buffered(n int) Option {
	return func(o *options) { o.queue = n }
}

// Blocking makes Dispatch wait for queue space instead of failing with ErrQueueFull.
func Blocking() Option {
	return func(o *options) { o.blocking = true }
}

// Logged logs each event of the type at debug level, and failures at error.
func Logged() Option {
	return func(o *options) { o.logged = true }
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger Logger

	depth     metric.Int64ObservableGauge
	processed metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter
	unknown   metric.Int64Counter

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	queues   map[string]chan Event
	closed   bool
	workers  sync.WaitGroup
}

// New creates a Dispatcher. Metrics go to the global OTel meter provider,
// which is a no-op until one is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]chan Event),
	}
	m := otel.Meter(instrumentationName)

	var err error
	if d.depth, err = m.Int64ObservableGauge("dispatcher.queue.depth",
		metric.WithDescription("Events waiting in a buffered handler queue")); err != nil {
		return nil, fmt.Errorf("creating queue gauge: %w", err)
	}
	if _, err = m.RegisterCallback(d.observe, d.depth); err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}
	if d.processed, err = m.Int64Counter("dispatcher.events.processed",
		metric.WithDescription("Events handled")); err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	if d.failed, err = m.Int64Counter("dispatcher.events.failed",
		metric.WithDescription("Events whose handler returned an error")); err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	if d.dropped, err = m.Int64Counter("dispatcher.events.dropped",
		metric.WithDescription("Events dropped on a full queue")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if d.unknown, err = m.Int64Counter("dispatcher.events.unknown",
		metric.WithDescription("Events with no registered handler")); err != nil {
		return nil, fmt.Errorf("creating unknown counter: %w", err)
	}
	return d, nil
}

func (d *Dispatcher) observe(_ context.Context, o metric.Observer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for msgType, q := range d.queues {
		o.ObserveInt64(d.depth, int64(len(q)), metric.WithAttributes(attribute.String("type", msgType)))
	}
	return nil
}

// Register installs h for msgType, replacing any earlier handler.
// Registering a buffered handler twice for the same type is not supported.
func (d *Dispatcher) Register(msgType string, h HandlerFunc, opts ...Option) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	handler := d.counted(msgType, h)
	if o.logged {
		handler = d.withLogging(msgType, handler)
	}
	if o.queue > 0 {
		handler = d.withQueue(msgType, o.queue, o.blocking, handler)
	}

	d.mu.Lock()
	d.handlers[msgType] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Type]
	closed := d.closed
	d.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok {
		d.unknown.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", e.Type)))
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, e.Type)
	}
	return h(e)
}

// HasHandler reports whether a handler is registered for msgType.
func (d *Dispatcher) HasHandler(msgType string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[msgType]
	return ok
}

// Close rejects further events and waits for buffered queues to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.workers.Wait()
}

func (d *Dispatcher) counted(msgType string, h HandlerFunc) HandlerFunc {
	typeAttr := metric.WithAttributes(attribute.String("type", msgType))
	return func(e Event) (any, error) {
		result, err := h(e)
		d.processed.Add(context.Background(), 1, typeAttr)
		if err != nil {
			d.failed.Add(context.Background(), 1, typeAttr)
		}
		return result, err
	}
}

func (d *Dispatcher) withQueue(msgType string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	q := make(chan Event, size)

	d.mu.Lock()
	d.queues[msgType] = q
	d.mu.Unlock()

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range q {
			if _, err := h(e); err != nil {
				d.logger.Warn("queued message failed", "type", msgType, "error", err)
			}
		}
	}()

	return func(e Event) (res any, err error) {
		// Close may run between Dispatch's closed check and the send below.
		defer func() {
			if recover() != nil {
				res, err = nil, ErrClosed
			}
		}()
		if blocking {
			q <- e
			return "queued", nil
		}
		select {
		case q <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", msgType)))
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, msgType)
		}
	}
}

func (d *Dispatcher) withLogging(msgType string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling message", "type", msgType, "bytes", len(e.Payload))

		result, err := h(e)
		if err != nil {
			d.logger.Error("message failed", "type", msgType, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("message complete", "type", msgType, "duration", time.Since(start))
		}
		return result, err
	}
}
