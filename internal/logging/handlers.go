package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns the attributes stamped on every record, such as
// the active floor and the kiosk session. It runs on the logging goroutine and
// must not block.
type ContextProvider func() []slog.Attr

// contextHandler appends the provider's attributes at handle time, so records
// reflect the engine state at the moment they are written rather than when
// the logger was built. Attributes with an empty value are dropped; a floor
// that has not loaded yet reads better absent than as floor="".
type contextHandler struct {
	next     slog.Handler
	provider ContextProvider
}

func withContext(next slog.Handler, p ContextProvider) slog.Handler {
	if p == nil {
		return next
	}
	return &contextHandler{next: next, provider: p}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, a := range h.provider() {
		if isEmptyAttr(a) {
			continue
		}
		r.AddAttrs(a)
	}
	return h.next.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), provider: h.provider}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &contextHandler{next: h.next.WithGroup(name), provider: h.provider}
}

func isEmptyAttr(a slog.Attr) bool {
	if a.Key == "" {
		return true
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String() == ""
	case slog.KindAny:
		return v.Any() == nil
	}
	return false
}

// Fanout delivers each record to every sink that accepts its level: the text
// log, the OTel bridge and Graylog when configured.
type Fanout struct {
	sinks []slog.Handler
}

// NewFanout drops nil sinks so callers can pass optional handlers unchecked.
func NewFanout(sinks ...slog.Handler) *Fanout {
	f := &Fanout{sinks: make([]slog.Handler, 0, len(sinks))}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle keeps writing after a sink fails; a dead Graylog endpoint must not
// silence the log file. Every failure is reported in the joined error.
func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range f.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (f *Fanout) each(fn func(slog.Handler) slog.Handler) *Fanout {
	out := &Fanout{sinks: make([]slog.Handler, len(f.sinks))}
	for i, s := range f.sinks {
		out.sinks[i] = fn(s)
	}
	return out
}

// leveled gates a handler that has no level option of its own, such as the
// OTel bridge.
type leveled struct {
	slog.Handler
	level slog.Leveler
}

func atLevel(h slog.Handler, level slog.Leveler) slog.Handler {
	return &leveled{Handler: h, level: level}
}

func (h *leveled) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() && h.Handler.Enabled(ctx, l)
}

func (h *leveled) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &leveled{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *leveled) WithGroup(name string) slog.Handler {
	return &leveled{Handler: h.Handler.WithGroup(name), level: h.level}
}
