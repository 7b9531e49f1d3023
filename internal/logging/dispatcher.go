package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// DispatcherLogger writes dispatcher events through zerolog. Every entry
// carries the component it was created for, so bridge traffic can be told
// apart from other dispatchers in the same file.
type DispatcherLogger struct {
	logger zerolog.Logger
}

// NewDispatcherLogger returns a DispatcherLogger tagging entries with component.
func NewDispatcherLogger(logger zerolog.Logger, component string) *DispatcherLogger {
	if component != "" {
		logger = logger.With().Str("component", component).Logger()
	}
	return &DispatcherLogger{logger: logger}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	l.write(l.logger.Debug(), msg, keysAndValues)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	l.write(l.logger.Info(), msg, keysAndValues)
}

func (l *DispatcherLogger) Warn(msg string, keysAndValues ...any) {
	l.write(l.logger.Warn(), msg, keysAndValues)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	l.write(l.logger.Error(), msg, keysAndValues)
}

// write appends key/value pairs in order. Errors go under zerolog's error
// field; a non-string key or a dangling value lands under "!BADKEY" the way
// slog reports it.
func (l *DispatcherLogger) write(ev *zerolog.Event, msg string, kv []any) {
	if ev == nil {
		return
	}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok || i+1 == len(kv) {
			ev = ev.Interface("!BADKEY", kv[i])
			i--
			continue
		}
		if err, isErr := kv[i+1].(error); isErr && key == "error" {
			ev = ev.Err(err)
			continue
		}
		if s, isStringer := kv[i+1].(fmt.Stringer); isStringer {
			ev = ev.Str(key, s.String())
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
