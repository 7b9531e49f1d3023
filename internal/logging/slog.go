package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Swapped by tests.
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager owns the process logger. The level is shared by every sink
// built from Leveler and can be changed while the engine runs.
type SlogManager struct {
	level   slog.LevelVar
	context ContextProvider

	mu          sync.RWMutex
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager returns a manager at info level.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts slog level names in any case, plus "warning".
// Anything unparsable is info.
func parseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// handlerOptions formats times as RFC3339 UTC.
func handlerOptions(level slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.TimeKey || len(groups) > 0 {
				return a
			}
			if t, ok := a.Value.Any().(time.Time); ok {
				a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
			}
			return a
		},
	}
}

// Leveler returns the live level for handlers built outside Setup.
func (m *SlogManager) Leveler() slog.Leveler {
	return &m.level
}

// SetLevel changes the level of every sink at once.
func (m *SlogManager) SetLevel(level string) {
	next := parseLevel(level)
	if prev := m.level.Level(); prev != next {
		m.level.Set(next)
		m.Logger().Info("Log level changed", "from", prev.String(), "to", next.String())
	}
}

// SetContextProvider makes every record carry the attributes p returns.
// It takes effect on the next Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.context = p
}

// Setup builds the logger. Records go to file, or to stdout when file is nil,
// and also to the OTel provider and every extra handler.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	m.level.Set(parseLevel(level))
	opts := handlerOptions(&m.level)

	out := file
	if out == nil {
		out = osStdout
	}
	sinks := []slog.Handler{slog.NewTextHandler(out, opts)}
	if provider != nil {
		otelHandler := otelslog.NewHandler("floormap", otelslog.WithLoggerProvider(provider))
		sinks = append(sinks, atLevel(otelHandler, &m.level))
	}
	sinks = append(sinks, extra...)

	logger := slog.New(withContext(NewFanout(sinks...), m.context))

	m.mu.Lock()
	m.logger = logger
	m.logProvider = provider
	m.mu.Unlock()

	logger.Info("Logging initialized", "level", m.level.Level().String())
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush exports buffered OTel records.
func (m *SlogManager) Flush(ctx context.Context) error {
	m.mu.RLock()
	p := m.logProvider
	m.mu.RUnlock()
	if p == nil {
		return nil
	}
	return p.ForceFlush(ctx)
}
