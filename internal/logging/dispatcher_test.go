package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestDispatcherLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel), "bridge")

	dl.Debug("handling message", "type", "pointer")
	dl.Info("registered", "types", 8)
	dl.Warn("queued message failed", "type", "resize")
	dl.Error("message failed", "type", "configure")

	entries := decodeEntries(t, &buf)
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	wantLevels := []string{"debug", "info", "warn", "error"}
	for i, e := range entries {
		if e["level"] != wantLevels[i] {
			t.Errorf("entry %d: expected level %q, got %v", i, wantLevels[i], e["level"])
		}
		if e["component"] != "bridge" {
			t.Errorf("entry %d: expected component=bridge, got %v", i, e["component"])
		}
	}
	if entries[1]["types"] != float64(8) {
		t.Errorf("expected types=8, got %v", entries[1]["types"])
	}
}

func TestDispatcherLogger_NoComponent(t *testing.T) {
	var buf bytes.Buffer
	NewDispatcherLogger(zerolog.New(&buf), "").Info("plain")

	entries := decodeEntries(t, &buf)
	if _, ok := entries[0]["component"]; ok {
		t.Errorf("expected no component field, got %v", entries[0])
	}
}

func TestDispatcherLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.WarnLevel), "bridge")

	dl.Debug("hidden")
	dl.Info("hidden")
	dl.Warn("shown")

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 || entries[0]["message"] != "shown" {
		t.Errorf("expected only the warning, got %v", entries)
	}
}

func TestDispatcherLogger_FieldEncoding(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf), "")

	dl.Error("message failed",
		"error", errors.New("configure: empty payload"),
		"duration", 1500*time.Microsecond,
		"bytes", 0,
	)

	e := decodeEntries(t, &buf)[0]
	if e["error"] != "configure: empty payload" {
		t.Errorf("expected error field, got %v", e["error"])
	}
	if e["duration"] != "1.5ms" {
		t.Errorf("expected duration as string, got %v", e["duration"])
	}
	if e["bytes"] != float64(0) {
		t.Errorf("expected bytes=0, got %v", e["bytes"])
	}
}

func TestDispatcherLogger_BadKeys(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf), "")

	dl.Info("odd", 42, "type", "zoom", "dangling")

	e := decodeEntries(t, &buf)[0]
	if e["type"] != "zoom" {
		t.Errorf("expected type=zoom after bad key, got %v", e["type"])
	}
	if _, ok := e["!BADKEY"]; !ok {
		t.Errorf("expected !BADKEY field, got %v", e)
	}
}
