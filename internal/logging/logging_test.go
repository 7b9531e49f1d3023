package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		app     string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "floormaplogs",
			app:     "floormap",
			want:    filepath.Join("floormaplogs", "floormap.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./floormaplogs",
			app:     "floormap",
			want:    filepath.Join(".", "floormaplogs", "floormap.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "floormap"),
			app:     "floormap",
			want:    filepath.Join("/var", "log", "floormap", "floormap.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.app, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPruneLogFiles(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		touch(t, LogFilePath(dir, "floormap", base.Add(time.Duration(i)*time.Hour)))
	}
	touch(t, filepath.Join(dir, "floormap_influx_backup.lp.gz"))
	touch(t, filepath.Join(dir, "floormap.latest.log"))
	touch(t, LogFilePath(dir, "other", base))

	removed, err := PruneLogFiles(dir, "floormap", 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		LogFilePath(dir, "floormap", base),
		LogFilePath(dir, "floormap", base.Add(time.Hour)),
		LogFilePath(dir, "floormap", base.Add(2*time.Hour)),
	}, removed)

	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range left {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"floormap.20260301_120000.log",
		"floormap.20260301_130000.log",
		"floormap_influx_backup.lp.gz",
		"floormap.latest.log",
		"other.20260301_090000.log",
	}, names)
}

func TestPruneLogFiles_Disabled(t *testing.T) {
	removed, err := PruneLogFiles(filepath.Join(t.TempDir(), "missing"), "floormap", 0)
	assert.NoError(t, err)
	assert.Empty(t, removed)
}

func TestPruneLogFiles_MissingDir(t *testing.T) {
	_, err := PruneLogFiles(filepath.Join(t.TempDir(), "missing"), "floormap", 3)
	assert.Error(t, err)
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}
