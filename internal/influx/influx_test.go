package influx

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachable(backup string) Options {
	return Options{URL: "http://127.0.0.1:1", Token: "t", Org: "floormap", Bucket: "engine", BackupPath: backup}
}

func readBackup(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(data)
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := New(unreachable(""), zerolog.Nop())
	err := m.WritePoint(NewPoint("engine", nil, map[string]any{"frames": 1}, time.Now()))
	assert.ErrorIs(t, err, ErrNoSink)
	assert.NoError(t, m.Close())
}

func TestConnect_UnreachableWithoutBackup(t *testing.T) {
	m := New(unreachable(""), zerolog.Nop())
	assert.Error(t, m.Connect(context.Background()))
	assert.False(t, m.Online())
}

func TestConnect_FallsBackToBackupFile(t *testing.T) {
	var logs bytes.Buffer
	path := filepath.Join(t.TempDir(), "floormap_influx_backup.lp.gz")
	m := New(unreachable(path), zerolog.New(&logs))

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.Online())
	assert.Contains(t, logs.String(), "writing to backup file")

	at := time.Unix(1700000000, 0)
	p := NewPoint("engine", map[string]string{"floor": "ground-floor"}, map[string]any{"frames": 42}, at)
	require.NoError(t, m.WritePoint(p))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Contains(t, readBackup(t, path), "engine,floor=ground-floor frames=42i 1700000000000000000")
}

func TestConnect_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lp.gz")
	m := New(unreachable(path), zerolog.Nop())
	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Close())
}

func TestOptionsFromViper(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.protocol", "https")
	viper.Set("influx.host", "metrics.local")
	viper.Set("influx.port", "8443")
	viper.Set("influx.bucket", "kiosk")

	opts := OptionsFromViper("/tmp/b.gz")
	assert.Equal(t, "https://metrics.local:8443", opts.URL)
	assert.Equal(t, "kiosk", opts.Bucket)
	assert.Equal(t, "/tmp/b.gz", opts.BackupPath)
}
