package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(id, typ, name string, x, y, size float64) string {
	return fmt.Sprintf(
		`{"type":"Feature","properties":{"id":%q,"type":%q,"name":%q},`+
			`"geometry":{"type":"Polygon","coordinates":[[[%g,%g],[%g,%g],[%g,%g],[%g,%g],[%g,%g]]]}}`,
		id, typ, name, x, y, x+size, y, x+size, y+size, x, y+size, x, y)
}

func writeFloor(t *testing.T, dir, floor string, features ...string) {
	t.Helper()
	path := filepath.Join(dir, "maps", floor+".json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	doc := `{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
}

// assetTree writes one valid document per floor.
func assetTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFloor(t, dir, "ground-floor",
		square("corridor", "path", "", 760, 340, 400),
		square("bata", "retail", "Bata", 900, 480, 120))
	writeFloor(t, dir, "first-floor", square("zara", "retail", "Zara", 900, 480, 120))
	writeFloor(t, dir, "restaurant-floor", square("kfc", "food", "KFC", 900, 480, 120))
	return dir
}

func navFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nav.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ground:
  bata:
    - {x: 960, y: 900}
    - {x: 960, y: 600}
`), 0644))
	return path
}

// execute runs the CLI with a fresh viper and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWith(t, nil, args...)
}

func TestRouteCommand_DefaultTable(t *testing.T) {
	out, err := execute(t, "route", "ground", "mcdonalds")
	require.NoError(t, err)

	var got routeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "ground-floor", string(got.Floor))
	require.Len(t, got.Paths, 1)
	assert.Len(t, got.Paths[0].Points, 18)
	assert.Greater(t, got.Paths[0].Length, 0.0)
}

func TestRouteCommand_NoRoute(t *testing.T) {
	_, err := execute(t, "route", "first", "mcdonalds")
	assert.Error(t, err)

	_, err = execute(t, "route", "basement", "mcdonalds")
	assert.Error(t, err)
}

func TestRouteCommand_Waypoints(t *testing.T) {
	out, err := execute(t, "route", "first", "--waypoints", "[[960,900],[960,600]]")
	require.NoError(t, err)

	var got routeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "first-floor", string(got.Floor))
	assert.Empty(t, got.ID)
	require.Len(t, got.Paths, 1)
	assert.InDelta(t, 300.0, got.Paths[0].Length, 1e-9)
	require.Len(t, got.Paths[0].Points, 16)
	assert.Equal(t, 600.0, got.Paths[0].Points[15].Y)

	_, err = execute(t, "route", "first", "--waypoints", "[[960,900]]")
	assert.Error(t, err)

	_, err = execute(t, "route", "first")
	assert.Error(t, err)
}

func TestValidateCommand_OK(t *testing.T) {
	dir := assetTree(t)
	out, err := executeWith(t, map[string]any{"navigation.file": navFile(t)}, "validate", "--assets-dir", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "ground-floor")
}

func TestValidateCommand_Problems(t *testing.T) {
	dir := assetTree(t)
	writeFloor(t, dir, "first-floor", square("bata", "retail", "Bata", 900, 480, 120))

	out, err := executeWith(t, map[string]any{"navigation.file": navFile(t)}, "validate", "--assets-dir", dir)
	require.Error(t, err)
	assert.Contains(t, out, "first-floor/bata: id already used on ground-floor")
}

func TestImportCommand_SQLite(t *testing.T) {
	dir := assetTree(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logos"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logos", "bata.png"), []byte("png"), 0644))

	db := filepath.Join(t.TempDir(), "assets.db")
	out, err := executeWith(t, map[string]any{"db.sqlitePath": db}, "import", dir, "--assets", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 4 keys into sqlite")
}

func TestImportCommand_ReadOnly(t *testing.T) {
	_, err := executeWith(t, map[string]any{"assets.baseUrl": "http://127.0.0.1:1"}, "import", assetTree(t), "--assets", "http")
	assert.Error(t, err)
}

func TestSnapshotCommand(t *testing.T) {
	dir := assetTree(t)
	path := filepath.Join(t.TempDir(), "ground.png")

	_, err := executeWith(t, map[string]any{"navigation.file": navFile(t)},
		"snapshot", "--assets-dir", dir, "--floor", "ground", "--select", "bata", "--route",
		"--width", "320", "--height", "180", "-o", path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 180, img.Bounds().Dy())
}

func TestCreateSource_Unknown(t *testing.T) {
	_, err := execute(t, "validate", "--assets", "ftp")
	assert.Error(t, err)
}

// executeWith is execute with viper overrides applied after the reset.
func executeWith(t *testing.T, overrides map[string]any, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(func() {
		closeLogging()
		viper.Reset()
	})
	for k, v := range overrides {
		viper.Set(k, v)
	}

	tmp := t.TempDir()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", tmp, "--logs-dir", filepath.Join(tmp, "logs")}, args...))
	err := cmd.Execute()
	return out.String(), err
}
