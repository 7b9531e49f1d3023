package database

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probe struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestOpen_SQLiteMemory(t *testing.T) {
	m, err := Open(Options{Driver: DriverSQLite}, zerolog.Nop())
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, DriverSQLite, m.Driver)
	assert.False(t, m.FellBack)
	require.NoError(t, m.DB.AutoMigrate(&probe{}))
	require.NoError(t, m.DB.Create(&probe{Name: "kfc"}).Error)

	var n int64
	require.NoError(t, m.DB.Model(&probe{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestOpen_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floormap.db")
	m, err := Open(Options{Driver: DriverSQLite, SQLitePath: path}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.FileExists(t, path)
}

func TestOpen_SeparateMemoryDatabases(t *testing.T) {
	a, err := Open(Options{Driver: DriverSQLite}, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(Options{Driver: DriverSQLite}, zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.DB.AutoMigrate(&probe{}))
	assert.False(t, b.DB.Migrator().HasTable(&probe{}))
}

func TestOpen_PostgresFallsBackToSQLite(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{
		Driver:     DriverPostgres,
		SQLitePath: filepath.Join(t.TempDir(), "fallback.db"),
		Postgres:   PostgresOptions{Host: "127.0.0.1", Port: "1", User: "u", Password: "p", Database: "floormap"},
	}
	m, err := Open(opts, zerolog.New(&buf))
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, m.FellBack)
	assert.Equal(t, DriverSQLite, m.Driver)
	assert.Contains(t, buf.String(), "falling back to SQLite")
	assert.FileExists(t, opts.SQLitePath)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Options{Driver: "mysql"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestClose_NotConnected(t *testing.T) {
	assert.NoError(t, (&Manager{}).Close())
}

func TestPostgresOptions_DSN(t *testing.T) {
	dsn := PostgresOptions{Host: "db", Port: "5432", User: "kiosk", Password: "pw", Database: "floormap"}.DSN()
	assert.Equal(t, "host=db port=5432 user=kiosk password=pw dbname=floormap sslmode=disable", dsn)
}

func TestGormLogger_SlowQueriesGoToZerolog(t *testing.T) {
	var buf bytes.Buffer
	gl := newGormLogger(zerolog.New(&buf), 0)
	gl.Warn(context.Background(), "slow floor query %s", "restaurant-floor")
	assert.Contains(t, buf.String(), "restaurant-floor")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
