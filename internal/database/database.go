// Package database opens the gorm connection behind the database asset
// source. Postgres is the shared store for a fleet of kiosks; SQLite is the
// single-kiosk store and the fallback when Postgres cannot be reached.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned by Open for drivers other than sqlite and postgres.
var ErrUnknownDriver = errors.New("unknown database driver")

// PostgresOptions locates the shared Postgres database.
type PostgresOptions struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// DSN returns the key/value connection string pgx expects.
func (p PostgresOptions) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.Database)
}

// Options selects and configures the database.
type Options struct {
	Driver string
	// SQLitePath is the database file. Empty means a private in-memory database.
	SQLitePath string
	Postgres   PostgresOptions
	// SlowQuery is the threshold above which gorm logs a query as slow.
	SlowQuery time.Duration
}

// OptionsFromViper reads the db.* keys.
func OptionsFromViper(driver string) Options {
	return Options{
		Driver:     driver,
		SQLitePath: viper.GetString("db.sqlitePath"),
		Postgres: PostgresOptions{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			User:     viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
		SlowQuery: viper.GetDuration("db.slowQuery"),
	}
}

// Manager owns an open connection.
type Manager struct {
	DB *gorm.DB
	// Driver is the driver actually in use, which is sqlite after a fallback.
	Driver   string
	FellBack bool

	sqlDB *sql.DB
	log   zerolog.Logger
}

// Open connects to the configured database and pings it. An unreachable
// Postgres falls back to SQLite at SQLitePath.
func Open(opts Options, log zerolog.Logger) (*Manager, error) {
	m := &Manager{log: log.With().Str("component", "database").Logger()}
	cfg := &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 newGormLogger(m.log, opts.SlowQuery),
	}

	switch opts.Driver {
	case DriverSQLite:
		if err := m.openSQLite(opts.SQLitePath, cfg); err != nil {
			return nil, err
		}
	case DriverPostgres:
		if err := m.openPostgres(opts.Postgres, cfg); err != nil {
			m.log.Error().Err(err).Str("host", opts.Postgres.Host).Msg("Postgres unavailable, falling back to SQLite")
			m.FellBack = true
			if err := m.openSQLite(opts.SQLitePath, cfg); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}

	m.log.Info().Str("driver", m.Driver).Bool("fallback", m.FellBack).Msg("Connected to database")
	return m, nil
}

func (m *Manager) openPostgres(p PostgresOptions, cfg *gorm.Config) error {
	m.log.Debug().Str("host", p.Host).Str("database", p.Database).Msg("Connecting to Postgres")
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: p.DSN(), PreferSimpleProtocol: true}), cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	m.DB, m.sqlDB, m.Driver = db, sqlDB, DriverPostgres
	return nil
}

func (m *Manager) openSQLite(path string, cfg *gorm.Config) error {
	dsn := path
	journal := "WAL"
	if path == "" {
		dsn = fmt.Sprintf("file:floormap-%s?mode=memory&cache=shared", uuid.NewString())
		journal = "MEMORY"
	}

	sqliteCfg := *cfg
	sqliteCfg.PrepareStmt = true
	db, err := gorm.Open(sqlite.Open(dsn), &sqliteCfg)
	if err != nil {
		return fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = " + journal,
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	// SQLite serialises writers; one connection avoids lock errors.
	sqlDB.SetMaxOpenConns(1)

	if path == "" {
		m.log.Info().Msg("Using in-memory SQLite DB")
	} else {
		m.log.Info().Str("path", path).Msg("Using SQLite DB")
	}
	m.DB, m.sqlDB, m.Driver = db, sqlDB, DriverSQLite
	return nil
}

// Close closes the connection pool. Later calls are no-ops.
func (m *Manager) Close() error {
	if m.sqlDB == nil {
		return nil
	}
	db := m.sqlDB
	m.sqlDB = nil
	return db.Close()
}

// gormWriter routes gorm's log lines to zerolog at warn level.
type gormWriter struct {
	log zerolog.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Warn().Msgf(format, args...)
}

func newGormLogger(log zerolog.Logger, slow time.Duration) logger.Interface {
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	return logger.New(gormWriter{log: log}, logger.Config{
		SlowThreshold:             slow,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
