// Package gormstore keeps floor documents and assets in a SQL database through
// gorm, so a fleet of kiosks can share one asset store.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/northwalk/floormap/internal/storage"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FloorDocument is one floor's GeoJSON document.
type FloorDocument struct {
	Floor     string         `gorm:"primaryKey;size:64"`
	Document  datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName overrides the default table name.
func (FloorDocument) TableName() string { return "floor_documents" }

// Asset is any non-document asset (logos, icons).
type Asset struct {
	Key         string `gorm:"column:asset_key;primaryKey;size:255"`
	ContentType string `gorm:"size:64"`
	Data        []byte
	UpdatedAt   time.Time
}

// TableName overrides the default table name.
func (Asset) TableName() string { return "assets" }

// Models lists the tables the source needs migrated.
var Models = []any{&FloorDocument{}, &Asset{}}

// Source serves keys from the database.
type Source struct {
	db *gorm.DB
}

// Compile-time interface checks
var (
	_ storage.Source   = (*Source)(nil)
	_ storage.Writable = (*Source)(nil)
	_ storage.Lister   = (*Source)(nil)
)

// New creates a source over an open connection.
func New(db *gorm.DB) *Source {
	return &Source{db: db}
}

// Init migrates the source's tables.
func (s *Source) Init() error {
	if s.db == nil {
		return errors.New("gormstore: nil database")
	}
	if err := s.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate asset tables: %w", err)
	}
	return nil
}

// Close is a no-op; the connection belongs to the database manager.
func (s *Source) Close() error {
	return nil
}

// Fetch returns the document or asset stored under key.
func (s *Source) Fetch(ctx context.Context, key string) ([]byte, error) {
	db := s.db.WithContext(ctx)
	if floor, ok := storage.IsFloorKey(key); ok {
		var doc FloorDocument
		err := db.Where("floor = ?", string(floor)).Take(&doc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", key, err)
		}
		return []byte(doc.Document), nil
	}

	var a Asset
	err := db.Where("asset_key = ?", key).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return a.Data, nil
}

// Put upserts key. Floor document keys must hold valid JSON.
func (s *Source) Put(ctx context.Context, key string, data []byte) error {
	if !storage.ValidKey(key) {
		return fmt.Errorf("invalid key %q", key)
	}
	db := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true})
	if floor, ok := storage.IsFloorKey(key); ok {
		doc := FloorDocument{Floor: string(floor), Document: datatypes.JSON(data)}
		if err := db.Create(&doc).Error; err != nil {
			return fmt.Errorf("failed to store %s: %w", key, err)
		}
		return nil
	}
	a := Asset{Key: key, ContentType: storage.ContentType(key), Data: data}
	if err := db.Create(&a).Error; err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

// Keys lists floor document and asset keys with the given prefix.
func (s *Source) Keys(ctx context.Context, prefix string) ([]string, error) {
	db := s.db.WithContext(ctx)
	var keys []string

	if strings.HasPrefix("maps/", prefix) || strings.HasPrefix(prefix, "maps/") {
		var floors []string
		if err := db.Model(&FloorDocument{}).Order("floor").Pluck("floor", &floors).Error; err != nil {
			return nil, fmt.Errorf("failed to list floors: %w", err)
		}
		for _, f := range floors {
			if k := "maps/" + f + ".json"; strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
	}

	var assets []string
	if err := db.Model(&Asset{}).Where(`asset_key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").Order("asset_key").Pluck("asset_key", &assets).Error; err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return append(keys, assets...), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
