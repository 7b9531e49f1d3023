package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/northwalk/floormap/internal/config"
	"github.com/northwalk/floormap/internal/database"
	"github.com/northwalk/floormap/internal/storage"
	"github.com/northwalk/floormap/internal/storage/file"
	"github.com/northwalk/floormap/internal/storage/gormstore"
	"github.com/northwalk/floormap/internal/storage/httpsrc"
	"github.com/northwalk/floormap/internal/storage/memory"
)

// openSource creates and initializes the source named by cfg.Type. The
// returned close func releases the source and any database connection.
func openSource(ctx context.Context, cfg config.AssetsConfig) (storage.Source, func() error, error) {
	src, closeDB, err := createSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := src.Init(); err != nil {
		if closeDB != nil {
			_ = closeDB()
		}
		return nil, nil, fmt.Errorf("failed to initialize %s source: %w", cfg.Type, err)
	}
	closer := func() error {
		err := src.Close()
		if closeDB != nil {
			if dbErr := closeDB(); err == nil {
				err = dbErr
			}
		}
		return err
	}
	return src, closer, nil
}

func createSource(ctx context.Context, cfg config.AssetsConfig) (storage.Source, func() error, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "file":
		Logger.Info("File asset source initialized", "dir", cfg.Dir)
		return file.New(cfg.Dir), nil, nil

	case "http":
		Logger.Info("HTTP asset source initialized", "url", cfg.BaseURL)
		return httpsrc.New(cfg.BaseURL, cfg.Timeout), nil, nil

	case "sqlite", "postgres":
		dbm, err := database.Open(database.OptionsFromViper(strings.ToLower(cfg.Type)), ZLogger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to %s: %w", cfg.Type, err)
		}
		Logger.Info("Database asset source initialized", "driver", dbm.Driver, "fallback", dbm.FellBack)
		return gormstore.New(dbm.DB), dbm.Close, nil

	case "memory":
		mem := memory.New()
		seed := file.New(cfg.Dir)
		if err := seed.Init(); err != nil {
			return nil, nil, fmt.Errorf("failed to open seed directory: %w", err)
		}
		n, err := copyKeys(ctx, seed, mem, "")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed memory source: %w", err)
		}
		Logger.Info("Memory asset source initialized", "seeded", n, "from", cfg.Dir)
		return mem, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown asset source type: %q", cfg.Type)
	}
}

// sourceLister is a source that can enumerate its keys.
type sourceLister interface {
	storage.Source
	storage.Lister
}

// copyKeys copies every key under prefix from src to dst and returns the count.
func copyKeys(ctx context.Context, src sourceLister, dst storage.Writable, prefix string) (int, error) {
	keys, err := src.Keys(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("listing keys: %w", err)
	}
	n := 0
	for _, key := range keys {
		if !storage.ValidKey(key) {
			Logger.Warn("Skipping invalid key", "key", key)
			continue
		}
		data, err := src.Fetch(ctx, key)
		if err != nil {
			return n, fmt.Errorf("reading %s: %w", key, err)
		}
		if err := dst.Put(ctx, key, data); err != nil {
			return n, fmt.Errorf("writing %s: %w", key, err)
		}
		n++
	}
	return n, nil
}
