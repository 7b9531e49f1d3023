// Package file serves assets from a directory tree laid out like the kiosk's
// public assets folder (maps/, logos/, icons/).
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/northwalk/floormap/internal/storage"
)

// Source reads keys as files below Root.
type Source struct {
	Root string
}

// Compile-time interface checks
var (
	_ storage.Source   = (*Source)(nil)
	_ storage.Lister   = (*Source)(nil)
	_ storage.Writable = (*Source)(nil)
)

// New creates a file source rooted at dir.
func New(dir string) *Source {
	return &Source{Root: dir}
}

// Init checks that the root exists and is a directory.
func (s *Source) Init() error {
	info, err := os.Stat(s.Root)
	if err != nil {
		return fmt.Errorf("asset root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("asset root %s is not a directory", s.Root)
	}
	return nil
}

// Close is a no-op.
func (s *Source) Close() error {
	return nil
}

func (s *Source) path(key string) (string, error) {
	if !storage.ValidKey(key) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.Root, filepath.FromSlash(key)), nil
}

// Fetch reads the file for key.
func (s *Source) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Put writes data to the file for key, creating parent directories.
func (s *Source) Put(_ context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	return os.WriteFile(p, data, 0o644)
}

// Keys walks the root and returns slash-separated keys with the given prefix.
func (s *Source) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.Root, err)
	}
	sort.Strings(keys)
	return keys, nil
}
