// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"mime"
	"path"
	"strings"

	"github.com/northwalk/floormap/pkg/floorplan"
)

// ErrNotFound is returned when a key has no stored content.
var ErrNotFound = errors.New("not found")

// Source is the interface all storage implementations must satisfy
type Source interface {
	// Lifecycle
	Init() error
	Close() error

	// Fetch returns the raw bytes stored under key. Keys are slash separated
	// and relative to the asset root, e.g. "maps/ground-floor.json".
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Writable is an optional interface for sources that can be seeded.
type Writable interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Lister is an optional interface for sources that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// FloorKey returns the key of a floor document.
func FloorKey(floor floorplan.FloorID) string {
	return "maps/" + string(floor) + ".json"
}

// IsFloorKey reports whether key names a floor document and returns its floor.
func IsFloorKey(key string) (floorplan.FloorID, bool) {
	dir, file := path.Split(key)
	if dir != "maps/" || !strings.HasSuffix(file, ".json") {
		return "", false
	}
	floor := floorplan.FloorID(strings.TrimSuffix(file, ".json"))
	return floor, floor.Valid()
}

// ContentType guesses the media type of key from its extension.
func ContentType(key string) string {
	switch ext := path.Ext(key); ext {
	case ".json":
		return "application/geo+json"
	case ".svg":
		return "image/svg+xml"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}

// ValidKey reports whether key is a clean relative slash path.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	return path.Clean(key) == key && !strings.HasPrefix(key, "../") && key != ".."
}
