// Package cache holds the per-floor texture handle cache.
package cache

import (
	"sync"

	"github.com/northwalk/floormap/internal/render"
)

// TextureCache maps asset keys to uploaded texture handles for the active floor,
// so chain stores sharing a logo upload it once. It also tracks which keys have
// a fetch in flight so a key is requested only once.
type TextureCache struct {
	mu       sync.Mutex
	textures map[string]render.Handle
	pending  map[string]struct{}
	hits     int
	misses   int
}

func NewTextureCache() *TextureCache {
	c := &TextureCache{}
	c.Reset()
	return c
}

// Reset forgets every handle and pending fetch. The handles themselves are
// released by their owner. Hit counts survive.
func (c *TextureCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.textures = make(map[string]render.Handle)
	c.pending = make(map[string]struct{})
}

func (c *TextureCache) Get(key string) (render.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.textures[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return h, ok
}

// Add stores h under key and clears its pending mark.
func (c *TextureCache) Add(key string, h render.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.textures[key] = h
	delete(c.pending, key)
}

// Begin marks key as being fetched. It returns false when the key is already
// cached or pending, in which case the caller should not fetch it again.
func (c *TextureCache) Begin(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.textures[key]; ok {
		return false
	}
	if _, ok := c.pending[key]; ok {
		return false
	}
	c.pending[key] = struct{}{}
	return true
}

// Abandon clears a pending mark without storing a handle.
func (c *TextureCache) Abandon(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, key)
}

func (c *TextureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.textures)
}

// Counts returns lookups that found a handle and lookups that did not.
func (c *TextureCache) Counts() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
