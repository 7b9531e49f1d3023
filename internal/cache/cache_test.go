package cache

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/northwalk/floormap/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureCache_AddAndGet(t *testing.T) {
	c := NewTextureCache()

	_, ok := c.Get("logos/bata.png")
	assert.False(t, ok)

	c.Add("logos/bata.png", render.Handle(7))
	h, ok := c.Get("logos/bata.png")
	require.True(t, ok)
	assert.Equal(t, render.Handle(7), h)
	assert.Equal(t, 1, c.Len())
	hits, misses := c.Counts()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestTextureCache_BeginDeduplicates(t *testing.T) {
	c := NewTextureCache()

	assert.True(t, c.Begin("logos/levis.png"))
	assert.False(t, c.Begin("logos/levis.png"))

	c.Abandon("logos/levis.png")
	assert.True(t, c.Begin("logos/levis.png"))

	c.Add("logos/levis.png", 3)
	assert.False(t, c.Begin("logos/levis.png"))
}

func TestTextureCache_Reset(t *testing.T) {
	c := NewTextureCache()
	c.Add("icons/elevator.svg", 1)
	c.Begin("icons/stairs.svg")
	c.Reset()

	assert.Equal(t, 0, c.Len())
	assert.True(t, c.Begin("icons/stairs.svg"))

	_, ok := c.Get("icons/elevator.svg")
	assert.False(t, ok)
	_, misses := c.Counts()
	assert.Equal(t, 1, misses)
}

func TestTextureCache_Concurrent(t *testing.T) {
	c := NewTextureCache()
	var wg sync.WaitGroup
	var started atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Begin("logos/shared.png") {
				started.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), started.Load())
}
