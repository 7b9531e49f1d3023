package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/northwalk/floormap/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_RoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.Init())
	defer s.Close()

	s.Set("logos/bata.png", []byte("png"))
	data, err := s.Fetch(context.Background(), "logos/bata.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, 1, s.Fetches("logos/bata.png"))

	// Returned bytes are a copy.
	data[0] = 'x'
	again, _ := s.Fetch(context.Background(), "logos/bata.png")
	assert.Equal(t, []byte("png"), again)
}

func TestFetch_NotFound(t *testing.T) {
	s := New()
	_, err := s.Fetch(context.Background(), "maps/ground-floor.json")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestPut_InvalidKey(t *testing.T) {
	s := New()
	assert.Error(t, s.Put(context.Background(), "../x", nil))
}

func TestBlock_HoldsUntilRelease(t *testing.T) {
	s := New()
	s.Set("maps/first-floor.json", []byte("{}"))
	release := s.Block("maps/first-floor.json")

	done := make(chan error, 1)
	go func() {
		_, err := s.Fetch(context.Background(), "maps/first-floor.json")
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("fetch returned while blocked")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	release()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("fetch did not return after release")
	}
}

func TestBlock_ContextCancel(t *testing.T) {
	s := New()
	s.Set("maps/first-floor.json", []byte("{}"))
	release := s.Block("maps/first-floor.json")
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Fetch(ctx, "maps/first-floor.json")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeys(t *testing.T) {
	s := New()
	s.Set("logos/b.png", nil)
	s.Set("logos/a.png", nil)
	s.Set("icons/lift.svg", nil)
	s.Delete("logos/b.png")

	keys, err := s.Keys(context.Background(), "logos/")
	require.NoError(t, err)
	assert.Equal(t, []string{"logos/a.png"}, keys)
}
