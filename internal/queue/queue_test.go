package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cmd struct {
	name string
	gen  uint64
}

func TestQueue_FIFO(t *testing.T) {
	q := New[cmd]()
	assert.Equal(t, 0, q.Len())

	q.Push(cmd{name: "configure"})
	q.Push(cmd{name: "pointer"}, cmd{name: "zoom"})
	assert.Equal(t, 3, q.Len())

	got := q.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, "configure", got[0].name)
	assert.Equal(t, "pointer", got[1].name)
	assert.Equal(t, "zoom", got[2].name)
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestQueue_DrainReusesBuffers(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)
	first := q.Drain()
	require.Equal(t, []int{1, 2, 3}, first)

	// Pushing while the caller iterates the drained slice must not touch it.
	q.Push(4)
	assert.Equal(t, []int{1, 2, 3}, first)

	second := q.Drain()
	assert.Equal(t, []int{4}, second)

	q.Push(5, 6)
	third := q.Drain()
	assert.Equal(t, []int{5, 6}, third)
	assert.Equal(t, 3, cap(third), "reuses the first drained buffer")
}

func TestQueue_PushDuringDrainIteration(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)

	var seen []int
	for _, v := range q.Drain() {
		seen = append(seen, v)
		q.Push(v * 10)
	}
	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, []int{10, 20}, q.Drain())
}

func TestQueue_Drop(t *testing.T) {
	q := New[cmd]()
	q.Push(cmd{"pointer", 1}, cmd{"loaded", 1}, cmd{"pointer", 2}, cmd{"zoom", 1})

	dropped := q.Drop(func(c cmd) bool { return c.gen == 1 && c.name != "loaded" })
	assert.Equal(t, 2, dropped)

	rest := q.Drain()
	assert.Equal(t, []cmd{{"loaded", 1}, {"pointer", 2}}, rest)

	assert.Equal(t, 0, q.Drop(func(cmd) bool { return true }))
}

func TestQueue_Clear(t *testing.T) {
	q := New[string]()
	q.Push("a", "b")
	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestQueue_Peak(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)
	q.Drain()
	q.Push(4)
	assert.Equal(t, 3, q.Peak())
	assert.Equal(t, 1, q.Len())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(w*100 + i)
			}
		}(w)
	}

	total := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			total += len(q.Drain())
			assert.Equal(t, 800, total)
			return
		default:
			total += len(q.Drain())
		}
	}
}
