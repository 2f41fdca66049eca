package position

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellStartsAbsent(t *testing.T) {

	var c Cell

	_, ok := c.Load()
	assert.False(t, ok)
}

func TestCellStoreReplacesWholesale(t *testing.T) {

	var c Cell

	c.Store(Position{X: 1, Y: 0, Z: -0.5})
	c.Store(Position{X: 0, Y: 2, Z: -0.5})

	p, ok := c.Load()
	require.True(t, ok)
	assert.Equal(t, Position{X: 0, Y: 2, Z: -0.5}, p)
}

func TestCellConcurrentReaders(t *testing.T) {

	var c Cell
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := 0; j < 1000; j++ {
				if p, ok := c.Load(); ok {
					// writes are whole values so x and y always agree
					assert.Equal(t, p.X, -p.Y)
				}
			}
		}()
	}

	for j := 0; j < 1000; j++ {
		c.Store(Position{X: float64(j), Y: -float64(j), Z: -0.5})
	}

	wg.Wait()
}

func TestCellWatchDeliversLatest(t *testing.T) {

	var c Cell

	ctx, cancel := context.WithCancel(context.Background())
	ch := c.Watch(ctx)

	c.Store(Position{X: 1})
	c.Store(Position{X: 2})
	c.Store(Position{X: 3})

	select {
	case p := <-ch:
		assert.Equal(t, Position{X: 3}, p)
	case <-time.After(time.Second):
		t.Fatal("no value delivered to watcher")
	}

	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
