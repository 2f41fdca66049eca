package position

import (
	"context"
	"sync"
	"sync/atomic"
)

// Reader is the read only view of a Cell handed to consumers
type Reader interface {
	// Load returns the latest position and false if none has been stored yet
	Load() (Position, bool)
}

// Cell is a single writer slot holding the latest tracked position.  The
// zero value is ready to use and holds no position.
type Cell struct {
	latest atomic.Pointer[Position]
	// mu guards watchers
	mu       sync.Mutex
	watchers map[chan Position]struct{}
}

// Load returns the latest position and false if none has been stored yet
func (c *Cell) Load() (Position, bool) {

	p := c.latest.Load()

	if p == nil {
		return Position{}, false
	}

	return *p, true
}

// Store replaces the held position and notifies watchers.  Only the owner of
// the Cell should call Store.
func (c *Cell) Store(p Position) {

	c.latest.Store(&p)

	c.mu.Lock()
	defer c.mu.Unlock()

	for ch := range c.watchers {
		select {
		case ch <- p:
		default:
			// watcher has not consumed the previous value, replace it so
			// the newest wins
			select {
			case <-ch:
			default:
			}

			select {
			case ch <- p:
			default:
			}
		}
	}
}

// Watch returns a channel receiving each stored position.  Slow receivers
// only see the most recent value.  The channel is closed when ctx is done.
func (c *Cell) Watch(ctx context.Context) <-chan Position {

	ch := make(chan Position, 1)

	c.mu.Lock()
	if c.watchers == nil {
		c.watchers = make(map[chan Position]struct{})
	}
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	go func() {
		<-ctx.Done()

		c.mu.Lock()
		delete(c.watchers, ch)
		close(ch)
		c.mu.Unlock()
	}()

	return ch
}
