package server

import (
	"context"
	"sync"

	"github.com/snapfest/backend/internal/catalog"
)

const changeStreamBufferSize = 16

// ChangeDispatcher fans catalog changes out to admin stream subscribers.
// Slow subscribers drop messages rather than blocking the catalog.
type ChangeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]chan catalog.Change
	nextID      int64
}

// NewChangeDispatcher constructs an empty dispatcher.
func NewChangeDispatcher() *ChangeDispatcher {
	return &ChangeDispatcher{
		subscribers: make(map[int64]chan catalog.Change),
	}
}

// Subscribe registers a change stream torn down when ctx is cancelled. The
// cleanup function may also be called directly.
func (d *ChangeDispatcher) Subscribe(ctx context.Context) (<-chan catalog.Change, func()) {
	stream := make(chan catalog.Change, changeStreamBufferSize)

	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.subscribers[id] = stream
	d.mu.Unlock()

	cleanup := func() {
		d.mu.Lock()
		delete(d.subscribers, id)
		d.mu.Unlock()
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return stream, cleanup
}

// Publish delivers the change to every subscriber that has buffer room.
func (d *ChangeDispatcher) Publish(change catalog.Change) {
	d.mu.RLock()
	streams := make([]chan catalog.Change, 0, len(d.subscribers))
	for _, stream := range d.subscribers {
		streams = append(streams, stream)
	}
	d.mu.RUnlock()

	for _, stream := range streams {
		select {
		case stream <- change:
		default:
		}
	}
}
