// Package queue provides the bounded outbound frame queue that sits between
// the broadcast hub and each observer's writer.
package queue

import (
	"context"
	"sync"

	"github.com/okian/proctor/pkg/metrics"
)

const defaultCapacity = 256

// Frame is one encoded notification ready to be written to the wire.
type Frame []byte

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame without blocking. Returns false when the queue
	// is full or closed.
	Enqueue(ctx context.Context, f Frame) bool

	// Dequeue returns the receive side of the queue. It is closed by Close.
	Dequeue() <-chan Frame

	// Len returns the number of buffered frames.
	Len() int

	// Close stops accepting frames. Buffered frames remain readable.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	frames   chan Frame
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.frames = make(chan Frame, q.capacity)
	return q
}

// Enqueue adds a frame to the queue. It never blocks, so the caller's
// context does not affect the outcome.
func (q *InMemoryQueue) Enqueue(_ context.Context, f Frame) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.frames <- f:
		metrics.RecordObserverQueueDepth(len(q.frames))
		return true
	default:
		return false
	}
}

// Dequeue returns the channel frames are delivered on.
func (q *InMemoryQueue) Dequeue() <-chan Frame {
	return q.frames
}

// Len returns the current number of queued frames.
func (q *InMemoryQueue) Len() int {
	return len(q.frames)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.frames)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
