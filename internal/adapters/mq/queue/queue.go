// Package queue holds the task queue that feeds a session loop.
//
// Producers are timers and finished network calls running on their own
// goroutines; the single consumer is the loop goroutine.
package queue

import (
	"context"
	"sync"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultBufferSize = 256
	defaultName       = "loop"
)

// Task is a unit of work run on the consumer goroutine.
type Task func()

// Queue provides enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a task without blocking.
	// Returns false if the queue is full, closed, or ctx is done.
	Enqueue(ctx context.Context, t Task) bool

	// Put adds a task, waiting for room until ctx is done.
	Put(ctx context.Context, t Task) error

	// Dequeue returns the channel tasks are delivered on.
	// The channel is closed when the queue is closed.
	Dequeue() <-chan Task

	// Len returns the current number of queued tasks.
	Len() int

	// Close shuts the queue down. Further enqueues fail.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	tasks      chan Task
	bufferSize int
	name       string

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		bufferSize: defaultBufferSize,
		name:       defaultName,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.tasks = make(chan Task, q.bufferSize)
	metrics.UpdateLoopQueueSize(q.name, 0)

	return q
}

// Enqueue adds a task without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || t == nil {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	default:
	}

	select {
	case q.tasks <- t:
		metrics.UpdateLoopQueueSize(q.name, len(q.tasks))
		return true
	default:
		return false // queue is full
	}
}

// Put adds a task, blocking while the buffer is full.
func (q *InMemoryQueue) Put(ctx context.Context, t Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	if t == nil {
		return ErrNilTask
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case q.tasks <- t:
		metrics.UpdateLoopQueueSize(q.name, len(q.tasks))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue returns the channel tasks are delivered on.
func (q *InMemoryQueue) Dequeue() <-chan Task {
	return q.tasks
}

// Len returns the current number of queued tasks.
func (q *InMemoryQueue) Len() int {
	size := len(q.tasks)
	metrics.UpdateLoopQueueSize(q.name, size)
	return size
}

// Close shuts the queue down. Callers must cancel any blocked Put first.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}

	close(q.tasks)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
