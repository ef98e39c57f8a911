// Package dedupe remembers mutating requests by their request ID so a
// retried call is answered with the original response instead of running
// twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Entry is the remembered outcome of one request.
type Entry struct {
	Status  int
	Body    []byte
	Pending bool
}

// Deduper records request IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and reserves it if
	// not. When seen it returns the stored entry, which is Pending while the
	// first attempt is still running.
	SeenAndRecord(ctx context.Context, id string) (Entry, bool)

	// Complete stores the response of a reserved id.
	Complete(ctx context.Context, id string, e Entry)

	// Unrecord forgets id so the request may be retried, typically after a
	// failure that did not change any state.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type record struct {
	id    string
	entry Entry
}

// inMemoryDeduper keeps at most maxSize IDs and evicts the oldest first.
// maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is newest
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10000,
		seen:    make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) (Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		return el.Value.(*record).entry, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		d.evictOldest()
	}
	d.seen[id] = d.order.PushFront(&record{id: id, entry: Entry{Pending: true}})
	d.size.Add(1)
	return Entry{}, false
}

func (d *inMemoryDeduper) Complete(ctx context.Context, id string, e Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.seen[id]
	if !ok {
		return
	}
	e.Pending = false
	e.Body = append([]byte(nil), e.Body...)
	el.Value.(*record).entry = e
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.order.Remove(el)
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	el := d.order.Back()
	if el == nil {
		return
	}
	d.order.Remove(el)
	delete(d.seen, el.Value.(*record).id)
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
