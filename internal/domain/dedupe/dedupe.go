// Package dedupe tracks idempotency keys of score submissions so evaluator
// retries do not write the same result twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Deduper records seen submission keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) (bool, error)

	// Unrecord forgets key so a failed submission can be retried.
	Unrecord(ctx context.Context, key string) error

	// Size returns the number of keys currently remembered, or -1 when the
	// backend cannot tell cheaply.
	Size(ctx context.Context) int64
}

type entry struct {
	key     string
	expires time.Time
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest once
// maxSize is reached. Only valid for a single service instance.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a process-local deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: 50_000,
		ttl:     24 * time.Hour,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt.applyMemory(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expireLocked(now)

	if _, ok := d.seen[key]; ok {
		return true, nil
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.removeLocked(d.order.Front())
	}

	el := d.order.PushBack(&entry{key: key, expires: now.Add(d.ttl)})
	d.seen[key] = el
	return false, nil
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.removeLocked(el)
	}
	return nil
}

func (d *inMemoryDeduper) Size(_ context.Context) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// expireLocked drops expired keys from the front. Entries share one ttl, so
// the list is also ordered by expiry.
func (d *inMemoryDeduper) expireLocked(now time.Time) {
	for el := d.order.Front(); el != nil; el = d.order.Front() {
		if el.Value.(*entry).expires.After(now) {
			return
		}
		d.removeLocked(el)
	}
}

func (d *inMemoryDeduper) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	e := d.order.Remove(el).(*entry)
	delete(d.seen, e.key)
}
