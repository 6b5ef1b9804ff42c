package store

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TTL is a concurrency-safe, single-slot in-memory cache whose value expires
// a fixed duration after it was written. Expired values are never evicted;
// Get simply stops returning them until the next Put.
type TTL[T any] struct {
	mu sync.RWMutex

	value      T
	producedAt time.Time
	populated  bool

	ttl   time.Duration
	clock clockwork.Clock
}

// NewTTL creates an empty slot with the given expiry. A nil clock means real time.
func NewTTL[T any](ttl time.Duration, clock clockwork.Clock) *TTL[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TTL[T]{
		ttl:   ttl,
		clock: clock,
	}
}

// Get returns the cached value if it was written less than ttl ago.
func (c *TTL[T]) Get() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.populated || c.clock.Since(c.producedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Put unconditionally replaces the cached value and stamps it with the current time.
func (c *TTL[T]) Put(value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = value
	c.producedAt = c.clock.Now()
	c.populated = true
}

// TTL reports the configured expiry window.
func (c *TTL[T]) TTL() time.Duration {
	return c.ttl
}
