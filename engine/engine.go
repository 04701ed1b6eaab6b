package engine

import (
	"time"

	"github.com/golang/glog"

	"github.com/krisalay/cached-provider/expiration"
	"github.com/krisalay/cached-provider/types"
)

/*
CacheEngine is the policy layer of a cached provider.
It is responsible for the "rules", NOT storage or locking.

It decides:
- Which TTL policy applies to a foreground Get and which to a background Update
- Whether a cached value is still valid at a given instant
- What time it is (the clock is injectable for tests)
- How events reach the observer
*/
type CacheEngine[T any] struct {

	// GetPolicy is the TTL used by foreground reads.
	GetPolicy expiration.Policy[T]

	// UpdatePolicy is the TTL used by refreshes. It is usually shorter than
	// GetPolicy so that background refreshes happen before readers see a miss.
	UpdatePolicy expiration.Policy[T]

	// Observer receives one event per call. Never nil.
	Observer types.Observer

	// Clock returns the current time. Never nil.
	Clock func() time.Time
}

/*
NewCacheEngine creates a CacheEngine.

update may be nil, in which case refreshes use the get policy.
observer and clock fall back to a no-op observer and time.Now.
*/
func NewCacheEngine[T any](
	get expiration.Policy[T],
	update expiration.Policy[T],
	observer types.Observer,
	clock func() time.Time,
) *CacheEngine[T] {

	if update == nil {
		update = get
	}
	if observer == nil {
		observer = types.NoopObserver{}
	}
	if clock == nil {
		clock = time.Now
	}

	return &CacheEngine[T]{
		GetPolicy:    get,
		UpdatePolicy: update,
		Observer:     observer,
		Clock:        clock,
	}
}

// Now reads the engine clock.
func (e *CacheEngine[T]) Now() time.Time {
	return e.Clock()
}

// Policy returns the TTL policy for the given entry point.
func (e *CacheEngine[T]) Policy(m types.MethodType) expiration.Policy[T] {
	if m == types.MethodUpdate {
		return e.UpdatePolicy
	}
	return e.GetPolicy
}

// IsValid checks h against the policy for m at now.
func (e *CacheEngine[T]) IsValid(m types.MethodType, h *types.Holder[T], accessedAt, now time.Time) (bool, error) {
	return expiration.IsValid(e.Policy(m), h, accessedAt, now)
}

// TimeToLive evaluates the policy for m against h at now.
func (e *CacheEngine[T]) TimeToLive(m types.MethodType, h *types.Holder[T], accessedAt, now time.Time) (time.Duration, error) {
	return expiration.TimeToLive(e.Policy(m), h, accessedAt, now)
}

/*
Emit hands ev to the observer.

A panicking observer is logged and otherwise ignored; the call that produced
the event has already succeeded.
*/
func (e *CacheEngine[T]) Emit(ev types.Event) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("cache observer panicked on %s/%s: %v", ev.Method, ev.Type, r)
		}
	}()
	e.Observer.Observe(ev)
}
