package api

import (
	"context"

	"github.com/krisalay/cached-provider/refresh"
)

/*
Provider defines the PUBLIC API of a cached provider.
This is a contract that guarantees certain behaviors without exposing internals.
Locking, TTL evaluation and the background loop are hidden behind it.
*/
type Provider[T any] interface {

	/*
		Get returns the cached value.

		BEHAVIOR:
		---------
		1. If a value is cached and still valid under the get TTL:
		   - Return it immediately, without taking any lock (hitA)

		2. Otherwise wait for the provider's lock, then:
		   - If someone else refreshed meanwhile, return their value (hitS)
		   - Else call the producer, cache its result and return it (miss)

		A producer error is returned as is (wrapped) and leaves the old value in place.
	*/
	Get(ctx context.Context) (T, error)

	/*
		Update refreshes the value if it is stale under the update TTL.
		It follows the same path as Get but does not count as an access.
	*/
	Update(ctx context.Context) error

	/*
		Start runs Update every cfg.Interval in the background.

		BEHAVIOR:
		---------
		- A running schedule is stopped first
		- cfg.ShouldContinue is polled before each tick; false stops the schedule
		- Failures go to cfg.OnError and never stop the schedule
	*/
	Start(cfg refresh.Config) error

	// Stop halts the background refresh. Safe to call when not running.
	Stop()

	// IsRunning reports whether the background refresh is active.
	IsRunning() bool
}
