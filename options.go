package cache

import (
	"errors"
	"time"

	"github.com/krisalay/cached-provider/expiration"
	"github.com/krisalay/cached-provider/synchronizer"
	"github.com/krisalay/cached-provider/types"
)

var (
	// ErrNoPolicy is returned by New when Options.TTL is nil.
	ErrNoPolicy = errors.New("cache: ttl policy is required")

	// ErrNoProducer is returned by New when Options.Producer is nil.
	ErrNoProducer = errors.New("cache: producer is required")
)

/*
Options configures a Provider.

TTL and Producer are required. Everything else has a usable zero value.
*/
type Options[T any] struct {

	// TTL decides how long a produced value is served to Get.
	TTL expiration.Policy[T]

	// Producer computes the value on a miss.
	Producer types.Producer[T]

	// OnEvent receives one event per Get/Update. Defaults to a no-op.
	OnEvent types.Observer

	// AutoUpdater, if set, starts a background refresh when the provider is created.
	AutoUpdater *AutoUpdater[T]

	// Clock replaces time.Now. Useful for tests.
	Clock func() time.Time

	// Synchronizer serializes refreshes. Defaults to synchronizer.Default;
	// the provider always locks on its own pointer.
	Synchronizer *synchronizer.Synchronizer[any]
}

// AutoUpdater configures the background refresh started by New.
type AutoUpdater[T any] struct {

	// Interval between refresh attempts. Required.
	Interval time.Duration

	// TTL used by refreshes. Defaults to Options.TTL. Usually shorter, so
	// the value is renewed before readers would see it expire.
	TTL expiration.Policy[T]

	// ShouldContinue is polled on every tick; false stops the updater.
	ShouldContinue func() bool

	// OnError receives refresh failures. Without it they are dropped.
	OnError func(error)
}

func (o Options[T]) validate() error {
	if o.TTL == nil {
		return ErrNoPolicy
	}
	if o.Producer == nil {
		return ErrNoProducer
	}
	return nil
}
