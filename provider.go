package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/krisalay/cached-provider/api"
	"github.com/krisalay/cached-provider/engine"
	"github.com/krisalay/cached-provider/refresh"
	"github.com/krisalay/cached-provider/synchronizer"
	"github.com/krisalay/cached-provider/types"
)

/*
Provider memoizes one value produced by an expensive call.

This struct is the orchestrator that connects:
- the holder (current value + when it was produced)
- the engine (TTL policies, clock, event emission)
- the synchronizer (at most one refresh at a time)
- the auto updater
*/
type Provider[T any] struct {

	// engine contains the rules: which TTL applies, what time it is, where events go.
	engine *engine.CacheEngine[T]

	producer types.Producer[T]

	// sync and key serialize every refresh of this provider.
	sync *synchronizer.Synchronizer[any]
	key  any

	// holder is only written inside the synchronizer and always replaced whole,
	// so readers can load it without locking.
	holder atomic.Pointer[types.Holder[T]]

	// accessedAt is the start of the most recent Get; nil until the first one.
	accessedAt atomic.Pointer[time.Time]

	updater *refresh.Scheduler
}

var _ api.Provider[any] = (*Provider[any])(nil)

// New creates a provider. If opts.AutoUpdater is set, the background refresh starts immediately.
func New[T any](opts Options[T]) (*Provider[T], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var updateTTL = opts.TTL
	if opts.AutoUpdater != nil && opts.AutoUpdater.TTL != nil {
		updateTTL = opts.AutoUpdater.TTL
	}

	p := &Provider[T]{
		engine:   engine.NewCacheEngine(opts.TTL, updateTTL, opts.OnEvent, opts.Clock),
		producer: opts.Producer,
		sync:     opts.Synchronizer,
	}
	if p.sync == nil {
		p.sync = synchronizer.Default
	}
	p.key = p
	p.updater = refresh.NewScheduler(p)

	if au := opts.AutoUpdater; au != nil {
		err := p.Start(refresh.Config{
			Interval:       au.Interval,
			ShouldContinue: au.ShouldContinue,
			OnError:        au.OnError,
		})
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

/*
Get returns the cached value, calling the producer if it has expired.

Concurrent callers share one producer call: the first one through the lock
refreshes, the rest find the new value when they get their turn.
*/
func (p *Provider[T]) Get(ctx context.Context) (T, error) {
	h, err := p.resolve(ctx, types.MethodGet)
	if err != nil {
		var zero T
		return zero, err
	}
	return h.Value, nil
}

// Update refreshes the value if it has expired under the refresh TTL.
func (p *Provider[T]) Update(ctx context.Context) error {
	_, err := p.resolve(ctx, types.MethodUpdate)
	return err
}

// Peek returns the current value without checking its TTL or calling the producer.
func (p *Provider[T]) Peek() (value T, cachedAt time.Time, ok bool) {
	h := p.holder.Load()
	if h == nil {
		return value, cachedAt, false
	}
	return h.Value, h.CachedAt, true
}

// Start runs the auto updater with cfg, replacing any running schedule.
func (p *Provider[T]) Start(cfg refresh.Config) error {
	return p.updater.Start(cfg)
}

// Stop halts the auto updater.
func (p *Provider[T]) Stop() {
	p.updater.Stop()
}

// IsRunning reports whether the auto updater is active.
func (p *Provider[T]) IsRunning() bool {
	return p.updater.IsRunning()
}

// Close stops the auto updater and waits for its goroutine to exit.
func (p *Provider[T]) Close() {
	p.updater.Stop()
	p.updater.Wait()
}

func (p *Provider[T]) resolve(ctx context.Context, m types.MethodType) (*types.Holder[T], error) {
	requestAt := p.engine.Now()

	h, kind, err := p.getOrUpdate(ctx, m, requestAt)

	responseAt := p.engine.Now()
	if m == types.MethodGet {
		p.touch(requestAt)
	}
	if err != nil {
		return nil, err
	}

	p.engine.Emit(types.Event{
		Method:     m,
		Type:       kind,
		RequestAt:  requestAt,
		ResponseAt: responseAt,
		CachedAt:   h.CachedAt,
		AccessedAt: p.lastAccess(),
	})
	return h, nil
}

func (p *Provider[T]) getOrUpdate(ctx context.Context, m types.MethodType, now time.Time) (*types.Holder[T], types.EventType, error) {
	// Fast path: no lock when the current value is still valid.
	h := p.holder.Load()
	ok, err := p.engine.IsValid(m, h, p.lastAccess(), now)
	if err != nil {
		return nil, 0, fmt.Errorf("cache: ttl policy: %w", err)
	}
	if ok {
		return h, types.HitA, nil
	}

	r, err := synchronizer.Run(ctx, p.sync, p.key, func(ctx context.Context) (resolved[T], error) {
		// Another caller may have refreshed while we waited.
		h := p.holder.Load()
		ok, err := p.engine.IsValid(m, h, p.lastAccess(), p.engine.Now())
		if err != nil {
			return resolved[T]{}, fmt.Errorf("cache: ttl policy: %w", err)
		}
		if ok {
			return resolved[T]{h, types.HitS}, nil
		}

		v, err := p.producer(ctx)
		if err != nil {
			return resolved[T]{}, fmt.Errorf("cache: producer: %w", err)
		}
		h = &types.Holder[T]{Value: v, CachedAt: p.engine.Now()}
		p.holder.Store(h)
		return resolved[T]{h, types.Miss}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return r.h, r.kind, nil
}

// resolved is the outcome of the locked section.
type resolved[T any] struct {
	h    *types.Holder[T]
	kind types.EventType
}

func (p *Provider[T]) lastAccess() time.Time {
	if t := p.accessedAt.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// touch records an access at t unless a later one is already recorded.
func (p *Provider[T]) touch(t time.Time) {
	for {
		cur := p.accessedAt.Load()
		if cur != nil && cur.After(t) {
			return
		}
		if p.accessedAt.CompareAndSwap(cur, &t) {
			return
		}
	}
}
