// This file defines how long a cached value stays valid.

package expiration

import (
	"errors"
	"time"

	"github.com/krisalay/cached-provider/types"
)

// ErrNoHolder is returned by TimeToLive when nothing has been cached yet.
var ErrNoHolder = errors.New("expiration: no cached value")

/*
Input is everything a Policy may look at when deciding a time-to-live.

Accessed is false when the value has never been read; AccessedAt and
SinceAccessedAt are zero in that case.
*/
type Input[T any] struct {
	Value      T
	CachedAt   time.Time
	AccessedAt time.Time
	Accessed   bool

	Now             time.Time
	SinceCachedAt   time.Duration
	SinceAccessedAt time.Duration
}

/*
Policy is the interface every TTL rule follows. Instead of hard-coding one
expiry rule into the provider, we let the caller pick a fixed duration or a
function of the cached value's metadata.

TimeToLive must not have side effects: it is evaluated on every Get, sometimes
twice per call.
*/
type Policy[T any] interface {
	TimeToLive(in Input[T]) (time.Duration, error)
}

type fixed[T any] time.Duration

// Fixed returns a policy that always answers d.
func Fixed[T any](d time.Duration) Policy[T] {
	return fixed[T](d)
}

func (f fixed[T]) TimeToLive(Input[T]) (time.Duration, error) {
	return time.Duration(f), nil
}

// Func is a policy computed from the value's metadata. A returned error
// fails the Get or Update that evaluated it.
type Func[T any] func(in Input[T]) (time.Duration, error)

func (f Func[T]) TimeToLive(in Input[T]) (time.Duration, error) {
	return f(in)
}

// Dynamic wraps a policy function that cannot fail.
func Dynamic[T any](fn func(in Input[T]) time.Duration) Policy[T] {
	return Func[T](func(in Input[T]) (time.Duration, error) {
		return fn(in), nil
	})
}

// NewInput builds the metadata snapshot for holder h as seen at now.
// A zero accessedAt means the value was never read.
func NewInput[T any](h *types.Holder[T], accessedAt, now time.Time) Input[T] {
	in := Input[T]{
		Value:         h.Value,
		CachedAt:      h.CachedAt,
		Now:           now,
		SinceCachedAt: now.Sub(h.CachedAt),
	}
	if !accessedAt.IsZero() {
		in.Accessed = true
		in.AccessedAt = accessedAt
		in.SinceAccessedAt = now.Sub(accessedAt)
	}
	return in
}

// TimeToLive evaluates p for holder h at now.
func TimeToLive[T any](p Policy[T], h *types.Holder[T], accessedAt, now time.Time) (time.Duration, error) {
	if h == nil {
		return 0, ErrNoHolder
	}
	return p.TimeToLive(NewInput(h, accessedAt, now))
}

/*
IsValid reports whether h may still be served at now.

A missing holder is never valid. Otherwise the value is valid while the time
left, ttl - (now - cachedAt), is not negative: a value exactly at its TTL is
still served.
*/
func IsValid[T any](p Policy[T], h *types.Holder[T], accessedAt, now time.Time) (bool, error) {
	if h == nil {
		return false, nil
	}
	ttl, err := TimeToLive(p, h, accessedAt, now)
	if err != nil {
		return false, err
	}
	return ttl-now.Sub(h.CachedAt) >= 0, nil
}
