// Package synchronizer runs work identified by a key so that work sharing a
// key executes one at a time, in submission order, while work for different
// keys runs concurrently.
//
// Unlike a worker-per-key scheduler there are no goroutines per key: every
// submission links itself behind the previous one for the same key and waits
// for it to finish. A key's bookkeeping is dropped as soon as nothing is
// queued or running for it.
package synchronizer

import (
	"context"
	"sync"
)

// Default is the process-wide synchronizer providers use when none is configured.
// Keys are compared by value, so pointer keys give per-instance exclusion.
var Default = New[any]()

var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Synchronizer serializes operations per key.
type Synchronizer[K comparable] struct {
	mu     sync.Mutex
	queues map[K]*queue
}

// queue is the chain for one key. tail is closed when the newest submission
// has finished; count is the number of submissions queued or running.
// A queue is in the map if and only if count > 0.
type queue struct {
	tail  chan struct{}
	count int
}

// New creates a new Synchronizer.
func New[K comparable]() *Synchronizer[K] {
	return &Synchronizer[K]{
		queues: make(map[K]*queue),
	}
}

// Do runs fn once every earlier submission for key has finished, and returns
// fn's error. The outcome of a previous submission, success, error or panic,
// does not affect later ones.
//
// If ctx is done while waiting, Do returns the context error without running
// fn. Its place in the queue is still handed to the next submission in order.
// Once fn has started it is not interrupted; fn receives ctx and may watch it.
func (s *Synchronizer[K]) Do(ctx context.Context, key K, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prev, mine := s.enqueue(key)

	select {
	case <-prev:
	case <-ctx.Done():
		go func() {
			<-prev
			s.release(key, mine)
		}()
		return ctx.Err()
	}

	defer s.release(key, mine)
	return fn(ctx)
}

// Run is Do for operations that return a value.
func Run[K comparable, T any](ctx context.Context, s *Synchronizer[K], key K, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.Do(ctx, key, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// Len returns the number of keys with queued or running work.
func (s *Synchronizer[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}

// Pending returns how many submissions for key are queued or running.
func (s *Synchronizer[K]) Pending(key K) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[key]; ok {
		return q.count
	}
	return 0
}

// enqueue links a new slot behind the current tail for key. The caller owns
// the slot: it may run once prev is closed, and must release mine exactly once.
func (s *Synchronizer[K]) enqueue(key K) (prev <-chan struct{}, mine chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.queues[key]
	if !ok {
		q = &queue{tail: closed}
		s.queues[key] = q
	}

	prev = q.tail
	mine = make(chan struct{})
	q.tail = mine
	q.count++
	return prev, mine
}

func (s *Synchronizer[K]) release(key K, mine chan struct{}) {
	close(mine)

	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queues[key]
	q.count--
	if q.count == 0 {
		delete(s.queues, key)
	}
}
