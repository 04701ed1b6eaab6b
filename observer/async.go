package observer

import (
	"sync"
	"sync/atomic"

	"github.com/krisalay/cached-provider/types"
)

/*
AsyncObserver moves event handling off the caller's goroutine.

Events are pushed into a buffered channel and a single worker hands them to
the wrapped observer in order. If the buffer is full the event is DROPPED:
blocking would put a slow sink on the provider's hot path.
*/
type AsyncObserver struct {
	next types.Observer

	// mu guards closed so Observe never sends on a closed channel.
	mu     sync.RWMutex
	closed bool
	ch     chan types.Event

	dropped atomic.Int64

	wg sync.WaitGroup
}

// Async starts a worker that forwards events to next through a queue of size buffer.
func Async(next types.Observer, buffer int) *AsyncObserver {
	a := &AsyncObserver{
		next: next,
		ch:   make(chan types.Event, buffer),
	}

	a.wg.Add(1)
	go a.worker()

	return a
}

// Observe queues ev, or drops it when the queue is full or the observer is closed.
func (a *AsyncObserver) Observe(ev types.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.dropped.Add(1)
		return
	}

	select {
	case a.ch <- ev:
	default:
		a.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded.
func (a *AsyncObserver) Dropped() int64 {
	return a.dropped.Load()
}

func (a *AsyncObserver) worker() {
	defer a.wg.Done()

	for ev := range a.ch {
		a.deliver(ev)
	}
}

func (a *AsyncObserver) deliver(ev types.Event) {
	defer func() { _ = recover() }()
	a.next.Observe(ev)
}

/*
Close stops accepting events and waits until everything already queued has
been delivered. Safe to call more than once.
*/
func (a *AsyncObserver) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	a.wg.Wait()
}
