package types

/*
Observer receives one Event per Get/Update call.

Observe runs on the caller's goroutine right before the call returns, so it
must be fast. It is a best-effort sink: nothing in the provider depends on it.
*/
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

/*
NoopObserver ignores every event. Providers fall back to it when no observer
is configured so the hot path never checks for nil.
*/
type NoopObserver struct{}

func (NoopObserver) Observe(Event) {}
