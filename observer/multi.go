package observer

import "github.com/krisalay/cached-provider/types"

// MultiObserver forwards every event to each observer in turn, synchronously.
type MultiObserver []types.Observer

// Multi combines observers. Nil entries are skipped.
func Multi(observers ...types.Observer) MultiObserver {
	out := make(MultiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m MultiObserver) Observe(ev types.Event) {
	for _, o := range m {
		o.Observe(ev)
	}
}
