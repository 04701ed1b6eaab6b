package types

import "time"

// MethodType tells which entry point produced an Event.
type MethodType int

const (
	// MethodGet is a foreground read.
	MethodGet MethodType = iota
	// MethodUpdate is a refresh, usually fired by the auto updater.
	MethodUpdate
)

func (m MethodType) String() string {
	switch m {
	case MethodGet:
		return "get"
	case MethodUpdate:
		return "update"
	}
	return "unknown"
}

// EventType classifies how a call was resolved.
type EventType int

const (
	// HitA means the value was valid on the lock-free check.
	HitA EventType = iota
	// HitS means the value became valid while the call waited for the lock.
	HitS
	// Miss means the producer ran.
	Miss
)

func (e EventType) String() string {
	switch e {
	case HitA:
		return "hitA"
	case HitS:
		return "hitS"
	case Miss:
		return "miss"
	}
	return "unknown"
}

/*
Event describes one finished Get or Update call.

AccessedAt is the zero time when the provider has never been read.
*/
type Event struct {
	Method     MethodType
	Type       EventType
	RequestAt  time.Time
	ResponseAt time.Time
	CachedAt   time.Time
	AccessedAt time.Time
}

// Latency is the time the call took end to end.
func (e Event) Latency() time.Duration {
	return e.ResponseAt.Sub(e.RequestAt)
}
