package expiration

import "time"

/*
ActivityAware keeps a value fresh while it is being used and lets it age
when nobody reads it.

If the value was read within Window, the TTL is Active. Otherwise (including
never read) the TTL is Idle. Typically used as the background refresh policy:
a short Active TTL refreshes hot values often, a long Idle TTL stops refreshing
values nobody asks for.
*/
type ActivityAware[T any] struct {
	Active time.Duration
	Idle   time.Duration
	Window time.Duration
}

func (a ActivityAware[T]) TimeToLive(in Input[T]) (time.Duration, error) {
	if in.Accessed && in.SinceAccessedAt < a.Window {
		return a.Active, nil
	}
	return a.Idle, nil
}
