package types

import "context"

/*
Producer is the contract between a cached provider and the expensive computation behind it.

It is called only on a miss, and at most once at a time per provider. A failed call
may be retried straight away by the next Get or background tick, so it must be
safe to call again.
*/
type Producer[T any] func(ctx context.Context) (T, error)
