package types

import "time"

// Holder is one cached value and the moment it was produced.
// A Holder is never modified after it is published; a refresh replaces it.
type Holder[T any] struct {
	Value    T
	CachedAt time.Time
}
