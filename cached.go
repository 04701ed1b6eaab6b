package cache

import "context"

// Cached wraps a new provider in a plain function. Calling the function is
// the same as calling Get.
func Cached[T any](opts Options[T]) (func(ctx context.Context) (T, error), error) {
	p, err := New(opts)
	if err != nil {
		return nil, err
	}
	return p.Get, nil
}
