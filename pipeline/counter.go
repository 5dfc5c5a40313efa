package pipeline

import (
	"context"
	"sync/atomic"
)

// Counter wraps an iterator and counts the values it delivers.
//
// The count grows by one for every (v, true, nil) result. Exhaustion and
// errors leave it unchanged. Count may be read from any goroutine while the
// iterator is being consumed.
type Counter[T any] struct {
	source Iterator[T]
	count  atomic.Int64
}

// NewCounter wraps source in a fresh Counter with a zero count.
func NewCounter[T any](source Iterator[T]) *Counter[T] {
	return &Counter[T]{source: source}
}

// Next pulls the next value from the wrapped iterator.
func (c *Counter[T]) Next(ctx context.Context) (T, bool, error) {
	val, ok, err := c.source.Next(ctx)
	if ok && err == nil {
		c.count.Add(1)
	}
	return val, ok, err
}

// Close closes the wrapped iterator.
func (c *Counter[T]) Close() error { return c.source.Close() }

// Count returns the number of values delivered so far.
func (c *Counter[T]) Count() int {
	if c == nil {
		return 0
	}
	return int(c.count.Load())
}
