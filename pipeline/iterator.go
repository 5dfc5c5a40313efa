package pipeline

import (
	"context"
	"iter"
)

// Iterator provides pull-based sequential access to a stream of values.
//
// Exhaustion is reported through the boolean, never through the value: a
// zero, empty or false element is delivered as (v, true, nil).
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// --- Constructors ---

// FromSlice returns an iterator over items.
func FromSlice[T any](items []T) Iterator[T] {
	return &sliceIter[T]{items: items}
}

// FromFunc returns an iterator that calls next for every value until next
// reports exhaustion or an error.
func FromFunc[T any](next func(ctx context.Context) (T, bool, error)) Iterator[T] {
	return &funcIter[T]{next: next}
}

// FromSeq adapts a range-over-func sequence. Close stops the sequence if it
// was not fully consumed.
func FromSeq[T any](seq iter.Seq[T]) Iterator[T] {
	next, stop := iter.Pull(seq)
	return &seqIter[T]{next: next, stop: stop}
}

// Empty returns an iterator that is exhausted from the start.
func Empty[T any]() Iterator[T] {
	return &sliceIter[T]{}
}

// Collect pulls every remaining value of it into a slice. It does not close it.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	return take(ctx, it, -1)
}

// take pulls up to limit values; a negative limit means no limit.
func take[T any](ctx context.Context, it Iterator[T], limit int) ([]T, error) {
	result := make([]T, 0)
	for limit < 0 || len(result) < limit {
		val, ok, err := it.Next(ctx)
		if err != nil {
			return result, err
		}
		if !ok {
			break
		}
		result = append(result, val)
	}
	return result, nil
}

// --- Internal iterators ---

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type funcIter[T any] struct {
	next func(ctx context.Context) (T, bool, error)
	done bool
}

func (it *funcIter[T]) Next(ctx context.Context) (T, bool, error) {
	if it.done {
		var zero T
		return zero, false, nil
	}
	val, ok, err := it.next(ctx)
	if !ok && err == nil {
		it.done = true
	}
	return val, ok, err
}

func (it *funcIter[T]) Close() error { return nil }

type seqIter[T any] struct {
	next func() (T, bool)
	stop func()
}

func (it *seqIter[T]) Next(_ context.Context) (T, bool, error) {
	val, ok := it.next()
	return val, ok, nil
}

func (it *seqIter[T]) Close() error {
	it.stop()
	return nil
}
