package pipeline

import (
	"context"
)

// Filter keeps only values that satisfy the predicate, in order.
func Filter[T any](name string, fn func(T) bool) *Step[T, T] {
	return NewStep(name, func(in Iterator[T]) Iterator[T] {
		return &filterIter[T]{source: in, fn: fn}
	})
}

// Map transforms each value using fn, one output per input.
func Map[I, O any](name string, fn func(context.Context, I) (O, error)) *Step[I, O] {
	return NewStep(name, func(in Iterator[I]) Iterator[O] {
		return &mapIter[I, O]{source: in, fn: fn}
	})
}

// FlatMap transforms each value into an iterator and flattens the results.
func FlatMap[I, O any](name string, fn func(context.Context, I) (Iterator[O], error)) *Step[I, O] {
	return NewStep(name, func(in Iterator[I]) Iterator[O] {
		return &flatMapIter[I, O]{source: in, fn: fn}
	})
}

// Flatten concatenates a sequence of sequences, one level deep. Each inner
// iterator is drained and closed before the next one is pulled.
func Flatten[T any](name string) *Step[Iterator[T], T] {
	return FlatMap(name, func(_ context.Context, inner Iterator[T]) (Iterator[T], error) {
		return inner, nil
	})
}

// FlattenSlices concatenates slices, typically the groups emitted by Grouper
// or a batching step.
func FlattenSlices[T any](name string) *Step[[]T, T] {
	return FlatMap(name, func(_ context.Context, items []T) (Iterator[T], error) {
		return FromSlice(items), nil
	})
}

// Tap calls fn as a side-effect for each value, then passes the value through unchanged.
// Use for logging or progress reporting between stages.
func Tap[T any](name string, fn func(context.Context, T) error) *Step[T, T] {
	return NewStep(name, func(in Iterator[T]) Iterator[T] {
		return &tapIter[T]{source: in, fn: fn}
	})
}

// --- Iterator implementations ---

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		var zero O
		return zero, false, err
	}
	out, err := it.fn(ctx, val)
	if err != nil {
		var zero O
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type flatMapIter[I, O any] struct {
	source  Iterator[I]
	fn      func(context.Context, I) (Iterator[O], error)
	current Iterator[O]
}

func (it *flatMapIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	for {
		if it.current != nil {
			val, ok, err := it.current.Next(ctx)
			if err != nil {
				var zero O
				return zero, false, err
			}
			if ok {
				return val, true, nil
			}
			if err := it.current.Close(); err != nil {
				it.current = nil
				var zero O
				return zero, false, err
			}
			it.current = nil
		}
		in, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			var zero O
			return zero, false, err
		}
		inner, err := it.fn(ctx, in)
		if err != nil {
			var zero O
			return zero, false, err
		}
		it.current = inner
	}
}

func (it *flatMapIter[I, O]) Close() error {
	if it.current != nil {
		_ = it.current.Close()
		it.current = nil
	}
	return it.source.Close()
}

type filterIter[T any] struct {
	source Iterator[T]
	fn     func(T) bool
}

func (it *filterIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return val, false, err
		}
		if it.fn(val) {
			return val, true, nil
		}
	}
}

func (it *filterIter[T]) Close() error { return it.source.Close() }

type tapIter[T any] struct {
	source Iterator[T]
	fn     func(context.Context, T) error
}

func (it *tapIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return val, ok, err
	}
	if err := it.fn(ctx, val); err != nil {
		var zero T
		return zero, false, err
	}
	return val, true, nil
}

func (it *tapIter[T]) Close() error { return it.source.Close() }
