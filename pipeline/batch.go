package pipeline

import (
	"context"
)

// BatchedMap collects consecutive groups of up to n values and emits fn(group)
// once per group. The last group may be shorter.
//
// n <= 0 treats the whole remaining input as a single group: the step pulls
// its entire input before emitting its only value, which defeats laziness and
// holds every value in memory. Use it only for inputs known to be small.
func BatchedMap[I, O any](name string, fn func(context.Context, []I) (O, error), n int) *Step[I, O] {
	return NewStep(name, func(in Iterator[I]) Iterator[O] {
		return &batchedMapIter[I, O]{source: in, size: n, fn: fn}
	})
}

// Batch emits consecutive groups of up to n values as slices.
func Batch[T any](name string, n int) *Step[T, []T] {
	return BatchedMap(name, func(_ context.Context, group []T) ([]T, error) {
		return group, nil
	}, n)
}

type batchedMapIter[I, O any] struct {
	source Iterator[I]
	size   int
	fn     func(context.Context, []I) (O, error)
	done   bool
}

func (it *batchedMapIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	var zero O
	if it.done {
		return zero, false, nil
	}

	var batch []I
	for it.size <= 0 || len(batch) < it.size {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			return zero, false, err
		}
		if !ok {
			it.done = true
			break
		}
		batch = append(batch, val)
	}
	if len(batch) == 0 {
		return zero, false, nil
	}

	out, err := it.fn(ctx, batch)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

func (it *batchedMapIter[I, O]) Close() error { return it.source.Close() }
