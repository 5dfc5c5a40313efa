package pipeline

import (
	"context"
)

// GroupOption configures Grouper.
type GroupOption[T any] func(*grouping[T])

type grouping[T any] struct {
	starter func(T) bool
	ender   func(T) bool
}

// WithStarter closes the current group before any value matching pred,
// which then opens the next group. It has no effect on an empty group.
func WithStarter[T any](pred func(T) bool) GroupOption[T] {
	return func(g *grouping[T]) { g.starter = pred }
}

// WithEnder closes the current group after any value matching pred.
func WithEnder[T any](pred func(T) bool) GroupOption[T] {
	return func(g *grouping[T]) { g.ender = pred }
}

// Grouper accumulates values into groups.
//
// For each value, in order: if the starter matches and the current group is
// not empty, the group is emitted and a new one begins with the value.
// Otherwise, if the ender matches, the value is appended and the group is
// emitted. Otherwise the value is appended. A non-empty group left at the end
// of the input is emitted last. The starter is checked before the ender.
// With neither set the whole input becomes one group.
func Grouper[T any](name string, opts ...GroupOption[T]) *Step[T, []T] {
	var g grouping[T]
	for _, opt := range opts {
		opt(&g)
	}
	return NewStep(name, func(in Iterator[T]) Iterator[[]T] {
		return &groupIter[T]{source: in, grouping: g}
	})
}

type groupIter[T any] struct {
	grouping[T]
	source Iterator[T]
	group  []T
	done   bool
}

func (it *groupIter[T]) Next(ctx context.Context) (result []T, ok bool, err error) {
	if it.done {
		return nil, false, nil
	}
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			it.done = true
			if len(it.group) == 0 {
				return nil, false, nil
			}
			return it.emit(nil), true, nil
		}

		switch {
		case it.starter != nil && it.starter(val) && len(it.group) > 0:
			return it.emit([]T{val}), true, nil
		case it.ender != nil && it.ender(val):
			it.group = append(it.group, val)
			return it.emit(nil), true, nil
		default:
			it.group = append(it.group, val)
		}
	}
}

// emit returns the current group and replaces it with next.
func (it *groupIter[T]) emit(next []T) []T {
	group := it.group
	it.group = next
	return group
}

func (it *groupIter[T]) Close() error { return it.source.Close() }
