package pipeline

import (
	"context"
	"sync"

	"github.com/kbukum/pipedata/errors"
)

// ErrEmptyReduce is returned by Stream.Reduce when the stream has no values.
var ErrEmptyReduce = errors.EmptySequence("reduce")

// Stream is a chain bound to one source. It is itself an Iterator.
//
// Streams derived from a stream with Via, Filter or Pipe share its source:
// pulling from any of them advances the source for all of them. A stream is
// single-pass and is exhausted for good once its source is.
type Stream[T any] struct {
	open   func() Iterator[T]
	counts func() Report
	iter   Iterator[T]
}

// NewStream binds src to the root chain.
func NewStream[T any](src Iterator[T]) *Stream[T] {
	return Bind(src, Start[T]())
}

// Bind binds src to chain. Constructing the stream applies the chain, which
// resets the counts of every step in it.
func Bind[S, E any](src Iterator[S], chain *Chain[S, E]) *Stream[E] {
	shared := &sharedSource[S]{Iterator: src}
	return newStream(
		func() Iterator[E] { return chain.Apply(shared) },
		chain.Counts,
	)
}

// Via returns a new stream that extends s with step.
func Via[T, O any](s *Stream[T], step *Step[T, O]) *Stream[O] {
	link := step.fresh()
	return newStream(
		func() Iterator[O] { return link.Apply(s.open()) },
		func() Report { return append(s.counts(), link.stepCount()) },
	)
}

func newStream[T any](open func() Iterator[T], counts func() Report) *Stream[T] {
	return &Stream[T]{
		open:   open,
		counts: counts,
		iter:   open(),
	}
}

// Filter returns a new stream keeping values that satisfy pred.
func (s *Stream[T]) Filter(name string, pred func(T) bool) *Stream[T] {
	return Via(s, Filter(name, pred))
}

// Pipe returns a new stream extended by steps in order.
func (s *Stream[T]) Pipe(steps ...*Step[T, T]) *Stream[T] {
	out := s
	for _, step := range steps {
		out = Via(out, step)
	}
	return out
}

// Next pulls the next value through the whole chain.
func (s *Stream[T]) Next(ctx context.Context) (T, bool, error) {
	return s.iter.Next(ctx)
}

// Close closes every stage of the stream and the shared source. Sibling
// streams see an exhausted or closed source afterwards.
func (s *Stream[T]) Close() error {
	return s.iter.Close()
}

// Counts returns the step counts of this stream's chain, oldest first.
// They only reflect values actually pulled so far.
func (s *Stream[T]) Counts() Report {
	return s.counts()
}

// ToSlice pulls every remaining value. A second call returns an empty slice.
func (s *Stream[T]) ToSlice(ctx context.Context) ([]T, error) {
	return take(ctx, s.iter, -1)
}

// Take pulls up to n values. n <= 0 pulls nothing.
func (s *Stream[T]) Take(ctx context.Context, n int) ([]T, error) {
	if n <= 0 {
		return make([]T, 0), nil
	}
	return take(ctx, s.iter, n)
}

// Reduce folds the remaining values with fn, seeded by the first value.
// It returns ErrEmptyReduce if there is no first value.
func (s *Stream[T]) Reduce(ctx context.Context, fn func(acc, val T) T) (T, error) {
	acc, ok, err := s.iter.Next(ctx)
	if err != nil {
		return acc, err
	}
	if !ok {
		var zero T
		return zero, ErrEmptyReduce
	}
	return fold(ctx, s.iter, acc, fn)
}

// Fold folds the remaining values of s into initial with fn.
func Fold[T, R any](ctx context.Context, s *Stream[T], initial R, fn func(acc R, val T) R) (R, error) {
	return fold(ctx, s.iter, initial, fn)
}

func fold[T, R any](ctx context.Context, it Iterator[T], acc R, fn func(R, T) R) (R, error) {
	for {
		val, ok, err := it.Next(ctx)
		if err != nil {
			return acc, err
		}
		if !ok {
			return acc, nil
		}
		acc = fn(acc, val)
	}
}

// sharedSource closes the source once, however many streams share it.
type sharedSource[T any] struct {
	Iterator[T]
	once sync.Once
	err  error
}

func (s *sharedSource[T]) Close() error {
	s.once.Do(func() { s.err = s.Iterator.Close() })
	return s.err
}
