package pipeline

import "sync"

// IdentityName is the name of the pass-through step at the root of every chain.
const IdentityName = "identity"

// Step is a named transform from one lazy sequence to another.
//
// Applying a step wraps both its input and its output in a fresh Counter.
// Only the most recent application is counted: applying the step again
// replaces both counters.
type Step[I, O any] struct {
	name      string
	transform func(Iterator[I]) Iterator[O]

	mu     sync.Mutex
	input  *Counter[I]
	output *Counter[O]
}

// NewStep creates a step. The name is reported verbatim in step counts.
func NewStep[I, O any](name string, transform func(Iterator[I]) Iterator[O]) *Step[I, O] {
	return &Step[I, O]{name: name, transform: transform}
}

// Transform is NewStep under the name used for general, many-to-many stages.
func Transform[I, O any](name string, transform func(Iterator[I]) Iterator[O]) *Step[I, O] {
	return NewStep(name, transform)
}

// Name returns the step name.
func (s *Step[I, O]) Name() string { return s.name }

// Apply threads in through the transform and returns the counted output.
// No value is pulled until the returned iterator is.
func (s *Step[I, O]) Apply(in Iterator[I]) Iterator[O] {
	input := NewCounter(in)
	output := NewCounter(s.transform(input))

	s.mu.Lock()
	s.input, s.output = input, output
	s.mu.Unlock()
	return output
}

// Counts returns the input and output counts of the latest application,
// or (0, 0) if the step has never been applied.
func (s *Step[I, O]) Counts() (inputs, outputs int) {
	s.mu.Lock()
	input, output := s.input, s.output
	s.mu.Unlock()
	return input.Count(), output.Count()
}

func (s *Step[I, O]) stepCount() StepCount {
	inputs, outputs := s.Counts()
	return StepCount{Name: s.name, Inputs: inputs, Outputs: outputs}
}

// fresh returns an unapplied copy sharing the name and transform.
func (s *Step[I, O]) fresh() *Step[I, O] {
	return NewStep(s.name, s.transform)
}

func identity[T any]() *Step[T, T] {
	return NewStep(IdentityName, func(in Iterator[T]) Iterator[T] { return in })
}
