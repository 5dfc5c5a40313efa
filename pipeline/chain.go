package pipeline

// Chain is an immutable composition of steps from S to E.
//
// Every composition returns a new chain whose predecessor is the receiver.
// Applying a chain threads its input through the ancestors oldest first and
// then through its own step, one value per pull, with no buffering unless a
// step adds it.
type Chain[S, E any] struct {
	prev  Reporter
	step  interface{ stepCount() StepCount }
	apply func(Iterator[S]) Iterator[E]
}

// Start returns the root chain. Its identity step anchors the count of
// values read from the source.
func Start[T any]() *Chain[T, T] {
	step := identity[T]()
	return &Chain[T, T]{step: step, apply: step.Apply}
}

// Then appends step to c. The step is copied so that the same step value can
// be linked into several chains without sharing counts.
func Then[S, E, O any](c *Chain[S, E], step *Step[E, O]) *Chain[S, O] {
	link := step.fresh()
	return &Chain[S, O]{
		prev: c,
		step: link,
		apply: func(in Iterator[S]) Iterator[O] {
			return link.Apply(c.Apply(in))
		},
	}
}

// Filter appends a Filter step.
func (c *Chain[S, E]) Filter(name string, pred func(E) bool) *Chain[S, E] {
	return Then(c, Filter(name, pred))
}

// Pipe appends steps in order. c.Pipe(a, b) is Then(Then(c, a), b).
func (c *Chain[S, E]) Pipe(steps ...*Step[E, E]) *Chain[S, E] {
	out := c
	for _, step := range steps {
		out = Then(out, step)
	}
	return out
}

// Apply binds the chain to in and returns the lazily evaluated output.
func (c *Chain[S, E]) Apply(in Iterator[S]) Iterator[E] {
	return c.apply(in)
}

// Counts returns the step counts of the latest application, oldest first.
func (c *Chain[S, E]) Counts() Report {
	var report Report
	if c.prev != nil {
		report = c.prev.Counts()
	}
	return append(report, c.step.stepCount())
}

// Len returns the number of steps including the root.
func (c *Chain[S, E]) Len() int {
	return len(c.Counts())
}

// AsStep wraps the whole chain as a single step, so a prepared chain can be
// linked into another chain or stream. The inner steps keep their own counts.
func (c *Chain[S, E]) AsStep(name string) *Step[S, E] {
	return NewStep(name, c.Apply)
}
