// Package pipeline provides lazy, pull-based chains of named, counted steps.
//
// Nothing runs until values are pulled. Each pull travels from the consumer
// back through every step to the source and returns one value, so long or
// unbounded inputs flow through without being materialized. Every step
// counts the values that entered and left it during its latest application;
// Chain.Counts and Stream.Counts report them oldest step first, starting
// with the root "identity" step.
//
// Exhaustion is the ok flag of Iterator.Next. Zero values are ordinary values.
//
// # Building blocks
//
//   - Iterator: the pull contract shared by sources, steps and streams
//   - Counter: counts the values an iterator delivers
//   - Step: a named transform, counted on both sides
//   - Chain: an immutable list of steps, extended with Then or Pipe
//   - Stream: a chain bound to a source, with Reduce, Fold, ToSlice and Take
//
// # Steps
//
//   - Filter: keep values matching a predicate
//   - Map: transform each value
//   - FlatMap / Transform: zero or more outputs per input
//   - BatchedMap / Batch: fixed-size groups (n <= 0 groups everything, which is not lazy)
//   - Grouper: groups delimited by starter and ender predicates
//   - Flatten / FlattenSlices: concatenate nested sequences
//   - Tap: side effects such as logging
//
// # Usage
//
//	chain := pipeline.Then(pipeline.Start[int](), pipeline.Map("double",
//	    func(_ context.Context, n int) (int, error) { return n * 2, nil }))
//	chain = chain.Filter("small", func(n int) bool { return n < 10 })
//
//	s := pipeline.Bind(pipeline.FromSlice([]int{1, 2, 3, 4, 5, 6}), chain)
//	got, err := s.ToSlice(ctx) // [2 4 6 8]
//	report := s.Counts()      // identity 6/6, double 6/6, small 6/4
//
// Element types change through the package functions Then and Via; Go
// methods cannot introduce type parameters. Filter and Pipe are available as
// methods for steps that keep the element type.
//
// The engine is single-threaded and starts no goroutines. Counts may be read
// concurrently, for example by a metrics scrape.
package pipeline
