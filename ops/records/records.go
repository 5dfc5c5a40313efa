// Package records decodes byte streams into records.
//
// Every stage here is a pipeline step from any io.Reader type to decoded
// values, so it accepts *files.File members, *os.File handles or plain
// buffers alike. The readers are not closed; whoever produced them owns them.
package records

import (
	"context"
	"fmt"
	"io"

	"github.com/kbukum/pipedata/logger"
	"github.com/kbukum/pipedata/pipeline"
)

// Record is one decoded row or object, keyed by column or field name.
type Record = map[string]any

// Option configures a record reader stage.
type Option func(*options)

type options struct {
	delimiter rune
	path      string
	multiple  bool
	log       *logger.Logger
}

func newOptions(opts []Option) options {
	o := options{delimiter: ',', path: "item"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get(logger.ComponentRecords)
	}
	return o
}

// WithDelimiter sets the CSV field delimiter. Defaults to ','.
func WithDelimiter(r rune) Option {
	return func(o *options) { o.delimiter = r }
}

// WithPath selects which JSON values become records. Path components are
// separated by dots; "item" steps into array elements and any other
// component steps into the object member of that name. "item" (the
// default) streams the elements of a top-level array and "" takes the
// top-level value itself.
func WithPath(path string) Option {
	return func(o *options) { o.path = path }
}

// WithMultipleValues accepts several concatenated top-level JSON values in
// one reader, as in JSON Lines.
func WithMultipleValues(multiple bool) Option {
	return func(o *options) { o.multiple = multiple }
}

// WithLogger sets the logger used to report each reader as it is opened.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// decoder yields the values of one reader; stop releases it early.
type decoder[O any] struct {
	next func() (O, bool, error)
	stop func()
}

// readerIter opens each reader of source in turn and drains its decoder.
type readerIter[R io.Reader, O any] struct {
	source  pipeline.Iterator[R]
	open    func(r R, name string) decoder[O]
	current *decoder[O]
	log     *logger.Logger
	kind    string
}

func newReaderStep[R io.Reader, O any](name, kind string, o options, open func(R, string) decoder[O]) *pipeline.Step[R, O] {
	return pipeline.NewStep(name, func(in pipeline.Iterator[R]) pipeline.Iterator[O] {
		return &readerIter[R, O]{source: in, open: open, log: o.log.WithStep(name), kind: kind}
	})
}

func (it *readerIter[R, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	for {
		if it.current != nil {
			val, ok, err := it.current.next()
			if err != nil || ok {
				return val, ok, err
			}
			it.release()
		}
		r, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			var zero O
			return zero, false, err
		}
		name := sourceName(r)
		it.log.Info("Reading "+it.kind, logger.Fields(logger.FieldPath, name))
		dec := it.open(r, name)
		it.current = &dec
	}
}

func (it *readerIter[R, O]) release() {
	if it.current != nil && it.current.stop != nil {
		it.current.stop()
	}
	it.current = nil
}

func (it *readerIter[R, O]) Close() error {
	it.release()
	return it.source.Close()
}

// sourceName names a reader for logs and errors.
func sourceName(r any) string {
	switch v := r.(type) {
	case fmt.Stringer:
		return v.String()
	case interface{ Name() string }:
		return v.Name()
	default:
		return fmt.Sprintf("%T", r)
	}
}
