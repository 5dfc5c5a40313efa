package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet/compress"

	"github.com/kbukum/pipedata/logger"
	"github.com/kbukum/pipedata/resilience"
	"github.com/kbukum/pipedata/storage"
)

// DefaultBatchSize is the number of rows a reader decodes at a time.
const DefaultBatchSize = 100_000

// Option configures a Writer, Reader or BatchReader. Options that do not
// apply to a stage are ignored by it.
type Option func(*options)

type options struct {
	name           string
	schema         *arrow.Schema
	rowGroupLength int
	maxFileLength  int
	compression    compress.Compression
	columns        []string
	batchSize      int
	store          storage.Storage
	tempDir        string
	retry          resilience.RetryConfig
	log            *logger.Logger
}

func newOptions(name string, opts []Option) options {
	o := options{
		name:        name,
		compression: compress.Codecs.Snappy,
		batchSize:   DefaultBatchSize,
		retry:       resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get(logger.ComponentColumnar)
	}
	o.log = o.log.WithStep(o.name)
	return o
}

// WithName overrides the step name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithSchema fixes the schema written. Record keys missing from the schema
// are ignored. Without it the schema is inferred from the first row group.
func WithSchema(schema *arrow.Schema) Option {
	return func(o *options) { o.schema = schema }
}

// WithRowGroupLength sets how many records make up a row group. It defaults
// to the maximum file length, and with neither set all records go into a
// single row group.
func WithRowGroupLength(n int) Option {
	return func(o *options) { o.rowGroupLength = n }
}

// WithMaxFileLength rotates to a new file once a file holds at least n
// records. The path template must then contain an {i} placeholder.
func WithMaxFileLength(n int) Option {
	return func(o *options) { o.maxFileLength = n }
}

// WithCompression sets the column codec, snappy by default.
func WithCompression(c compress.Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithColumns restricts a reader to the named columns, in that order.
func WithColumns(columns ...string) Option {
	return func(o *options) { o.columns = columns }
}

// WithBatchSize sets how many rows a reader decodes at a time.
func WithBatchSize(n int) Option {
	return func(o *options) { o.batchSize = n }
}

// WithStorage writes finished files to, or reads files from, store instead
// of the local filesystem.
func WithStorage(store storage.Storage) Option {
	return func(o *options) { o.store = store }
}

// WithTempDir sets where files are staged when a storage backend is used.
func WithTempDir(dir string) Option {
	return func(o *options) { o.tempDir = dir }
}

// WithRetry sets how uploading a finished file to the store is retried.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

// WithLogger sets the logger used to report written and opened files.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}
