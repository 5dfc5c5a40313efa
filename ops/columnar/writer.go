package columnar

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/logger"
	"github.com/kbukum/pipedata/ops/records"
	"github.com/kbukum/pipedata/pipeline"
	"github.com/kbukum/pipedata/resilience"
)

// Writer returns a step that writes its records to parquet files and yields
// the path of each file once it is closed.
//
// With a maximum file length the template must contain a placeholder, {i}
// or a zero padded {i:04d}, which is replaced by the file number starting
// at 1. Without one a single file is written at the template path.
//
// If the step is closed before its input is exhausted, the partially written
// file is removed and never yielded.
func Writer(pathTemplate string, opts ...Option) (*pipeline.Step[records.Record, string], error) {
	o := newOptions("parquet_writer", opts)
	if o.rowGroupLength < 0 {
		return nil, errors.InvalidConfig("row_group_length", "must not be negative")
	}
	if o.maxFileLength < 0 {
		return nil, errors.InvalidConfig("max_file_length", "must not be negative")
	}
	if o.maxFileLength > 0 && !HasPlaceholder(pathTemplate) {
		return nil, errors.InvalidConfig("path",
			"writing to multiple files needs a path with an {i} placeholder, got "+pathTemplate)
	}
	if o.schema != nil {
		if err := checkSchema(o.schema); err != nil {
			return nil, err
		}
	}
	if o.rowGroupLength == 0 {
		o.rowGroupLength = o.maxFileLength
	}
	return pipeline.NewStep(o.name, func(in pipeline.Iterator[records.Record]) pipeline.Iterator[string] {
		return &writerIter{source: in, template: pathTemplate, opts: o, schema: o.schema, number: 1}
	}), nil
}

type openFile struct {
	path  string // yielded path
	local string // file on disk, a staging copy when a store is set
	fw    *pqarrow.FileWriter
	rows  int
}

type writerIter struct {
	source   pipeline.Iterator[records.Record]
	template string
	opts     options

	schema    *arrow.Schema
	inferred  bool
	number    int
	cur       *openFile
	exhausted bool
}

func (it *writerIter) Next(ctx context.Context) (string, bool, error) {
	for {
		if it.exhausted {
			if it.cur != nil {
				return it.finish(ctx)
			}
			return "", false, nil
		}
		batch, err := it.pull(ctx)
		if err != nil {
			return "", false, err
		}
		if len(batch) > 0 {
			if err := it.write(batch); err != nil {
				return "", false, err
			}
		}
		if it.cur != nil && it.opts.maxFileLength > 0 && it.cur.rows >= it.opts.maxFileLength {
			return it.finish(ctx)
		}
	}
}

// pull reads the next row group, everything that is left when no length is
// set.
func (it *writerIter) pull(ctx context.Context) ([]records.Record, error) {
	var batch []records.Record
	if n := it.opts.rowGroupLength; n > 0 {
		batch = make([]records.Record, 0, n)
	}
	for it.opts.rowGroupLength <= 0 || len(batch) < it.opts.rowGroupLength {
		rec, ok, err := it.source.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			it.exhausted = true
			break
		}
		batch = append(batch, rec)
	}
	return batch, nil
}

func (it *writerIter) write(batch []records.Record) error {
	if it.schema == nil {
		it.schema = InferSchema(batch)
		it.inferred = true
	}
	if it.cur == nil {
		if err := it.open(); err != nil {
			return err
		}
	}
	rec, err := buildRecord(it.schema, batch, it.inferred)
	if err != nil {
		return err
	}
	defer rec.Release()
	if err := it.cur.fw.Write(rec); err != nil {
		return errors.SinkFailed(it.cur.path, err)
	}
	it.cur.rows += len(batch)
	return nil
}

func (it *writerIter) open() error {
	path := it.template
	if it.opts.maxFileLength > 0 {
		path = FormatPath(it.template, it.number)
	}

	var (
		f   *os.File
		err error
	)
	if it.opts.store == nil {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.SinkFailed(path, err)
			}
		}
		f, err = os.Create(path)
	} else {
		f, err = os.CreateTemp(it.opts.tempDir, "pipedata-*.parquet")
	}
	if err != nil {
		return errors.SinkFailed(path, err)
	}

	props := []parquet.WriterProperty{parquet.WithCompression(it.opts.compression)}
	if it.opts.rowGroupLength > 0 {
		props = append(props, parquet.WithMaxRowGroupLength(int64(it.opts.rowGroupLength)))
	}
	fw, err := pqarrow.NewFileWriter(it.schema, f,
		parquet.NewWriterProperties(props...),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		f.Close()           //nolint:errcheck
		os.Remove(f.Name()) //nolint:errcheck
		return errors.SinkFailed(path, err)
	}
	it.opts.log.Debug("Opened parquet file", logger.Fields(logger.FieldPath, path))
	it.cur = &openFile{path: path, local: f.Name(), fw: fw}
	return nil
}

// finish closes the open file, uploads it when a store is set and returns
// its path.
func (it *writerIter) finish(ctx context.Context) (string, bool, error) {
	cur := it.cur
	it.cur = nil
	it.number++

	// Close also closes the underlying *os.File.
	if err := cur.fw.Close(); err != nil {
		os.Remove(cur.local) //nolint:errcheck
		return "", false, errors.SinkFailed(cur.path, err)
	}
	if it.opts.store != nil {
		if err := it.upload(ctx, cur); err != nil {
			return "", false, err
		}
	}
	it.opts.log.Info("Wrote parquet file", logger.Fields(logger.FieldPath, cur.path, logger.FieldRows, cur.rows))
	return cur.path, true, nil
}

// upload copies the staged file to the store. Each attempt reopens the
// file so a retried upload starts from its first byte.
func (it *writerIter) upload(ctx context.Context, cur *openFile) error {
	defer os.Remove(cur.local) //nolint:errcheck
	retry := it.opts.retry
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		it.opts.log.WithError(err).Warn("Retrying parquet upload", logger.Fields(logger.FieldPath, cur.path, "attempt", attempt, "backoff", backoff.String()))
	}
	return resilience.RetryFunc(ctx, retry, func(ctx context.Context) error {
		f, err := os.Open(cur.local)
		if err != nil {
			return errors.SinkFailed(cur.path, err)
		}
		defer f.Close() //nolint:errcheck
		return it.opts.store.Upload(ctx, cur.path, f)
	})
}

func (it *writerIter) Close() error {
	if cur := it.cur; cur != nil {
		it.cur = nil
		cur.fw.Close()       //nolint:errcheck
		os.Remove(cur.local) //nolint:errcheck
		it.opts.log.Warn("Discarded unfinished parquet file", logger.Fields(logger.FieldPath, cur.path, logger.FieldRows, cur.rows))
	}
	return it.source.Close()
}
