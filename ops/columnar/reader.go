package columnar

import (
	"context"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/logger"
	"github.com/kbukum/pipedata/ops/records"
	"github.com/kbukum/pipedata/pipeline"
	"github.com/kbukum/pipedata/storage"
)

// BatchReader returns a step from parquet paths to arrow record batches of up
// to the configured batch size. Each yielded record is owned by the caller,
// who must Release it.
func BatchReader(opts ...Option) *pipeline.Step[string, arrow.Record] {
	o := newOptions("parquet_batches", opts)
	return pipeline.NewStep(o.name, func(in pipeline.Iterator[string]) pipeline.Iterator[arrow.Record] {
		return &batchIter{source: in, opts: o}
	})
}

// Reader returns a step from parquet paths to their rows as records. Null
// values are present in the record as nil.
func Reader(opts ...Option) *pipeline.Step[string, records.Record] {
	o := newOptions("parquet_reader", opts)
	return pipeline.NewStep(o.name, func(in pipeline.Iterator[string]) pipeline.Iterator[records.Record] {
		return &rowIter{batches: &batchIter{source: in, opts: o}}
	})
}

// Rows converts an arrow record into one Record per row.
func Rows(rec arrow.Record) []records.Record {
	rows := make([]records.Record, rec.NumRows())
	for i := range rows {
		rows[i] = make(records.Record, rec.NumCols())
	}
	for c, col := range rec.Columns() {
		name := rec.ColumnName(c)
		for i := range rows {
			if col.IsNull(i) {
				rows[i][name] = nil
				continue
			}
			rows[i][name] = col.GetOneForMarshal(i)
		}
	}
	return rows
}

type batchIter struct {
	source pipeline.Iterator[string]
	opts   options

	path string
	pf   *file.Reader
	rr   pqarrow.RecordReader
}

func (it *batchIter) Next(ctx context.Context) (arrow.Record, bool, error) {
	for {
		if it.rr != nil {
			if it.rr.Next() {
				rec := it.rr.Record()
				rec.Retain()
				return rec, true, nil
			}
			err := it.rr.Err()
			cerr := it.closeFile()
			if err == nil || err == io.EOF {
				err = cerr
			}
			if err != nil {
				return nil, false, errors.SourceFailed(it.path, err)
			}
		}

		path, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		if err := it.openFile(ctx, path); err != nil {
			return nil, false, err
		}
	}
}

func (it *batchIter) openFile(ctx context.Context, path string) error {
	src, err := it.openSource(ctx, path)
	if err != nil {
		return err
	}
	pf, err := file.NewParquetReader(src)
	if err != nil {
		if c, ok := src.(io.Closer); ok {
			c.Close() //nolint:errcheck
		}
		return errors.InvalidInput(path, "not a parquet file: "+err.Error()).WithCause(err)
	}

	var cols []int
	if len(it.opts.columns) > 0 {
		cols = make([]int, len(it.opts.columns))
		for i, name := range it.opts.columns {
			idx := pf.MetaData().Schema.ColumnIndexByName(name)
			if idx < 0 {
				pf.Close() //nolint:errcheck
				return errors.InvalidInput(path, "no column named "+name)
			}
			cols[i] = idx
		}
	}

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: int64(it.opts.batchSize)}, memory.DefaultAllocator)
	if err != nil {
		pf.Close() //nolint:errcheck
		return errors.InvalidInput(path, err.Error()).WithCause(err)
	}
	rr, err := fr.GetRecordReader(ctx, cols, nil)
	if err != nil {
		pf.Close() //nolint:errcheck
		return errors.InvalidInput(path, err.Error()).WithCause(err)
	}

	it.opts.log.Info("Reading parquet file", logger.Fields(
		logger.FieldPath, path,
		logger.FieldRows, pf.NumRows(),
	))
	it.path, it.pf, it.rr = path, pf, rr
	return nil
}

// openSource returns a random access view of path. Local files are opened
// directly; with a store the object is spooled by storage.OpenReaderAt.
func (it *batchIter) openSource(ctx context.Context, path string) (parquet.ReaderAtSeeker, error) {
	if it.opts.store == nil {
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			return nil, errors.NotFound("file", path)
		}
		if err != nil {
			return nil, errors.SourceFailed(path, err)
		}
		return f, nil
	}
	obj, err := storage.OpenReaderAt(ctx, it.opts.store, path, it.opts.tempDir)
	if err != nil {
		return nil, err
	}
	return &spooled{SectionReader: io.NewSectionReader(obj, 0, obj.Size), obj: obj}, nil
}

func (it *batchIter) closeFile() error {
	if it.rr != nil {
		it.rr.Release()
		it.rr = nil
	}
	if it.pf == nil {
		return nil
	}
	err := it.pf.Close()
	it.pf = nil
	return err
}

func (it *batchIter) Close() error {
	ferr := it.closeFile()
	if err := it.source.Close(); err != nil {
		return err
	}
	if ferr != nil {
		return errors.Internal(ferr)
	}
	return nil
}

// spooled closes the storage object behind a section reader.
type spooled struct {
	*io.SectionReader
	obj *storage.Object
}

func (s *spooled) Close() error { return s.obj.Close() }

type rowIter struct {
	batches *batchIter
	rows    []records.Record
}

func (it *rowIter) Next(ctx context.Context) (records.Record, bool, error) {
	for len(it.rows) == 0 {
		rec, ok, err := it.batches.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		it.rows = Rows(rec)
		rec.Release()
	}
	row := it.rows[0]
	it.rows = it.rows[1:]
	return row, true, nil
}

func (it *rowIter) Close() error {
	it.rows = nil
	return it.batches.Close()
}
