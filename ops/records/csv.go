package records

import (
	"encoding/csv"
	stderrors "errors"
	"io"
	"strings"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/pipeline"
)

// CSV decodes each reader as CSV with a header row. Every following row
// becomes a Record mapping header names to string values. A row whose field
// count differs from the header is an INVALID_INPUT error.
func CSV[R io.Reader](name string, opts ...Option) *pipeline.Step[R, Record] {
	o := newOptions(opts)
	return newReaderStep(name, "csv", o, func(r R, source string) decoder[Record] {
		cr := csv.NewReader(r)
		cr.Comma = o.delimiter
		var header []string
		return decoder[Record]{next: func() (Record, bool, error) {
			if header == nil {
				row, err := cr.Read()
				if stderrors.Is(err, io.EOF) {
					return nil, false, nil
				}
				if err != nil {
					return nil, false, csvError(source, err)
				}
				row[0] = strings.TrimPrefix(row[0], "\ufeff")
				header = row
			}
			row, err := cr.Read()
			if stderrors.Is(err, io.EOF) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, csvError(source, err)
			}
			rec := make(Record, len(header))
			for i, key := range header {
				rec[key] = row[i]
			}
			return rec, true, nil
		}}
	})
}

func csvError(source string, err error) error {
	var parseErr *csv.ParseError
	if stderrors.As(err, &parseErr) {
		return errors.InvalidInput(source, parseErr.Error()).WithCause(err)
	}
	return errors.SourceFailed(source, err)
}
