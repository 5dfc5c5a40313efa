package records

import (
	"bufio"
	stderrors "errors"
	"io"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/pipeline"
)

// MaxLineLength is the longest line Lines accepts.
const MaxLineLength = 16 << 20

// Lines splits each reader into lines without their terminators. Chain it
// with pipeline.Grouper to reassemble multi-line documents.
func Lines[R io.Reader](name string, opts ...Option) *pipeline.Step[R, string] {
	o := newOptions(opts)
	return newReaderStep(name, "lines", o, func(r R, source string) decoder[string] {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), MaxLineLength)
		return decoder[string]{next: func() (string, bool, error) {
			if sc.Scan() {
				return sc.Text(), true, nil
			}
			if err := sc.Err(); err != nil {
				if stderrors.Is(err, bufio.ErrTooLong) {
					return "", false, errors.InvalidInput(source, err.Error()).WithCause(err)
				}
				return "", false, errors.SourceFailed(source, err)
			}
			return "", false, nil
		}}
	})
}
