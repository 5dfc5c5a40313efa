package records

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/pipeline"
)

var errTrailingData = stderrors.New("unexpected data after top-level value")

// JSON streams records out of each reader without decoding the whole
// document. WithPath selects the values, WithMultipleValues accepts
// concatenated documents. Every selected value must be an object; anything
// else is an INVALID_INPUT error. Numbers decode as int64 when the literal
// is an integer and float64 otherwise.
func JSON[R io.Reader](name string, opts ...Option) *pipeline.Step[R, Record] {
	o := newOptions(opts)
	var path []string
	if o.path != "" {
		path = strings.Split(o.path, ".")
	}
	return newReaderStep(name, "json", o, func(r R, source string) decoder[Record] {
		dec := json.NewDecoder(r)
		dec.UseNumber()
		next, stop := iter.Pull2(documents(dec, path, o.multiple))
		return decoder[Record]{
			next: func() (Record, bool, error) {
				v, err, ok := next()
				if !ok {
					return nil, false, nil
				}
				if err != nil {
					return nil, false, jsonError(source, err)
				}
				rec, isObject := v.(map[string]any)
				if !isObject {
					return nil, false, errors.InvalidInput(source, fmt.Sprintf("expected a JSON object, got %T", v))
				}
				return rec, true, nil
			},
			stop: stop,
		}
	})
}

// documents yields the values at path of every top-level document in dec.
func documents(dec *json.Decoder, path []string, multiple bool) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		emit := func(v any) bool { return yield(v, nil) }
		if multiple {
			for dec.More() {
				cont, err := walk(dec, path, emit)
				if err != nil {
					yield(nil, err)
				}
				if err != nil || !cont {
					return
				}
			}
			return
		}
		cont, err := walk(dec, path, emit)
		if err != nil {
			yield(nil, err)
			return
		}
		if cont && dec.More() {
			yield(nil, errTrailingData)
		}
	}
}

// walk consumes one value from dec, yielding the parts of it that path
// selects. It reports false once yield asks to stop.
func walk(dec *json.Decoder, path []string, yield func(any) bool) (bool, error) {
	if len(path) == 0 {
		var v any
		if err := dec.Decode(&v); err != nil {
			return false, err
		}
		return yield(normalize(v)), nil
	}

	tok, err := dec.Token()
	if err != nil {
		return false, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return true, nil // scalar, nothing to select
	}

	switch {
	case delim == '[' && path[0] == "item":
		for dec.More() {
			if cont, err := walk(dec, path[1:], yield); err != nil || !cont {
				return cont, err
			}
		}
	case delim == '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return false, err
			}
			if key, _ := keyTok.(string); key == path[0] {
				if cont, err := walk(dec, path[1:], yield); err != nil || !cont {
					return cont, err
				}
				continue
			}
			if err := skip(dec); err != nil {
				return false, err
			}
		}
	default:
		for dec.More() {
			if err := skip(dec); err != nil {
				return false, err
			}
		}
	}
	// closing delimiter
	if _, err := dec.Token(); err != nil {
		return false, err
	}
	return true, nil
}

func skip(dec *json.Decoder) error {
	var raw json.RawMessage
	return dec.Decode(&raw)
}

// normalize replaces json.Number with int64 or float64, recursively.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	default:
		return v
	}
}

func jsonError(source string, err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr), stderrors.As(err, &typeErr),
		stderrors.Is(err, io.ErrUnexpectedEOF), stderrors.Is(err, io.EOF),
		stderrors.Is(err, errTrailingData):
		return errors.InvalidInput(source, err.Error()).WithCause(err)
	default:
		return errors.SourceFailed(source, err)
	}
}
