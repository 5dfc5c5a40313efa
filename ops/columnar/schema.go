package columnar

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/kbukum/pipedata/errors"
	"github.com/kbukum/pipedata/ops/records"
)

// kind orders the column types an inferred schema can pick. Integers widen
// to floats; any other disagreement falls back to strings.
type kind int

const (
	kindNull kind = iota
	kindBool
	kindInt
	kindFloat
	kindString
)

func kindOf(v any) kind {
	switch v.(type) {
	case nil:
		return kindNull
	case bool:
		return kindBool
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return kindInt
	case float32, float64:
		return kindFloat
	default:
		return kindString
	}
}

func merge(a, b kind) kind {
	switch {
	case a == kindNull:
		return b
	case b == kindNull || a == b:
		return a
	case (a == kindInt && b == kindFloat) || (a == kindFloat && b == kindInt):
		return kindFloat
	default:
		return kindString
	}
}

// InferSchema derives a nullable schema from a batch of records. Columns are
// sorted by name. A column with no non-null value is a string column.
func InferSchema(batch []records.Record) *arrow.Schema {
	kinds := make(map[string]kind)
	for _, rec := range batch {
		for k, v := range rec {
			kinds[k] = merge(kinds[k], kindOf(v))
		}
	}
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)

	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		var dt arrow.DataType
		switch kinds[name] {
		case kindBool:
			dt = arrow.FixedWidthTypes.Boolean
		case kindInt:
			dt = arrow.PrimitiveTypes.Int64
		case kindFloat:
			dt = arrow.PrimitiveTypes.Float64
		default:
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// checkSchema rejects column types the writer cannot fill from records.
func checkSchema(schema *arrow.Schema) error {
	for _, f := range schema.Fields() {
		switch f.Type.ID() {
		case arrow.BOOL, arrow.INT32, arrow.INT64, arrow.FLOAT32, arrow.FLOAT64, arrow.STRING:
		default:
			return errors.InvalidConfig("schema", fmt.Sprintf("column %q has unsupported type %s", f.Name, f.Type))
		}
	}
	return nil
}

// buildRecord converts batch into an arrow record of schema. With strict set
// a key that is not a column is an error, otherwise it is dropped.
func buildRecord(schema *arrow.Schema, batch []records.Record, strict bool) (arrow.Record, error) {
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	fields := schema.Fields()
	for row, rec := range batch {
		if strict {
			for k := range rec {
				if !schema.HasField(k) {
					return nil, errors.InvalidInput("records", fmt.Sprintf("row %d has column %q not present in the first row group", row, k))
				}
			}
		}
		for i, f := range fields {
			if err := appendValue(b.Field(i), f, rec[f.Name]); err != nil {
				return nil, errors.InvalidInput("records", fmt.Sprintf("row %d column %q: %s", row, f.Name, err.Error())).WithCause(err)
			}
		}
	}
	return b.NewRecord(), nil
}

func appendValue(fb array.Builder, f arrow.Field, v any) error {
	if v == nil {
		if !f.Nullable {
			return fmt.Errorf("null in non-nullable column")
		}
		fb.AppendNull()
		return nil
	}
	switch b := fb.(type) {
	case *array.BooleanBuilder:
		x, err := toBool(v)
		if err != nil {
			return err
		}
		b.Append(x)
	case *array.Int64Builder:
		x, err := toInt64(v)
		if err != nil {
			return err
		}
		b.Append(x)
	case *array.Int32Builder:
		x, err := toInt64(v)
		if err != nil {
			return err
		}
		if x < math.MinInt32 || x > math.MaxInt32 {
			return fmt.Errorf("%d overflows int32", x)
		}
		b.Append(int32(x))
	case *array.Float64Builder:
		x, err := toFloat64(v)
		if err != nil {
			return err
		}
		b.Append(x)
	case *array.Float32Builder:
		x, err := toFloat64(v)
		if err != nil {
			return err
		}
		b.Append(float32(x))
	case *array.StringBuilder:
		s, err := toString(v)
		if err != nil {
			return err
		}
		b.Append(s)
	default:
		return fmt.Errorf("unsupported column type %s", f.Type)
	}
	return nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	default:
		return false, fmt.Errorf("cannot store %T as bool", v)
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("cannot store %T as int", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		if n, err := toInt64(v); err == nil {
			return float64(n), nil
		}
		return 0, fmt.Errorf("cannot store %T as float", v)
	}
}

// toString stores strings as they are and everything else as JSON.
func toString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
