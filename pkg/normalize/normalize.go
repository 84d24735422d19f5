// Package normalize turns raw source columns into values every encoder can
// consume.
//
// Typed numeric columns pass through as column.Uniform. Columns with the
// generic element kind are ragged candidates and go through two stages:
//
//  1. Bulk cast. If every row is a numeric sequence of one common length the
//     column is reclassified as a float64 Uniform of that width (the
//     "accidental uniform" case). A column of numeric scalars becomes a
//     float64 Uniform of width 1. A column whose rows are all empty
//     sequences has common width 0 and stays a Ragged of empty rows.
//  2. Textual fallback. Every row is rendered in its default print form,
//     stripped of brackets and newlines, split on single spaces and parsed
//     token by token into a float64 sequence.
//
// Rows whose rendered text is at most one character long are dropped by the
// fallback without recording their index. Callers must treat the resulting
// row count as untrusted; column.RowSet rejects the mismatch.
package normalize

import (
	"reflect"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/errors"
)

// Path names the route a column took through the normalizer.
type Path string

const (
	// PathUniform means the raw column was already a typed numeric array.
	PathUniform Path = "uniform"
	// PathBulkCast means a generic column was cast to a rectangular float64 array.
	PathBulkCast Path = "bulk_cast"
	// PathTextual means a generic column went through the textual round trip.
	PathTextual Path = "textual"
)

// Result is a normalized column plus how it got there.
type Result struct {
	Column column.Column
	Path   Path
	// Dropped counts rows removed by the short-text rule of the textual path.
	Dropped int
	// Unsupported is set when the raw column had a typed element kind with no
	// numeric representation and was routed to the textual path.
	Unsupported bool
}

// Column normalizes one raw column.
func Column(raw column.RawColumn) (Result, error) {
	if raw.Values == nil {
		return Result{}, errors.Newf(errors.ErrorTypeUnsupportedType, "column %q has no data", raw.Name)
	}

	if column.ElementTypeOf(raw.Values) != column.Invalid {
		u, err := column.NewUniform(raw.Values, raw.Width)
		if err != nil {
			return Result{}, errors.Wrapf(err, errors.ErrorTypeUnsupportedType, "column %q", raw.Name)
		}
		return Result{Column: column.Column{Name: raw.Name, Value: u}, Path: PathUniform}, nil
	}

	if b, ok := raw.Values.([]bool); ok {
		u, err := column.NewUniform(boolsToUint8(b), raw.Width)
		if err != nil {
			return Result{}, errors.Wrapf(err, errors.ErrorTypeUnsupportedType, "column %q", raw.Name)
		}
		return Result{Column: column.Column{Name: raw.Name, Value: u}, Path: PathUniform}, nil
	}

	rows, generic := raw.Values.([]any)
	unsupported := false
	if !generic {
		var ok bool
		rows, ok = toGeneric(raw.Values)
		if !ok {
			return Result{}, errors.Newf(errors.ErrorTypeUnsupportedType,
				"column %q: %T is not an array", raw.Name, raw.Values)
		}
		unsupported = true
	}

	res, err := Ragged(raw.Name, rows)
	res.Unsupported = unsupported
	return res, err
}

// Ragged normalizes a column with the generic element kind.
func Ragged(name string, rows []any) (Result, error) {
	if empty, ok := emptyRows(rows); ok {
		return Result{Column: column.Column{Name: name, Value: column.NewRagged(empty)}, Path: PathBulkCast}, nil
	}
	if u, ok := bulkCast(rows); ok {
		return Result{Column: column.Column{Name: name, Value: u}, Path: PathBulkCast}, nil
	}

	seqs, dropped, err := textual(name, rows)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Column:  column.Column{Name: name, Value: column.NewRagged(seqs)},
		Path:    PathTextual,
		Dropped: dropped,
	}, nil
}

// bulkCast succeeds when every row is a numeric scalar, or every row is a
// numeric sequence and all sequences share one non-zero length.
func bulkCast(rows []any) (*column.Uniform, bool) {
	if len(rows) == 0 {
		return column.MustUniform([]float64{}, 1), true
	}

	if _, scalar := scalarFloat(rows[0]); scalar {
		out := make([]float64, len(rows))
		for i, row := range rows {
			v, ok := scalarFloat(row)
			if !ok {
				return nil, false
			}
			out[i] = v
		}
		return column.MustUniform(out, 1), true
	}

	first, ok := sequenceFloats(rows[0])
	if !ok || len(first) == 0 {
		return nil, false
	}
	width := len(first)
	out := make([]float64, 0, width*len(rows))
	out = append(out, first...)
	for _, row := range rows[1:] {
		seq, ok := sequenceFloats(row)
		if !ok || len(seq) != width {
			return nil, false
		}
		out = append(out, seq...)
	}
	return column.MustUniform(out, width), true
}

// emptyRows succeeds when there is at least one row and every row is an
// empty numeric sequence.
func emptyRows(rows []any) ([][]float64, bool) {
	if len(rows) == 0 {
		return nil, false
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		seq, ok := sequenceFloats(row)
		if !ok || len(seq) != 0 {
			return nil, false
		}
		out[i] = []float64{}
	}
	return out, true
}

// scalarFloat converts a numeric or boolean scalar to float64.
func scalarFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// sequenceFloats converts a numeric sequence (typed slice, fixed array, or
// []any of numeric scalars) to float64. Booleans become 0 and 1.
func sequenceFloats(v any) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return s, true
	case []float32:
		return column.ToFloat64(s), true
	case []int8:
		return column.ToFloat64(s), true
	case []int16:
		return column.ToFloat64(s), true
	case []int32:
		return column.ToFloat64(s), true
	case []int64:
		return column.ToFloat64(s), true
	case []uint8:
		return column.ToFloat64(s), true
	case []uint16:
		return column.ToFloat64(s), true
	case []uint32:
		return column.ToFloat64(s), true
	case []uint64:
		return column.ToFloat64(s), true
	case []bool:
		return column.ToFloat64(boolsToUint8(s)), true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]float64, rv.Len())
	for i := range out {
		f, ok := scalarFloat(rv.Index(i).Interface())
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// toGeneric turns any slice into []any, one element per row.
func toGeneric(values any) ([]any, bool) {
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func boolsToUint8(b []bool) []uint8 {
	out := make([]uint8, len(b))
	for i, v := range b {
		if v {
			out[i] = 1
		}
	}
	return out
}
