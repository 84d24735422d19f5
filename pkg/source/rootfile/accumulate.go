package rootfile

import (
	"reflect"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/errors"
)

// accumulator collects one branch value per entry.
type accumulator interface {
	add(v reflect.Value)
	raw(name string) column.RawColumn
}

var baseTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeOf(uint8(0)),
	reflect.Int8:    reflect.TypeOf(int8(0)),
	reflect.Int16:   reflect.TypeOf(int16(0)),
	reflect.Int32:   reflect.TypeOf(int32(0)),
	reflect.Int64:   reflect.TypeOf(int64(0)),
	reflect.Uint8:   reflect.TypeOf(uint8(0)),
	reflect.Uint16:  reflect.TypeOf(uint16(0)),
	reflect.Uint32:  reflect.TypeOf(uint32(0)),
	reflect.Uint64:  reflect.TypeOf(uint64(0)),
	reflect.Float32: reflect.TypeOf(float32(0)),
	reflect.Float64: reflect.TypeOf(float64(0)),
}

// newAccumulator picks the collection strategy for a branch of Go type t:
// scalars and fixed arrays become typed slices, everything else becomes
// generic rows.
func newAccumulator(t reflect.Type, capacity int) (accumulator, error) {
	switch t.Kind() {
	case reflect.Array:
		elem, width := flatArray(t)
		base, ok := baseTypes[elem.Kind()]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "array of %s", elem)
		}
		return &typedAcc{out: reflect.MakeSlice(reflect.SliceOf(base), 0, capacity*width), width: width}, nil
	case reflect.Slice:
		elem, _ := flatArray(t.Elem())
		base, ok := baseTypes[elem.Kind()]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "slice of %s", t.Elem())
		}
		return &sliceAcc{base: base, rows: make([]any, 0, capacity)}, nil
	case reflect.String:
		return &genericAcc{rows: make([]any, 0, capacity)}, nil
	}
	base, ok := baseTypes[t.Kind()]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "branch type %s", t)
	}
	return &typedAcc{out: reflect.MakeSlice(reflect.SliceOf(base), 0, capacity), width: 1}, nil
}

// flatArray returns the innermost element type of a (possibly nested) array
// type and the total element count.
func flatArray(t reflect.Type) (reflect.Type, int) {
	n := 1
	for t.Kind() == reflect.Array {
		n *= t.Len()
		t = t.Elem()
	}
	return t, n
}

// appendFlat appends every scalar of v, flattening nested arrays and slices,
// converted to base.
func appendFlat(dst, v reflect.Value, base reflect.Type) reflect.Value {
	switch v.Kind() {
	case reflect.Array, reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			dst = appendFlat(dst, v.Index(i), base)
		}
		return dst
	case reflect.Bool:
		var b uint8
		if v.Bool() {
			b = 1
		}
		return reflect.Append(dst, reflect.ValueOf(b))
	}
	return reflect.Append(dst, v.Convert(base))
}

type typedAcc struct {
	out   reflect.Value
	width int
}

func (a *typedAcc) add(v reflect.Value) {
	a.out = appendFlat(a.out, v, a.out.Type().Elem())
}

func (a *typedAcc) raw(name string) column.RawColumn {
	return column.RawColumn{Name: name, Values: a.out.Interface(), Width: a.width}
}

// sliceAcc copies each variable-length entry into its own typed slice.
type sliceAcc struct {
	base reflect.Type
	rows []any
}

func (a *sliceAcc) add(v reflect.Value) {
	row := reflect.MakeSlice(reflect.SliceOf(a.base), 0, v.Len())
	a.rows = append(a.rows, appendFlat(row, v, a.base).Interface())
}

func (a *sliceAcc) raw(name string) column.RawColumn {
	return column.RawColumn{Name: name, Values: a.rows, Width: 1}
}

type genericAcc struct {
	rows []any
}

func (a *genericAcc) add(v reflect.Value) { a.rows = append(a.rows, v.Interface()) }

func (a *genericAcc) raw(name string) column.RawColumn {
	return column.RawColumn{Name: name, Values: a.rows, Width: 1}
}
