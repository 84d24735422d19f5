package parquet

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/errors"
)

var arrowTypes = map[column.ElementType]arrow.DataType{
	column.Int8:    arrow.PrimitiveTypes.Int8,
	column.Int16:   arrow.PrimitiveTypes.Int16,
	column.Int32:   arrow.PrimitiveTypes.Int32,
	column.Int64:   arrow.PrimitiveTypes.Int64,
	column.Uint8:   arrow.PrimitiveTypes.Uint8,
	column.Uint16:  arrow.PrimitiveTypes.Uint16,
	column.Uint32:  arrow.PrimitiveTypes.Uint32,
	column.Uint64:  arrow.PrimitiveTypes.Uint64,
	column.Float32: arrow.PrimitiveTypes.Float32,
	column.Float64: arrow.PrimitiveTypes.Float64,
}

// toArrow converts one column to an Arrow field and array. The caller owns
// the returned array.
//
//	Uniform, width 1  -> flat primitive
//	Uniform, width w  -> fixed_size_list<primitive>[w]
//	Ragged            -> list<float64>
func toArrow(mem memory.Allocator, col column.Column) (arrow.Field, arrow.Array, error) {
	switch v := col.Value.(type) {
	case *column.Uniform:
		etype, ok := arrowTypes[v.ElementType()]
		if !ok {
			return arrow.Field{}, nil, errors.Newf(errors.ErrorTypeUnsupportedType, "no Arrow type for %s", v.ElementType())
		}
		if v.Width() == 1 {
			b := array.NewBuilder(mem, etype)
			defer b.Release()
			if err := appendValues(b, v.Data()); err != nil {
				return arrow.Field{}, nil, err
			}
			return arrow.Field{Name: col.Name, Type: etype}, b.NewArray(), nil
		}

		b := array.NewFixedSizeListBuilder(mem, int32(v.Width()), etype)
		defer b.Release()
		b.Reserve(v.Len())
		for i := 0; i < v.Len(); i++ {
			b.Append(true)
		}
		if err := appendValues(b.ValueBuilder(), v.Data()); err != nil {
			return arrow.Field{}, nil, err
		}
		return arrow.Field{Name: col.Name, Type: b.Type()}, b.NewArray(), nil

	case *column.Ragged:
		b := array.NewListBuilder(mem, arrow.PrimitiveTypes.Float64)
		defer b.Release()
		vb := b.ValueBuilder().(*array.Float64Builder)
		for _, row := range v.Rows() {
			b.Append(true)
			vb.AppendValues(row, nil)
		}
		return arrow.Field{Name: col.Name, Type: b.Type()}, b.NewArray(), nil
	}
	return arrow.Field{}, nil, errors.Newf(errors.ErrorTypeUnsupportedType, "unknown column value %T", col.Value)
}

func appendValues(b array.Builder, data any) error {
	switch s := data.(type) {
	case []int8:
		b.(*array.Int8Builder).AppendValues(s, nil)
	case []int16:
		b.(*array.Int16Builder).AppendValues(s, nil)
	case []int32:
		b.(*array.Int32Builder).AppendValues(s, nil)
	case []int64:
		b.(*array.Int64Builder).AppendValues(s, nil)
	case []uint8:
		b.(*array.Uint8Builder).AppendValues(s, nil)
	case []uint16:
		b.(*array.Uint16Builder).AppendValues(s, nil)
	case []uint32:
		b.(*array.Uint32Builder).AppendValues(s, nil)
	case []uint64:
		b.(*array.Uint64Builder).AppendValues(s, nil)
	case []float32:
		b.(*array.Float32Builder).AppendValues(s, nil)
	case []float64:
		b.(*array.Float64Builder).AppendValues(s, nil)
	default:
		return errors.Newf(errors.ErrorTypeUnsupportedType, "cannot append %T", data)
	}
	return nil
}

// cell returns element i of arr as a Go value: a scalar for primitive
// arrays, a typed slice copy for list arrays, nil for nulls.
func cell(arr arrow.Array, i int) (any, error) {
	if arr.IsNull(i) {
		return nil, nil
	}
	switch a := arr.(type) {
	case *array.Int8:
		return a.Value(i), nil
	case *array.Int16:
		return a.Value(i), nil
	case *array.Int32:
		return a.Value(i), nil
	case *array.Int64:
		return a.Value(i), nil
	case *array.Uint8:
		return a.Value(i), nil
	case *array.Uint16:
		return a.Value(i), nil
	case *array.Uint32:
		return a.Value(i), nil
	case *array.Uint64:
		return a.Value(i), nil
	case *array.Float32:
		return a.Value(i), nil
	case *array.Float64:
		return a.Value(i), nil
	case *array.List:
		start, end := a.ValueOffsets(i)
		return valuesBetween(a.ListValues(), int(start), int(end))
	case *array.LargeList:
		start, end := a.ValueOffsets(i)
		return valuesBetween(a.ListValues(), int(start), int(end))
	case *array.FixedSizeList:
		start, end := a.ValueOffsets(i)
		return valuesBetween(a.ListValues(), int(start), int(end))
	}
	return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "unsupported Arrow type %s", arr.DataType())
}

func valuesBetween(arr arrow.Array, start, end int) (any, error) {
	switch a := arr.(type) {
	case *array.Int8:
		return copyOf(a.Int8Values()[start:end]), nil
	case *array.Int16:
		return copyOf(a.Int16Values()[start:end]), nil
	case *array.Int32:
		return copyOf(a.Int32Values()[start:end]), nil
	case *array.Int64:
		return copyOf(a.Int64Values()[start:end]), nil
	case *array.Uint8:
		return copyOf(a.Uint8Values()[start:end]), nil
	case *array.Uint16:
		return copyOf(a.Uint16Values()[start:end]), nil
	case *array.Uint32:
		return copyOf(a.Uint32Values()[start:end]), nil
	case *array.Uint64:
		return copyOf(a.Uint64Values()[start:end]), nil
	case *array.Float32:
		return copyOf(a.Float32Values()[start:end]), nil
	case *array.Float64:
		return copyOf(a.Float64Values()[start:end]), nil
	}
	return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "unsupported list element type %s", arr.DataType())
}

func copyOf[T column.Number](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
