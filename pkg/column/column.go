// Package column holds the in-memory data model shared by the source adapter,
// the ragged-array normalizer and the three format encoders.
//
// A Column pairs a name with a Value. Value is a closed tagged union with two
// variants, decided once when the column is ingested:
//
//   - *Uniform: a fixed element type and a flat typed slice holding rows×Width
//     elements (Width 1 means one scalar per row).
//   - *Ragged: one float64 sequence per row, lengths free to differ.
//
// Downstream code switches on the concrete type and never re-inspects raw
// element kinds.
package column

import (
	"fmt"
)

// Kind classifies a column's value.
type Kind int

const (
	// KindUniformNumeric is a fixed-type, fixed-shape numeric column.
	KindUniformNumeric Kind = iota
	// KindRagged is a column of variable-length float64 sequences.
	KindRagged
)

func (k Kind) String() string {
	switch k {
	case KindUniformNumeric:
		return "UniformNumeric"
	case KindRagged:
		return "Ragged"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is implemented by *Uniform and *Ragged only.
type Value interface {
	Kind() Kind
	// Len is the number of rows.
	Len() int
	isValue()
}

// Column is one named unit of data in a RowSet.
type Column struct {
	Name  string
	Value Value
}

// Kind returns the column's kind.
func (c Column) Kind() Kind { return c.Value.Kind() }

// Len returns the column's row count.
func (c Column) Len() int { return c.Value.Len() }

// Uniform is a rectangular numeric column of rows×width elements stored
// row-major in a single typed slice.
type Uniform struct {
	typ   ElementType
	width int
	data  any
}

// NewUniform wraps a typed numeric slice. width must divide len(data); a
// width below 1 is treated as 1.
func NewUniform(data any, width int) (*Uniform, error) {
	if width < 1 {
		width = 1
	}
	typ := ElementTypeOf(data)
	if typ == Invalid {
		return nil, fmt.Errorf("column: unsupported element type %T", data)
	}
	n := sliceLen(data)
	if n%width != 0 {
		return nil, fmt.Errorf("column: %d elements do not divide into rows of width %d", n, width)
	}
	return &Uniform{typ: typ, width: width, data: data}, nil
}

// MustUniform is NewUniform that panics; intended for literals in tests and fixtures.
func MustUniform(data any, width int) *Uniform {
	u, err := NewUniform(data, width)
	if err != nil {
		panic(err)
	}
	return u
}

func (*Uniform) isValue() {}

// Kind implements Value.
func (*Uniform) Kind() Kind { return KindUniformNumeric }

// Len implements Value.
func (u *Uniform) Len() int { return sliceLen(u.data) / u.width }

// ElementType returns the element type.
func (u *Uniform) ElementType() ElementType { return u.typ }

// Width returns the number of elements per row.
func (u *Uniform) Width() int { return u.width }

// Data returns the underlying typed slice ([]int32, []float64, ...).
func (u *Uniform) Data() any { return u.data }

// Row returns row i: a typed scalar when Width is 1, otherwise a typed
// sub-slice sharing the column's storage.
func (u *Uniform) Row(i int) any {
	switch s := u.data.(type) {
	case []int8:
		return rowOf(s, i, u.width)
	case []int16:
		return rowOf(s, i, u.width)
	case []int32:
		return rowOf(s, i, u.width)
	case []int64:
		return rowOf(s, i, u.width)
	case []uint8:
		return rowOf(s, i, u.width)
	case []uint16:
		return rowOf(s, i, u.width)
	case []uint32:
		return rowOf(s, i, u.width)
	case []uint64:
		return rowOf(s, i, u.width)
	case []float32:
		return rowOf(s, i, u.width)
	case []float64:
		return rowOf(s, i, u.width)
	}
	return nil
}

// Float64s returns a float64 copy of all elements, row-major.
func (u *Uniform) Float64s() []float64 {
	switch s := u.data.(type) {
	case []int8:
		return ToFloat64(s)
	case []int16:
		return ToFloat64(s)
	case []int32:
		return ToFloat64(s)
	case []int64:
		return ToFloat64(s)
	case []uint8:
		return ToFloat64(s)
	case []uint16:
		return ToFloat64(s)
	case []uint32:
		return ToFloat64(s)
	case []uint64:
		return ToFloat64(s)
	case []float32:
		return ToFloat64(s)
	case []float64:
		out := make([]float64, len(s))
		copy(out, s)
		return out
	}
	return nil
}

func rowOf[T Number](s []T, i, width int) any {
	if width == 1 {
		return s[i]
	}
	return s[i*width : (i+1)*width : (i+1)*width]
}

// Ragged is a column of per-row float64 sequences of arbitrary length.
type Ragged struct {
	rows [][]float64
}

// NewRagged wraps rows without copying them.
func NewRagged(rows [][]float64) *Ragged {
	return &Ragged{rows: rows}
}

func (*Ragged) isValue() {}

// Kind implements Value.
func (*Ragged) Kind() Kind { return KindRagged }

// Len implements Value.
func (r *Ragged) Len() int { return len(r.rows) }

// Rows returns the per-row sequences.
func (r *Ragged) Rows() [][]float64 { return r.rows }

// Row returns row i.
func (r *Ragged) Row(i int) []float64 { return r.rows[i] }

// Lengths returns the length of every row.
func (r *Ragged) Lengths() []int {
	out := make([]int, len(r.rows))
	for i, row := range r.rows {
		out[i] = len(row)
	}
	return out
}

// CommonWidth reports the shared row length when every row has the same
// length. An empty column has no common width.
func (r *Ragged) CommonWidth() (int, bool) {
	if len(r.rows) == 0 {
		return 0, false
	}
	w := len(r.rows[0])
	for _, row := range r.rows[1:] {
		if len(row) != w {
			return 0, false
		}
	}
	return w, true
}

// Flatten returns all rows concatenated; it is only meaningful together with
// CommonWidth.
func (r *Ragged) Flatten() []float64 {
	n := 0
	for _, row := range r.rows {
		n += len(row)
	}
	out := make([]float64, 0, n)
	for _, row := range r.rows {
		out = append(out, row...)
	}
	return out
}
