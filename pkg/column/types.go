package column

// ElementType is the numeric type of a uniform column's elements.
type ElementType int

const (
	Invalid ElementType = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
)

var elementTypeNames = [...]string{
	Invalid: "invalid",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

func (t ElementType) String() string {
	if t < 0 || int(t) >= len(elementTypeNames) {
		return "invalid"
	}
	return elementTypeNames[t]
}

// IsFloat reports whether t is a floating-point type.
func (t ElementType) IsFloat() bool { return t == Float32 || t == Float64 }

// Number is the set of element types a Uniform column may hold.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ElementTypeOf returns the element type of a typed numeric slice, or Invalid.
func ElementTypeOf(data any) ElementType {
	switch data.(type) {
	case []int8:
		return Int8
	case []int16:
		return Int16
	case []int32:
		return Int32
	case []int64:
		return Int64
	case []uint8:
		return Uint8
	case []uint16:
		return Uint16
	case []uint32:
		return Uint32
	case []uint64:
		return Uint64
	case []float32:
		return Float32
	case []float64:
		return Float64
	}
	return Invalid
}

// ToFloat64 converts a numeric slice to a new []float64.
func ToFloat64[T Number](s []T) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

func sliceLen(data any) int {
	switch s := data.(type) {
	case []int8:
		return len(s)
	case []int16:
		return len(s)
	case []int32:
		return len(s)
	case []int64:
		return len(s)
	case []uint8:
		return len(s)
	case []uint16:
		return len(s)
	case []uint32:
		return len(s)
	case []uint64:
		return len(s)
	case []float32:
		return len(s)
	case []float64:
		return len(s)
	}
	return 0
}
