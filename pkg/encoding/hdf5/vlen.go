package hdf5

// #include <stdlib.h>
// #include <string.h>
import "C"

import (
	"unsafe"
)

// hvl mirrors the C hvl_t layout: a length followed by a data pointer.
type hvl struct {
	Len uintptr
	Ptr unsafe.Pointer
}

// vlenBuffer holds rows copied into C memory so the write buffer carries
// no Go pointers.
type vlenBuffer struct {
	elems []hvl
}

func newVlenBuffer(rows [][]float64) *vlenBuffer {
	b := &vlenBuffer{elems: make([]hvl, len(rows))}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		size := C.size_t(len(row)) * C.size_t(unsafe.Sizeof(row[0]))
		p := C.malloc(size)
		C.memcpy(p, unsafe.Pointer(&row[0]), size)
		b.elems[i] = hvl{Len: uintptr(len(row)), Ptr: p}
	}
	return b
}

// free releases every row. It is safe to call on buffers filled by HDF5
// during a read, whose rows are allocated with malloc.
func (b *vlenBuffer) free() {
	for i := range b.elems {
		if b.elems[i].Ptr != nil {
			C.free(b.elems[i].Ptr)
			b.elems[i].Ptr = nil
		}
	}
}

// rows copies every element back into Go memory.
func (b *vlenBuffer) rows() [][]float64 {
	out := make([][]float64, len(b.elems))
	for i, e := range b.elems {
		row := make([]float64, e.Len)
		if e.Len > 0 {
			copy(row, unsafe.Slice((*float64)(e.Ptr), e.Len))
		}
		out[i] = row
	}
	return out
}
