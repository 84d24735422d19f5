package hdf5

import (
	"reflect"

	gohdf5 "gonum.org/v1/hdf5"

	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/inspect"
)

// Read returns one table per root group, in the file's link index order.
// 1-D datasets yield scalar cells of their native type, 2-D datasets one
// typed slice per row and variable-length datasets one []float64 per row.
// Columns shorter than the longest one are padded with nil cells.
func Read(path string) ([]*inspect.Table, error) {
	f, err := gohdf5.OpenFile(path, gohdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "open %s", path)
	}
	defer f.Close()

	names, err := objectNames(&f.CommonFG, gohdf5.H5G_GROUP)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "list groups in %s", path)
	}

	tables := make([]*inspect.Table, 0, len(names))
	for _, name := range names {
		t, err := readGroup(f, name)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "group %q", name)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// ReadGroup reads a single group by name.
func ReadGroup(path, group string) (*inspect.Table, error) {
	f, err := gohdf5.OpenFile(path, gohdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "open %s", path)
	}
	defer f.Close()

	t, err := readGroup(f, group)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "group %q", group)
	}
	return t, nil
}

func readGroup(f *gohdf5.File, name string) (*inspect.Table, error) {
	g, err := f.OpenGroup(name)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	datasets, err := objectNames(&g.CommonFG, gohdf5.H5G_DATASET)
	if err != nil {
		return nil, err
	}

	t := &inspect.Table{Name: name, Columns: datasets}
	cols := make([][]any, len(datasets))
	rows := 0
	for i, ds := range datasets {
		cells, err := readDataset(g, ds)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "dataset %q", ds)
		}
		cols[i] = cells
		rows = max(rows, len(cells))
	}

	t.Rows = make([][]any, rows)
	for r := range t.Rows {
		row := make([]any, len(cols))
		for c, cells := range cols {
			if r < len(cells) {
				row[c] = cells[r]
			}
		}
		t.Rows[r] = row
	}
	return t, nil
}

func objectNames(fg *gohdf5.CommonFG, want gohdf5.GType) ([]string, error) {
	n, err := fg.NumObjects()
	if err != nil {
		return nil, err
	}
	var names []string
	for i := uint(0); i < n; i++ {
		typ, err := fg.ObjectTypeByIndex(i)
		if err != nil {
			return nil, err
		}
		if typ != want {
			continue
		}
		name, err := fg.ObjectNameByIndex(i)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func readDataset(g *gohdf5.Group, name string) ([]any, error) {
	dset, err := g.OpenDataset(name)
	if err != nil {
		return nil, err
	}
	defer dset.Close()

	space := dset.Space()
	if space == nil {
		return nil, errors.Newf(errors.ErrorTypeEncoderIO, "no dataspace")
	}
	defer space.Close()

	rank := space.SimpleExtentNDims()
	if rank < 1 || rank > 2 {
		return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "rank %d datasets are not supported", rank)
	}
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, err
	}

	dtype, err := dset.Datatype()
	if err != nil {
		return nil, err
	}
	defer dtype.Close()

	if dtype.Class() == gohdf5.T_VLEN {
		if rank != 1 {
			return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "variable-length dataset of rank %d", rank)
		}
		return readVlen(dset, int(dims[0]))
	}

	elem, err := goType(dtype)
	if err != nil {
		return nil, err
	}

	rows, width := int(dims[0]), 1
	if rank == 2 {
		width = int(dims[1])
	}
	flat := reflect.MakeSlice(reflect.SliceOf(elem), rows*width, rows*width)
	if flat.Len() > 0 {
		ptr := reflect.New(flat.Type())
		ptr.Elem().Set(flat)
		if err := dset.Read(ptr.Interface()); err != nil {
			return nil, err
		}
	}

	cells := make([]any, rows)
	for i := range cells {
		if rank == 1 {
			cells[i] = flat.Index(i).Interface()
		} else {
			cells[i] = flat.Slice3(i*width, (i+1)*width, (i+1)*width).Interface()
		}
	}
	return cells, nil
}

func readVlen(dset *gohdf5.Dataset, rows int) ([]any, error) {
	cells := make([]any, rows)
	if rows == 0 {
		return cells, nil
	}
	buf := &vlenBuffer{elems: make([]hvl, rows)}
	defer buf.free()
	if err := dset.Read(&buf.elems); err != nil {
		return nil, err
	}
	for i, row := range buf.rows() {
		cells[i] = row
	}
	return cells, nil
}

var goTypes = []struct {
	dtype *gohdf5.Datatype
	typ   reflect.Type
}{
	{gohdf5.T_NATIVE_INT8, reflect.TypeOf(int8(0))},
	{gohdf5.T_NATIVE_INT16, reflect.TypeOf(int16(0))},
	{gohdf5.T_NATIVE_INT32, reflect.TypeOf(int32(0))},
	{gohdf5.T_NATIVE_INT64, reflect.TypeOf(int64(0))},
	{gohdf5.T_NATIVE_UINT8, reflect.TypeOf(uint8(0))},
	{gohdf5.T_NATIVE_UINT16, reflect.TypeOf(uint16(0))},
	{gohdf5.T_NATIVE_UINT32, reflect.TypeOf(uint32(0))},
	{gohdf5.T_NATIVE_UINT64, reflect.TypeOf(uint64(0))},
	{gohdf5.T_NATIVE_FLOAT, reflect.TypeOf(float32(0))},
	{gohdf5.T_NATIVE_DOUBLE, reflect.TypeOf(float64(0))},
}

// goType maps a stored datatype to the Go element type read into memory.
func goType(dt *gohdf5.Datatype) (reflect.Type, error) {
	for _, t := range goTypes {
		if dt.Equal(t.dtype) {
			return t.typ, nil
		}
	}
	// byte-order or padding variants of the same class and size
	switch dt.Class() {
	case gohdf5.T_FLOAT:
		switch dt.Size() {
		case 4:
			return reflect.TypeOf(float32(0)), nil
		case 8:
			return reflect.TypeOf(float64(0)), nil
		}
	case gohdf5.T_INTEGER:
		switch dt.Size() {
		case 1:
			return reflect.TypeOf(int8(0)), nil
		case 2:
			return reflect.TypeOf(int16(0)), nil
		case 4:
			return reflect.TypeOf(int32(0)), nil
		case 8:
			return reflect.TypeOf(int64(0)), nil
		}
	}
	return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "unsupported HDF5 datatype class %d", dt.Class())
}
