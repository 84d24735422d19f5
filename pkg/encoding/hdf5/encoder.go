// Package hdf5 writes RowSets to HDF5 files and reads them back.
//
// Layout: one root group named by the artifact stem, one dataset per column.
// Uniform columns keep their native element type with shape (rows,) or
// (rows, width). Ragged columns whose rows share one length are written as a
// plain 2-D float64 dataset; any other ragged column becomes a
// variable-length float64 dataset with one element per row.
package hdf5

import (
	"context"
	"reflect"

	gohdf5 "gonum.org/v1/hdf5"
	"go.uber.org/zap"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/logger"
	"github.com/appINPP/root2data/pkg/naming"
)

// Encoder writes the HDF5 artifact.
type Encoder struct {
	logger *zap.Logger
}

// New returns an Encoder; a nil logger falls back to the global one.
func New(log *zap.Logger) *Encoder {
	return &Encoder{logger: logger.OrGlobal(log)}
}

// Format implements encoding.Encoder.
func (e *Encoder) Format() encoding.Format { return encoding.FormatHDF5 }

// Encode truncates or creates dest and writes rs beneath a group named by
// the stem of dest.
func (e *Encoder) Encode(ctx context.Context, rs *column.RowSet, dest string) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	group := naming.Stem(dest, encoding.FormatHDF5.Ext())
	log := e.logger.With(zap.String("destination", dest), zap.String("group", group))

	f, err := gohdf5.CreateFile(dest, gohdf5.F_ACC_TRUNC)
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypeEncoderIO, "create %s", dest)
	}
	defer f.Close()

	g, err := f.CreateGroup(group)
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypeEncoderIO, "create group %q", group)
	}
	defer g.Close()

	for _, col := range rs.Columns() {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Info("writing column", zap.String("column", col.Name), zap.String("kind", col.Kind().String()))
		if err := writeColumn(g, col); err != nil {
			return errors.Wrapf(err, errors.ErrorTypeEncoderIO, "column %q", col.Name).
				WithDetail("column", col.Name)
		}
	}

	if err := f.Flush(gohdf5.F_SCOPE_LOCAL); err != nil {
		return errors.Wrap(err, errors.ErrorTypeEncoderIO, "flush")
	}
	return nil
}

func writeColumn(g *gohdf5.Group, col column.Column) error {
	switch v := col.Value.(type) {
	case *column.Uniform:
		return writeUniform(g, col.Name, v)
	case *column.Ragged:
		if w, ok := v.CommonWidth(); ok {
			// (rows, 0) when every row is empty
			return writeDataset(g, col.Name, gohdf5.T_NATIVE_DOUBLE, []uint{uint(v.Len()), uint(w)}, v.Flatten())
		}
		return writeVlen(g, col.Name, v.Rows())
	}
	return errors.Newf(errors.ErrorTypeUnsupportedType, "unknown column value %T", col.Value)
}

func writeUniform(g *gohdf5.Group, name string, u *column.Uniform) error {
	dtype, err := nativeType(u.ElementType())
	if err != nil {
		return err
	}
	dims := []uint{uint(u.Len())}
	if u.Width() > 1 {
		dims = append(dims, uint(u.Width()))
	}
	return writeDataset(g, name, dtype, dims, u.Data())
}

// writeDataset creates a simple dataset and writes data, a typed flat slice,
// unless the dataset is empty.
func writeDataset(g *gohdf5.Group, name string, dtype *gohdf5.Datatype, dims []uint, data any) error {
	space, err := gohdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer space.Close()

	dset, err := g.CreateDataset(name, dtype, space)
	if err != nil {
		return err
	}
	defer dset.Close()

	if data == nil || reflect.ValueOf(data).Len() == 0 {
		return nil
	}
	// Dataset.Write needs an addressable slice.
	ptr := reflect.New(reflect.TypeOf(data))
	ptr.Elem().Set(reflect.ValueOf(data))
	return dset.Write(ptr.Interface())
}

func writeVlen(g *gohdf5.Group, name string, rows [][]float64) error {
	vt, err := gohdf5.NewVarLenType(gohdf5.T_NATIVE_DOUBLE)
	if err != nil {
		return err
	}
	defer vt.Close()

	space, err := gohdf5.CreateSimpleDataspace([]uint{uint(len(rows))}, nil)
	if err != nil {
		return err
	}
	defer space.Close()

	dset, err := g.CreateDataset(name, &vt.Datatype, space)
	if err != nil {
		return err
	}
	defer dset.Close()

	if len(rows) == 0 {
		return nil
	}
	buf := newVlenBuffer(rows)
	defer buf.free()
	return dset.Write(&buf.elems)
}

var nativeTypes = map[column.ElementType]*gohdf5.Datatype{
	column.Int8:    gohdf5.T_NATIVE_INT8,
	column.Int16:   gohdf5.T_NATIVE_INT16,
	column.Int32:   gohdf5.T_NATIVE_INT32,
	column.Int64:   gohdf5.T_NATIVE_INT64,
	column.Uint8:   gohdf5.T_NATIVE_UINT8,
	column.Uint16:  gohdf5.T_NATIVE_UINT16,
	column.Uint32:  gohdf5.T_NATIVE_UINT32,
	column.Uint64:  gohdf5.T_NATIVE_UINT64,
	column.Float32: gohdf5.T_NATIVE_FLOAT,
	column.Float64: gohdf5.T_NATIVE_DOUBLE,
}

func nativeType(t column.ElementType) (*gohdf5.Datatype, error) {
	dt, ok := nativeTypes[t]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeUnsupportedType, "no HDF5 type for %s", t)
	}
	return dt, nil
}
