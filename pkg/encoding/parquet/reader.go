package parquet

import (
	"context"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/appINPP/root2data/pkg/encoding"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/inspect"
	"github.com/appINPP/root2data/pkg/naming"
)

// Read loads the whole Parquet file at path. List columns come back as typed
// slices, one per row.
func Read(ctx context.Context, path string) (*inspect.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "open %s", path)
	}
	defer f.Close()

	pool := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(pool), pqarrow.ArrowReadProperties{}, pool)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "read %s", path)
	}
	defer tbl.Release()

	ncols := int(tbl.NumCols())
	out := &inspect.Table{
		Name:    naming.Stem(path, encoding.FormatParquet.Ext()),
		Columns: make([]string, ncols),
		Rows:    make([][]any, tbl.NumRows()),
	}
	for r := range out.Rows {
		out.Rows[r] = make([]any, ncols)
	}

	for c := 0; c < ncols; c++ {
		col := tbl.Column(c)
		out.Columns[c] = col.Name()
		row := 0
		for _, chunk := range col.Data().Chunks() {
			for i := 0; i < chunk.Len(); i++ {
				v, err := cell(chunk, i)
				if err != nil {
					return nil, errors.Wrapf(err, errors.ErrorTypeEncoderIO, "column %q row %d", col.Name(), row)
				}
				out.Rows[row][c] = v
				row++
			}
		}
	}
	return out, nil
}
