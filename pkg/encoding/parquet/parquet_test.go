package parquet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/testutil"
)

func TestEncode_Scenario(t *testing.T) {
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "run42.parquet")

	enc, err := New(zaptest.NewLogger(t), DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, enc.Encode(ctx, testutil.ScenarioRowSet(t), dest))

	tbl, err := Read(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, "run42", tbl.Name)
	assert.Equal(t, []string{"eventNumber", "digitX"}, tbl.Columns)
	require.Equal(t, 3, tbl.NumRows())

	assert.Equal(t, int32(1), tbl.Rows[0][0])
	assert.Equal(t, []float64{1, 2}, tbl.Rows[0][1])
	assert.Equal(t, []float64{3}, tbl.Rows[1][1])
	assert.Equal(t, []float64{4, 5, 6}, tbl.Rows[2][1])
}

func TestEncode_UniformTypes(t *testing.T) {
	ctx := context.Background()
	rs := column.NewRowSet()
	require.NoError(t, rs.Add(column.Column{Name: "flag", Value: column.MustUniform([]uint8{0, 1}, 1)}))
	require.NoError(t, rs.Add(column.Column{Name: "id", Value: column.MustUniform([]int64{-7, 1 << 40}, 1)}))
	require.NoError(t, rs.Add(column.Column{Name: "e", Value: column.MustUniform([]float32{0.5, 1.5}, 1)}))
	require.NoError(t, rs.Add(column.Column{Name: "pos", Value: column.MustUniform([]float64{1, 2, 3, 4, 5, 6}, 3)}))

	dest := filepath.Join(t.TempDir(), "types.parquet")
	enc, err := New(nil, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, enc.Encode(ctx, rs, dest))

	tbl, err := Read(ctx, dest)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, []any{uint8(0), int64(-7), float32(0.5), []float64{1, 2, 3}}, tbl.Rows[0])
	assert.Equal(t, []any{uint8(1), int64(1 << 40), float32(1.5), []float64{4, 5, 6}}, tbl.Rows[1])
}

func TestEncode_AllRowsEmpty(t *testing.T) {
	ctx := context.Background()
	rs := column.NewRowSet()
	require.NoError(t, rs.Add(column.Column{Name: "id", Value: column.MustUniform([]int32{1, 2, 3}, 1)}))
	require.NoError(t, rs.Add(column.Column{Name: "hits", Value: column.NewRagged([][]float64{{}, {}, {}})}))

	dest := filepath.Join(t.TempDir(), "nohits.parquet")
	enc, err := New(nil, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, enc.Encode(ctx, rs, dest))

	tbl, err := Read(ctx, dest)
	require.NoError(t, err)
	hits, ok := tbl.Column("hits")
	require.True(t, ok)
	assert.Equal(t, []any{[]float64{}, []float64{}, []float64{}}, hits)
}

func TestEncode_Codecs(t *testing.T) {
	for _, name := range []string{"snappy", "zstd", "gzip", "brotli", "lz4", "none", "UNCOMPRESSED"} {
		t.Run(name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Compression = name
			opts.EnableDictionary = false
			enc, err := New(nil, opts)
			require.NoError(t, err)

			dest := filepath.Join(t.TempDir(), "c.parquet")
			require.NoError(t, enc.Encode(context.Background(), testutil.ScenarioRowSet(t), dest))

			tbl, err := Read(context.Background(), dest)
			require.NoError(t, err)
			assert.Equal(t, []float64{4, 5, 6}, tbl.Rows[2][1])
		})
	}
}

func TestNew_UnknownCodec(t *testing.T) {
	opts := DefaultOptions()
	opts.Compression = "lzo2"
	_, err := New(nil, opts)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestEncode_ReplacesExisting(t *testing.T) {
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "run42.parquet")
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0o644))

	enc, err := New(nil, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, enc.Encode(ctx, testutil.ScenarioRowSet(t), dest))
	require.NoError(t, enc.Encode(ctx, testutil.ScenarioRowSet(t), dest))

	tbl, err := Read(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumRows())
}

func TestEncode_RejectsEmpty(t *testing.T) {
	enc, err := New(nil, DefaultOptions())
	require.NoError(t, err)
	err = enc.Encode(context.Background(), column.NewRowSet(), filepath.Join(t.TempDir(), "x.parquet"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(context.Background(), filepath.Join(t.TempDir(), "nope.parquet"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEncoderIO))
}
