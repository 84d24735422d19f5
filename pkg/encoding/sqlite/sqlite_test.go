package sqlite

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/appINPP/root2data/pkg/column"
	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/testutil"
)

func queryStrings(t *testing.T, path, query string) []string {
	t.Helper()
	db, err := sql.Open(driverName, path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(query)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestEncode_Scenario(t *testing.T) {
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "run42.db")
	require.NoError(t, New(zaptest.NewLogger(t)).Encode(ctx, testutil.ScenarioRowSet(t), dest))

	raw := queryStrings(t, dest, `SELECT "digitX" FROM "run42" ORDER BY rowid`)
	assert.Equal(t, []string{"[1,2]", "[3]", "[4,5,6]"}, raw)

	tbl, err := Read(ctx, dest, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "run42", tbl.Name)
	assert.Equal(t, []string{"eventNumber", "digitX"}, tbl.Columns)
	require.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, []any{float64(1), []float64{1, 2}}, tbl.Rows[0])
	assert.Equal(t, []any{float64(3), []float64{4, 5, 6}}, tbl.Rows[2])
}

func TestEncode_SanitizedTableName(t *testing.T) {
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "run.2024.01.db")
	require.NoError(t, New(nil).Encode(ctx, testutil.ScenarioRowSet(t), dest))

	names, err := Tables(ctx, dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"run_2024_01"}, names)

	tbl, err := Read(ctx, dest, "run_2024_01", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumRows())
}

func TestEncode_ReplacesExistingRows(t *testing.T) {
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "run42.db")
	enc := New(nil)
	require.NoError(t, enc.Encode(ctx, testutil.ScenarioRowSet(t), dest))
	require.NoError(t, enc.Encode(ctx, testutil.ScenarioRowSet(t), dest))

	tbl, err := Read(ctx, dest, "", nil)
	require.NoError(t, err)
	require.Equal(t, 3, tbl.NumRows())
	ids, _ := tbl.Column("eventNumber")
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, ids)
}

func TestEncode_AllRowsEmpty(t *testing.T) {
	ctx := context.Background()
	rs := column.NewRowSet()
	require.NoError(t, rs.Add(column.Column{Name: "id", Value: column.MustUniform([]int32{1, 2}, 1)}))
	require.NoError(t, rs.Add(column.Column{Name: "hits", Value: column.NewRagged([][]float64{{}, {}})}))

	dest := filepath.Join(t.TempDir(), "nohits.db")
	require.NoError(t, New(nil).Encode(ctx, rs, dest))

	assert.Equal(t, []string{"[]", "[]"}, queryStrings(t, dest, `SELECT "hits" FROM "nohits"`))
	tbl, err := Read(ctx, dest, "", nil)
	require.NoError(t, err)
	hits, _ := tbl.Column("hits")
	assert.Equal(t, []any{[]float64{}, []float64{}}, hits)
}

func TestEncode_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "run42.db")

	db, err := sql.Open(driverName, dest)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE "run42" ("eventNumber" REAL CHECK ("eventNumber" < 3), "digitX" TEXT)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = New(nil).Encode(ctx, testutil.ScenarioRowSet(t), dest)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEncoderIO))

	count := queryStrings(t, dest, `SELECT CAST(COUNT(*) AS TEXT) FROM "run42"`)
	assert.Equal(t, []string{"0"}, count)
}

func TestEncode_RejectsInvalidRowSet(t *testing.T) {
	err := New(nil).Encode(context.Background(), column.NewRowSet(), filepath.Join(t.TempDir(), "x.db"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestEncode_RectangularAndNonFinite(t *testing.T) {
	ctx := context.Background()
	rs := column.NewRowSet()
	require.NoError(t, rs.Add(column.Column{Name: "pos", Value: column.MustUniform([]float32{1, 2, 3, 4}, 2)}))
	require.NoError(t, rs.Add(column.Column{Name: "v", Value: column.NewRagged([][]float64{{math.NaN(), 1}, {math.Inf(-1)}})}))

	dest := filepath.Join(t.TempDir(), "odd.db")
	require.NoError(t, New(nil).Encode(ctx, rs, dest))

	raw := queryStrings(t, dest, `SELECT "v" FROM "odd" ORDER BY rowid`)
	assert.Equal(t, []string{"[NaN, 1]", "[-Infinity]"}, raw)

	tbl, err := Read(ctx, dest, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, tbl.Rows[0][0])

	v0 := tbl.Rows[0][1].([]float64)
	assert.True(t, math.IsNaN(v0[0]))
	assert.Equal(t, 1.0, v0[1])
	assert.Equal(t, []float64{math.Inf(-1)}, tbl.Rows[1][1])
}

func TestRead_BracketHeuristic(t *testing.T) {
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "notes.db")

	db, err := sql.Open(driverName, dest)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE "notes" ("a" TEXT, "b" TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO "notes" VALUES ('[1 2 3]', '[not numbers]'), ('plain', '[]')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	core, logs := observer.New(zap.WarnLevel)
	tbl, err := Read(ctx, dest, "", zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 3}, tbl.Rows[0][0])
	assert.Equal(t, "[not numbers]", tbl.Rows[0][1])
	assert.Equal(t, "plain", tbl.Rows[1][0])
	assert.Equal(t, []float64{}, tbl.Rows[1][1])
	assert.Equal(t, 1, logs.Len())
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(context.Background(), filepath.Join(t.TempDir(), "missing.db"), "", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEncoderIO))
}

func TestParseArray(t *testing.T) {
	tests := []struct {
		in      string
		want    []float64
		wantErr bool
	}{
		{in: "[1.0, 2.0]", want: []float64{1, 2}},
		{in: "[1 2]", want: []float64{1, 2}},
		{in: "[ 1.5,\n 2 ]", want: []float64{1.5, 2}},
		{in: "[]", want: []float64{}},
		{in: "[Infinity]", want: []float64{math.Inf(1)}},
		{in: "[a]", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseArray(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
