package inspect

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioTable() *Table {
	return &Table{
		Name:    "run42",
		Columns: []string{"eventNumber", "digitX"},
		Rows: [][]any{
			{int32(1), []float64{1, 2}},
			{int32(2), []float64{3}},
			{int32(3), []float64{4, 5, 6}},
		},
	}
}

func TestTable_Column(t *testing.T) {
	tbl := scenarioTable()
	col, ok := tbl.Column("digitX")
	require.True(t, ok)
	assert.Equal(t, []float64{4, 5, 6}, col[2])

	_, ok = tbl.Column("missing")
	assert.False(t, ok)
	assert.Equal(t, 3, tbl.NumRows())
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, scenarioTable(), 2))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "run42 (3 rows)", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "eventNumber  digitX"))
	assert.Contains(t, lines[2], "[1 2]")
	assert.Equal(t, "... 1 more rows", lines[4])

	buf.Reset()
	require.NoError(t, Render(&buf, scenarioTable(), 0))
	assert.Contains(t, buf.String(), "[4 5 6]")
	assert.NotContains(t, buf.String(), "more rows")
}

func TestRenderJSON(t *testing.T) {
	tbl := &Table{
		Columns: []string{"b", "a"},
		Rows: [][]any{
			{1.5, []float64{1, math.NaN()}},
			{nil, "text"},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, tbl))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"b":1.5,"a":[1,"NaN"]}`, lines[0])
	assert.Equal(t, `{"b":null,"a":"text"}`, lines[1])
}

func TestDescribe(t *testing.T) {
	tbl := scenarioTable()
	tbl.Rows = append(tbl.Rows, []any{nil, []float64{}})

	got := Describe(tbl)
	require.Len(t, got, 2)

	assert.Equal(t, "int32", got[0].Type)
	assert.Equal(t, 1, got[0].Nulls)
	assert.False(t, got[0].Ragged())

	assert.Equal(t, "[]float64", got[1].Type)
	assert.Equal(t, 0, got[1].MinLen)
	assert.Equal(t, 3, got[1].MaxLen)
	assert.True(t, got[1].Ragged())

	var buf bytes.Buffer
	require.NoError(t, RenderDescribe(&buf, tbl))
	assert.Contains(t, buf.String(), "0..3")
	assert.Contains(t, buf.String(), "scalar")
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "null", FormatCell(nil))
	assert.Equal(t, "abc", FormatCell([]byte("abc")))
	assert.Equal(t, "[1 2.5]", FormatCell([]float64{1, 2.5}))
	assert.Equal(t, "7", FormatCell(int64(7)))
}
