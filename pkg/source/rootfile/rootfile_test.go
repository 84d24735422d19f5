package rootfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
	"go.uber.org/zap/zaptest"

	"github.com/appINPP/root2data/pkg/errors"
	"github.com/appINPP/root2data/pkg/source"
)

type event struct {
	EventNumber int32
	Energy      float64
	Pos         [3]float32
	N           int32
	DigitX      []float64
	Hit         bool
	Label       string
}

var events = []event{
	{EventNumber: 1, Energy: 0.5, Pos: [3]float32{1, 2, 3}, N: 2, DigitX: []float64{1, 2}, Hit: true, Label: "a"},
	{EventNumber: 2, Energy: 1.5, Pos: [3]float32{4, 5, 6}, N: 1, DigitX: []float64{3}, Hit: false, Label: "b"},
	{EventNumber: 3, Energy: 2.5, Pos: [3]float32{7, 8, 9}, N: 3, DigitX: []float64{4, 5, 6}, Hit: true, Label: "c"},
}

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run42.root")

	f, err := groot.Create(path)
	require.NoError(t, err)
	defer f.Close()

	var evt event
	w, err := rtree.NewWriter(f, "events", []rtree.WriteVar{
		{Name: "eventNumber", Value: &evt.EventNumber},
		{Name: "energy", Value: &evt.Energy},
		{Name: "pos", Value: &evt.Pos},
		{Name: "n", Value: &evt.N},
		{Name: "digitX", Value: &evt.DigitX, Count: "n"},
		{Name: "hit", Value: &evt.Hit},
		{Name: "label", Value: &evt.Label},
	})
	require.NoError(t, err)

	for _, e := range events {
		evt = e
		_, err := w.Write()
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestOpener_ReadsBranches(t *testing.T) {
	h, err := Opener{}.Open(writeFixture(t))
	require.NoError(t, err)
	defer h.Close()

	tables, err := h.Tables()
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "events;1", tables[0].Name())
	assert.Subset(t, tables[0].Columns(), []string{"eventNumber", "energy", "pos", "digitX", "hit", "label"})

	raw, err := tables[0].Read([]string{"eventNumber", "energy", "pos", "digitX", "hit", "label"})
	require.NoError(t, err)

	assert.Equal(t, []int32{1, 2, 3}, raw["eventNumber"].Values)
	assert.Equal(t, 1, raw["eventNumber"].Width)
	assert.Equal(t, []float64{0.5, 1.5, 2.5}, raw["energy"].Values)

	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, raw["pos"].Values)
	assert.Equal(t, 3, raw["pos"].Width)

	assert.Equal(t, []any{[]float64{1, 2}, []float64{3}, []float64{4, 5, 6}}, raw["digitX"].Values)
	assert.True(t, raw["digitX"].Generic())

	assert.Equal(t, []uint8{1, 0, 1}, raw["hit"].Values)
	assert.Equal(t, []any{"a", "b", "c"}, raw["label"].Values)
}

func TestExtract_FromRootFile(t *testing.T) {
	h, err := Opener{}.Open(writeFixture(t))
	require.NoError(t, err)
	defer h.Close()

	ex, err := source.Extract(h, []string{"digitX", "eventNumber"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, ex.Columns, 2)
	assert.Equal(t, "digitX", ex.Columns[0].Name)
	assert.Equal(t, "eventNumber", ex.Columns[1].Name)
	assert.Empty(t, ex.Missing)

	ex, err = source.Extract(h, []string{"eventNumber", "absent"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Empty(t, ex.Columns)
	assert.Equal(t, []string{"eventNumber", "absent"}, ex.Missing)
}

func TestOpener_MissingFile(t *testing.T) {
	_, err := Opener{}.Open(filepath.Join(t.TempDir(), "nope.root"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))
}
