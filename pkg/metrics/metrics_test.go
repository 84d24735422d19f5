package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Observe(t *testing.T) {
	c := NewCollector()

	c.ObserveFile(StatusSuccess)
	c.ObserveFile(StatusSuccess)
	c.ObserveFile(StatusFailure)
	c.ObserveColumn("textual", 2)
	c.ObserveColumn("uniform", 0)
	c.ObserveMissing(1)
	c.ObserveEncode("h5", 3, 10*time.Millisecond, nil)
	c.ObserveEncode("sqlite", 3, time.Millisecond, errors.New("disk full"))
	c.SetResidentMemory(1 << 20)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.filesProcessed.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.filesProcessed.WithLabelValues(StatusFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.columnsNormalized.WithLabelValues("textual")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.rowsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.missingColumns))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.rowsWritten.WithLabelValues("h5")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.rowsWritten.WithLabelValues("sqlite")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.artifactsWritten.WithLabelValues("sqlite", StatusFailure)))
	assert.Equal(t, float64(1<<20), testutil.ToFloat64(c.residentMemory))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.ObserveFile(StatusSuccess)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.filesProcessed.WithLabelValues(StatusSuccess)))
}

func TestCollector_WriteToTextfile(t *testing.T) {
	c := NewCollector()
	c.ObserveFile(StatusSuccess)

	path := filepath.Join(t.TempDir(), "root2data.prom")
	require.NoError(t, c.WriteToTextfile(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `root2data_files_processed_total{status="success"} 1`)
}

func TestTimer(t *testing.T) {
	timer := NewTimer("encode")
	time.Sleep(time.Millisecond)
	first := timer.Stop()
	assert.GreaterOrEqual(t, first, time.Millisecond)
	assert.GreaterOrEqual(t, timer.Stop(), first)
	assert.Equal(t, "encode", timer.Name())
}
