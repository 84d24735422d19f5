package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
)

// IntegrationTestSuite provides a data directory layout shared by the tests
// of a suite: one source directory and one output directory per format.
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	tempDir   string
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()
	s.T().Logf("Integration test suite started")
}

// SetupTest gives each test a fresh directory tree.
func (s *IntegrationTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "root2data-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir
	for _, d := range []string{"root", "h5", "sqlite", "parquet"} {
		require.NoError(s.T(), os.MkdirAll(filepath.Join(tempDir, d), 0o755))
	}
}

// TearDownTest removes the test's directory tree.
func (s *IntegrationTestSuite) TearDownTest() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()
	s.T().Logf("Integration test suite completed in %v", time.Since(s.startTime))
}

// Context returns the test context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// Dir returns a subdirectory of the test tree ("root", "h5", "sqlite" or
// "parquet").
func (s *IntegrationTestSuite) Dir(name string) string {
	return filepath.Join(s.tempDir, name)
}

// IntegrationTest skips the calling test under -short.
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// Event is one entry of the fixture tree written by WriteRootFile.
type Event struct {
	EventNumber int32
	N           int32
	DigitX      []float64
}

// ScenarioEvents matches ScenarioRowSet.
var ScenarioEvents = []Event{
	{EventNumber: 1, N: 2, DigitX: []float64{1, 2}},
	{EventNumber: 2, N: 1, DigitX: []float64{3}},
	{EventNumber: 3, N: 3, DigitX: []float64{4, 5, 6}},
}

// WriteRootFile writes a ROOT file at path holding one tree with the branches
// eventNumber, n and digitX (counted by n).
func WriteRootFile(t *testing.T, path, tree string, events []Event) {
	t.Helper()

	f, err := groot.Create(path)
	require.NoError(t, err)
	defer f.Close()

	var evt Event
	w, err := rtree.NewWriter(f, tree, []rtree.WriteVar{
		{Name: "eventNumber", Value: &evt.EventNumber},
		{Name: "n", Value: &evt.N},
		{Name: "digitX", Value: &evt.DigitX, Count: "n"},
	})
	require.NoError(t, err)

	for i, e := range events {
		evt = e
		if _, err := w.Write(); err != nil {
			require.NoError(t, fmt.Errorf("event %d: %w", i, err))
		}
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}
