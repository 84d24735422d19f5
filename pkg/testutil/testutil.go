// Package testutil provides testing utilities for root2data
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/appINPP/root2data/pkg/column"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// ScenarioRowSet returns the three-event RowSet used across encoder tests:
// eventNumber [1 2 3] and digitX [[1 2] [3] [4 5 6]].
func ScenarioRowSet(t *testing.T) *column.RowSet {
	t.Helper()
	rs := column.NewRowSet()
	require.NoError(t, rs.Add(column.Column{Name: "eventNumber", Value: column.MustUniform([]int32{1, 2, 3}, 1)}))
	require.NoError(t, rs.Add(column.Column{Name: "digitX", Value: column.NewRagged([][]float64{{1, 2}, {3}, {4, 5, 6}})}))
	return rs
}
