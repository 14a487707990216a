package e2e

import (
	"os"
	"sync"
	"testing"
)

// harness is global state shared by all tests. It is initialized once by
// the first test that calls ensureHarness.
var (
	harness     *TestHarness
	harnessOnce sync.Once
)

// ensureHarness starts the harness on first call. All subsequent calls
// return the existing harness. The first caller's testing.T is used
// for server lifecycle management.
func ensureHarness(t *testing.T) *TestHarness {
	t.Helper()
	harnessOnce.Do(func() {
		harness = NewHarness(t)
	})

	if harness == nil {
		t.Fatal("harness initialization failed")
	}
	return harness
}

// TestMain configures the test binary and ensures proper cleanup.
func TestMain(m *testing.M) {
	exitCode := m.Run()

	if harness != nil {
		harness.Stop()
	}

	os.Exit(exitCode)
}
