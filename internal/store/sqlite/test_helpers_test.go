package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/roach88/flowreg/internal/flow"
	"github.com/roach88/flowreg/internal/testutil"
)

// drivers lists every supported driver; tests that touch the database run
// once per driver.
var drivers = []Driver{DriverCGO, DriverPureGo}

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T, driver Driver, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, append([]Option{WithDriver(driver)}, opts...)...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestFlow creates a flow with a deterministic id.
func createTestFlow(t *testing.T, n uint64, name string, tags ...string) flow.Flow {
	t.Helper()
	f, err := flow.New(name, tags...)
	if err != nil {
		t.Fatalf("flow.New(%q) failed: %v", name, err)
	}
	f.ID = testutil.SeqID(n)
	return f
}
