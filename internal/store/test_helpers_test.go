package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/reducerx/internal/value"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun returns a run and two dispatches: a changed one with a
// payload and an errored one without.
func createTestRun(id string) (Run, []Dispatch) {
	run := Run{
		ID:         id,
		Scenario:   "counter",
		Variant:    "merge",
		Resettable: true,
		Initial:    value.Object{"count": value.Int(0)},
		Pass:       true,
	}
	dispatches := []Dispatch{
		{
			Seq:        1,
			ActionType: "inc",
			Payload:    value.Int(2),
			Absent:     true,
			State:      value.Object{"count": value.Int(2)},
			Changed:    true,
		},
		{
			Seq:        2,
			ActionType: "boom",
			State:      value.Object{"count": value.Int(2)},
			Error:      "kaboom",
		},
	}
	return run, dispatches
}
