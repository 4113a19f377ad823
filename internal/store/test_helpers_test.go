package store

import (
	"fmt"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temporary directory.
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

// createTestResult creates a successful record with minimal required fields.
func createTestResult(id string, seq int64) Evaluation {
	return Evaluation{
		ID:           id,
		Seq:          seq,
		Program:      []byte{0x10, 0x01, 0x2a},
		ProgramID:    fmt.Sprintf("program-%d", seq),
		EnvVersion:   "smarm/env/v1",
		ManifestID:   "manifest-hash",
		StepBudget:   100,
		MemoryBudget: 100,
		Result:       []byte{0x10, 0x01, 0x2a},
		ResultID:     "result-hash",
		StepsUsed:    1,
	}
}

// createTestHalt creates a halted record with minimal required fields.
func createTestHalt(id string, seq int64, code string) Evaluation {
	return Evaluation{
		ID:           id,
		Seq:          seq,
		Program:      []byte{0x20, 0x01, 'x'},
		ProgramID:    fmt.Sprintf("program-%d", seq),
		EnvVersion:   "smarm/env/v1",
		ManifestID:   "manifest-hash",
		StepBudget:   100,
		MemoryBudget: 100,
		HaltCode:     code,
		HaltMessage:  "unbound variable x",
		HaltDetails:  map[string]string{"symbol": "x"},
		StepsUsed:    1,
	}
}
