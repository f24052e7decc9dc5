package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/cconform/internal/harness"
	"github.com/roach88/cconform/internal/testutil"
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

// createTestReport builds a report with one program per category.
func createTestReport(id string, started time.Time) *harness.Report {
	return &harness.Report{
		ID:         id,
		Compiler:   []string{"./mycc", "-O2"},
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Programs: []*harness.Program{
			{
				Name:     "argc",
				Failed:   true,
				Runs:     3,
				Errors:   []string{"/t/a.out: Expected EQ\n\t1 (int)\n\t0 (int)"},
				Failures: []harness.Failure{{Kind: harness.FailureAssertion, Message: "/t/a.out: Expected EQ\n\t1 (int)\n\t0 (int)"}},
			},
			{Name: "broken", HasExecutable: true, ScriptErr: errors.New("script broken: boom")},
			{Name: "loop/while", HasExecutable: true, CompileOutput: "warning: unused\n", Runs: 1},
			{Name: "return", HasExecutable: true, Runs: 2},
		},
	}
}

var testEpoch = testutil.Epoch
