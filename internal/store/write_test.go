package store

import (
	"context"
	"testing"
	"time"
)

func TestWriteRun_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteRun(ctx, createTestReport("run-1", testEpoch)); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	var runs, programs int
	if err := s.db.Get(&runs, "SELECT COUNT(*) FROM suite_runs"); err != nil {
		t.Fatal(err)
	}
	if err := s.db.Get(&programs, "SELECT COUNT(*) FROM program_results WHERE run_id = 'run-1'"); err != nil {
		t.Fatal(err)
	}
	if runs != 1 || programs != 4 {
		t.Errorf("got %d runs and %d programs, want 1 and 4", runs, programs)
	}
}

func TestWriteRun_StoresCategories(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteRun(ctx, createTestReport("run-1", testEpoch)); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	var categories []string
	if err := s.db.Select(&categories, "SELECT category FROM program_results ORDER BY position"); err != nil {
		t.Fatal(err)
	}
	want := []string{"failed", "errored", "warned", "clean"}
	for i := range want {
		if categories[i] != want[i] {
			t.Errorf("position %d: category = %q, want %q", i, categories[i], want[i])
		}
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	report := createTestReport("run-1", testEpoch)

	for i := 0; i < 2; i++ {
		if err := s.WriteRun(ctx, report); err != nil {
			t.Fatalf("WriteRun() #%d failed: %v", i, err)
		}
	}

	var programs int
	if err := s.db.Get(&programs, "SELECT COUNT(*) FROM program_results"); err != nil {
		t.Fatal(err)
	}
	if programs != 4 {
		t.Errorf("programs = %d after duplicate write, want 4", programs)
	}
}

func TestWriteRun_CanonicalRecord(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteRun(ctx, createTestReport("run-1", testEpoch)); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	var record string
	if err := s.db.Get(&record, "SELECT record FROM program_results WHERE name = 'return'"); err != nil {
		t.Fatal(err)
	}
	want := `{"category":"clean","has_executable":true,"name":"return","runs":2}`
	if record != want {
		t.Errorf("record = %s, want %s", record, want)
	}
}

func TestWriteRun_Timestamps(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 0, 0, 500, time.FixedZone("CET", 3600))

	if err := s.WriteRun(ctx, createTestReport("run-1", started)); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	var stored string
	if err := s.db.Get(&stored, "SELECT started_at FROM suite_runs"); err != nil {
		t.Fatal(err)
	}
	if stored != "2024-03-01T11:00:00.000000500Z" {
		t.Errorf("started_at = %q, want UTC text", stored)
	}
}

func TestDeleteRun_Cascades(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteRun(ctx, createTestReport("run-1", testEpoch)); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	if err := s.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteRun() failed: %v", err)
	}
	if err := s.DeleteRun(ctx, "unknown"); err != nil {
		t.Errorf("DeleteRun(unknown) = %v, want nil", err)
	}

	var programs int
	if err := s.db.Get(&programs, "SELECT COUNT(*) FROM program_results"); err != nil {
		t.Fatal(err)
	}
	if programs != 0 {
		t.Errorf("programs = %d after delete, want 0", programs)
	}
}
