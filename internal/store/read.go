package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/cconform/internal/harness"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one recorded suite run.
type RunRecord struct {
	ID         string          `json:"id"`
	Compiler   []string        `json:"compiler"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Summary    harness.Summary `json:"summary"`
}

// ProgramRecord is one recorded Program outcome.
type ProgramRecord struct {
	RunID    string                  `json:"run_id"`
	Position int                     `json:"position"`
	Program  harness.ProgramSnapshot `json:"program"`
}

// TestOutcome is a test's category in one run, for per-test history.
type TestOutcome struct {
	RunID     string           `json:"run_id"`
	StartedAt time.Time        `json:"started_at"`
	Category  harness.Category `json:"category"`
}

type runRow struct {
	ID         string `db:"id"`
	Compiler   string `db:"compiler"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
	Total      int    `db:"total"`
	Failed     int    `db:"failed"`
	Errored    int    `db:"errored"`
	Warned     int    `db:"warned"`
	Clean      int    `db:"clean"`
}

func (r runRow) record() (RunRecord, error) {
	compiler, err := unmarshalCompiler(r.Compiler)
	if err != nil {
		return RunRecord{}, err
	}
	started, err := parseTime(r.StartedAt)
	if err != nil {
		return RunRecord{}, err
	}
	finished, err := parseTime(r.FinishedAt)
	if err != nil {
		return RunRecord{}, err
	}
	return RunRecord{
		ID:         r.ID,
		Compiler:   compiler,
		StartedAt:  started,
		FinishedAt: finished,
		Summary: harness.Summary{
			Total:   r.Total,
			Failed:  r.Failed,
			Errored: r.Errored,
			Warned:  r.Warned,
			Clean:   r.Clean,
		},
	}, nil
}

const runColumns = `id, compiler, started_at, finished_at, total, failed, errored, warned, clean`

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
//
// Returns an empty slice (not nil) if no runs are recorded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+runColumns+`
		FROM suite_runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	runs := make([]RunRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", row.ID, err)
		}
		runs = append(runs, rec)
	}
	return runs, nil
}

// GetRun returns the run with the given ID, or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (RunRecord, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT `+runColumns+` FROM suite_runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("query run %s: %w", id, err)
	}
	return row.record()
}

// ProgramsForRun returns the Programs of a run in report order.
//
// Returns an empty slice (not nil) if the run has no programs.
func (s *Store) ProgramsForRun(ctx context.Context, runID string) ([]ProgramRecord, error) {
	var rows []struct {
		Position int    `db:"position"`
		Record   string `db:"record"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT position, record
		FROM program_results
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query programs: %w", err)
	}

	programs := make([]ProgramRecord, 0, len(rows))
	for _, row := range rows {
		snap, err := unmarshalProgram(row.Record)
		if err != nil {
			return nil, fmt.Errorf("program %d of run %s: %w", row.Position, runID, err)
		}
		programs = append(programs, ProgramRecord{RunID: runID, Position: row.Position, Program: snap})
	}
	return programs, nil
}

// TestHistory returns the category of the named test in up to limit runs,
// newest first. A limit of zero or less returns every run.
func (s *Store) TestHistory(ctx context.Context, name string, limit int) ([]TestOutcome, error) {
	if limit <= 0 {
		limit = -1
	}

	var rows []struct {
		RunID     string `db:"run_id"`
		StartedAt string `db:"started_at"`
		Category  string `db:"category"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT p.run_id, r.started_at, p.category
		FROM program_results p
		JOIN suite_runs r ON r.id = p.run_id
		WHERE p.name = ?
		ORDER BY r.started_at DESC, r.id COLLATE BINARY DESC
		LIMIT ?
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("query history of %s: %w", name, err)
	}

	outcomes := make([]TestOutcome, 0, len(rows))
	for _, row := range rows {
		started, err := parseTime(row.StartedAt)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, TestOutcome{
			RunID:     row.RunID,
			StartedAt: started,
			Category:  harness.Category(row.Category),
		})
	}
	return outcomes, nil
}
