package store

import (
	"context"
	"fmt"

	"github.com/roach88/cconform/internal/harness"
)

// WriteRun records a finished suite run and every Program in it, in one
// transaction. Uses ON CONFLICT DO NOTHING for idempotency: writing the same
// run ID twice leaves the first record untouched.
func (s *Store) WriteRun(ctx context.Context, r *harness.Report) error {
	compiler, err := marshalCompiler(r.Compiler)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	records := make([]string, len(r.Programs))
	for i, p := range r.Programs {
		if records[i], err = marshalProgram(p); err != nil {
			return fmt.Errorf("write run: %w", err)
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	sum := r.Summary()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO suite_runs
		(id, compiler, started_at, finished_at, total, failed, errored, warned, clean)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		compiler,
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
		sum.Total,
		sum.Failed,
		sum.Errored,
		sum.Warned,
		sum.Clean,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Already recorded
		return nil
	}

	for i, p := range r.Programs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO program_results (run_id, position, name, category, record)
			VALUES (?, ?, ?, ?, ?)
		`, r.ID, i, p.Name, string(harness.Classify(p)), records[i])
		if err != nil {
			return fmt.Errorf("write program %s: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

// DeleteRun removes a run and, through the foreign key, its programs.
// Deleting an unknown ID is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM suite_runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	return nil
}
