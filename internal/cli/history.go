package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cconform/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DBPath string
	Limit  int
	RunID  string
	Test   string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded suite runs",
		Long: `Show suite runs recorded with run --db, newest first.

With --run, show every test of one run. With --test, show how one test
fared across runs.

Examples:
  cconform history --db runs.db
  cconform history --db runs.db --run 0190b7a4-...
  cconform history --db runs.db --test argc --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database written by run --db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to show (0 for all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the tests of this run")
	cmd.Flags().StringVar(&opts.Test, "test", "", "show the history of this test")

	return cmd
}

func showHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	opts.ensure()
	if !cmd.Flags().Changed("db") {
		opts.DBPath = opts.Config.DBPath
	}
	if opts.DBPath == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	if opts.RunID != "" && opts.Test != "" {
		return NewExitError(ExitCommandError, "--run and --test are mutually exclusive")
	}
	if _, err := os.Stat(opts.DBPath); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.DBPath))
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	f := opts.formatter(cmd)
	w := cmd.OutOrStdout()

	switch {
	case opts.RunID != "":
		run, err := st.GetRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			return WrapExitError(ExitCommandError, "unknown run", err)
		}
		if err != nil {
			return err
		}
		programs, err := st.ProgramsForRun(ctx, opts.RunID)
		if err != nil {
			return err
		}
		if f.JSON() {
			return f.Success(map[string]any{"run": run, "programs": programs})
		}
		writeRunLine(w, run)
		for _, p := range programs {
			fmt.Fprintf(w, "  %-7s %s\n", p.Program.Category, p.Program.Name)
		}
		return nil

	case opts.Test != "":
		outcomes, err := st.TestHistory(ctx, opts.Test, opts.Limit)
		if err != nil {
			return err
		}
		if f.JSON() {
			return f.Success(outcomes)
		}
		if len(outcomes) == 0 {
			fmt.Fprintf(w, "No runs recorded for %s.\n", opts.Test)
			return nil
		}
		for _, o := range outcomes {
			fmt.Fprintf(w, "%s  %s  %s\n", o.StartedAt.UTC().Format(time.RFC3339), o.RunID, o.Category)
		}
		return nil

	default:
		runs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return err
		}
		if f.JSON() {
			return f.Success(runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return nil
		}
		for _, run := range runs {
			writeRunLine(w, run)
		}
		return nil
	}
}

func writeRunLine(w io.Writer, run store.RunRecord) {
	s := run.Summary
	fmt.Fprintf(w, "%s  %s  %d tests: %d failed, %d errored, %d warned, %d clean  (%s)\n",
		run.StartedAt.UTC().Format(time.RFC3339),
		run.ID,
		s.Total, s.Failed, s.Errored, s.Warned, s.Clean,
		strings.Join(run.Compiler, " "),
	)
}
