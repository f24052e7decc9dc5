package cli

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cconform/internal/config"
	"github.com/roach88/cconform/internal/harness"
	"github.com/roach88/cconform/internal/store"
)

// RunOptions holds flags for the run command. Unset flags fall back to the
// resolved config.
type RunOptions struct {
	*RootOptions
	Dir            string
	SourceExt      string
	Artifact       string
	Recursive      bool
	Jobs           int
	CompileTimeout time.Duration
	RunTimeout     time.Duration
	DBPath         string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	ID         string                    `json:"id"`
	Compiler   []string                  `json:"compiler"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt time.Time                 `json:"finished_at"`
	Summary    harness.Summary           `json:"summary"`
	Programs   []harness.ProgramSnapshot `json:"programs"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}
	defaults := config.Defaults()

	cmd := &cobra.Command{
		Use:   "run <compiler> [names...]",
		Short: "Compile and validate every test case",
		Long: `Compile each test source with the compiler under test and run its
validation script against the resulting executable.

The compiler argument is split on whitespace into the program and its
flags; the source path is appended last. Names restrict the run to those
tests; each argument may hold several space-separated names.

Exit codes:
  0 - No test failed or errored (warnings allowed)
  1 - One or more tests failed or errored
  2 - Configuration error, no test ran

Examples:
  cconform run ./out/cc
  cconform run "./out/cc -O2" "loop_break argc"
  cconform run ./out/cc --dir tests --jobs 4 --db runs.db`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return NewExitError(ExitCommandError, "missing compiler path")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, opts, args[0], args[1:])
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", defaults.Dir, "directory holding test sources and scripts")
	cmd.Flags().StringVar(&opts.SourceExt, "ext", defaults.SourceExt, "test source extension")
	cmd.Flags().StringVar(&opts.Artifact, "artifact", defaults.ArtifactName, "executable the compiler writes next to the source")
	cmd.Flags().BoolVarP(&opts.Recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", defaults.Jobs, "test cases to process in parallel")
	cmd.Flags().DurationVar(&opts.CompileTimeout, "compile-timeout", defaults.CompileTimeout, "compiler time limit (0 disables)")
	cmd.Flags().DurationVar(&opts.RunTimeout, "run-timeout", defaults.RunTimeout, "time limit per artifact run (0 disables)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "record the run in this SQLite database")

	return cmd
}

// applyConfig fills flags the user did not set from the resolved config.
func (o *RunOptions) applyConfig(cmd *cobra.Command) {
	cfg := o.Config
	flags := cmd.Flags()
	if !flags.Changed("dir") {
		o.Dir = cfg.Dir
	}
	if !flags.Changed("ext") {
		o.SourceExt = cfg.SourceExt
	}
	if !flags.Changed("artifact") {
		o.Artifact = cfg.ArtifactName
	}
	if !flags.Changed("jobs") {
		o.Jobs = cfg.Jobs
	}
	if !flags.Changed("compile-timeout") {
		o.CompileTimeout = cfg.CompileTimeout
	}
	if !flags.Changed("run-timeout") {
		o.RunTimeout = cfg.RunTimeout
	}
	if !flags.Changed("db") {
		o.DBPath = cfg.DBPath
	}
}

func runSuite(cmd *cobra.Command, opts *RunOptions, compilerArg string, nameArgs []string) error {
	opts.ensure()
	opts.applyConfig(cmd)
	logger := opts.Logger

	compiler, err := harness.ParseCompiler(compilerArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "bad compiler path", err)
	}
	if _, err := exec.LookPath(compiler[0]); err != nil {
		return WrapExitError(ExitCommandError, "bad compiler path", err)
	}
	if opts.Jobs < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--jobs must be at least 1, got %d", opts.Jobs))
	}

	loader := opts.loader()
	names := splitNames(nameArgs)
	logger.Info("test directory", "dir", opts.Dir)
	cases, err := harness.Discover(opts.Dir, harness.DiscoverOptions{
		SourceExt:  opts.SourceExt,
		Names:      names,
		Recursive:  opts.Recursive,
		Registered: loader.Registered,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "discover tests", err)
	}
	warnMissing(opts, names, cases)

	h, err := harness.New(harness.Config{
		Compiler:       compiler,
		ArtifactName:   opts.Artifact,
		CompileTimeout: opts.CompileTimeout,
		RunTimeout:     opts.RunTimeout,
		Jobs:           opts.Jobs,
	}, harness.WithLoader(loader), harness.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := h.Run(ctx, cases)
	if err != nil {
		return WrapExitError(ExitFailure, "suite aborted", err)
	}

	if err := writeRunOutput(cmd, opts, report); err != nil {
		return err
	}

	if opts.DBPath != "" {
		if err := recordRun(ctx, opts.DBPath, report); err != nil {
			return WrapExitError(ExitCommandError, "record run", err)
		}
		logger.Info("run recorded", "run_id", report.ID, "db", opts.DBPath)
	}

	if !report.OK() {
		s := report.Summary()
		return NewExitError(ExitFailure, fmt.Sprintf("%d test(s) failed, %d errored", s.Failed, s.Errored))
	}
	return nil
}

func writeRunOutput(cmd *cobra.Command, opts *RunOptions, report *harness.Report) error {
	f := opts.formatter(cmd)
	if !f.JSON() {
		return writeTextReport(cmd.OutOrStdout(), report)
	}

	result := RunResult{
		ID:         report.ID,
		Compiler:   report.Compiler,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Summary:    report.Summary(),
		Programs:   report.Snapshot("").Programs,
	}
	if report.OK() {
		return f.Success(result)
	}
	s := result.Summary
	return f.Failure(CodeTestFailed, fmt.Sprintf("%d test(s) failed, %d errored", s.Failed, s.Errored), result)
}

func recordRun(ctx context.Context, path string, report *harness.Report) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.WriteRun(ctx, report)
}

// splitNames flattens name arguments, each of which may hold several
// space-separated names.
func splitNames(args []string) []string {
	var names []string
	for _, arg := range args {
		names = append(names, strings.Fields(arg)...)
	}
	return names
}

// warnMissing logs requested names that matched no test case.
func warnMissing(opts *RunOptions, names []string, cases []harness.TestCase) {
	found := make(map[string]bool, len(cases))
	for _, tc := range cases {
		found[tc.Name] = true
	}
	for _, name := range names {
		if !found[name] {
			opts.Logger.Warn("no matching test found", "name", name, "dir", opts.Dir)
		}
	}
}
