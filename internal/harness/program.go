package harness

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/cconform/internal/proc"
	"github.com/roach88/cconform/internal/verdict"
)

// DefaultArtifactName is the executable the compiler is expected to write
// next to the source file.
const DefaultArtifactName = "a.out"

// Program tracks the build-and-run lifecycle of one TestCase.
//
// Failed is monotonic: once set it is never cleared. HasExecutable is only
// true when the compiler exited 0 and the artifact exists on disk.
type Program struct {
	Name       string
	SourcePath string

	// ArtifactPath is set only after a successful compile.
	ArtifactPath  string
	HasExecutable bool

	// CompileOutput is the compiler's combined stdout and stderr.
	CompileOutput string

	Failed   bool
	Errors   []string
	Failures []Failure

	// ScriptErr is set when the validation script could not render a
	// verdict. It does not set Failed.
	ScriptErr error

	// Runs counts run invocations that executed the artifact.
	Runs int

	state     State
	buildPath string
	env       programEnv
}

// programEnv is what a Program borrows from its Harness.
type programEnv struct {
	compiler       []string
	artifactName   string
	compileTimeout time.Duration
	runTimeout     time.Duration
	runner         proc.Runner
	logger         *slog.Logger
}

// newProgram creates a Program for tc. buildPath is the source file handed
// to the compiler; it differs from tc.SourcePath when the case is compiled
// in an isolated directory.
func newProgram(tc TestCase, buildPath string, env programEnv) *Program {
	return &Program{
		Name:       tc.Name,
		SourcePath: tc.SourcePath,
		state:      StateCreated,
		buildPath:  buildPath,
		env:        env,
	}
}

// State returns the lifecycle state.
func (p *Program) State() State {
	return p.state
}

// ErrorMessages joins every recorded diagnostic in order.
func (p *Program) ErrorMessages() string {
	return strings.Join(p.Errors, "\n")
}

// fail records a failure and marks the program failed.
func (p *Program) fail(kind FailureKind, msg string) {
	p.Failures = append(p.Failures, Failure{Kind: kind, Message: msg})
	p.Errors = append(p.Errors, msg)
	p.Failed = true
}

// Compile invokes the compiler with the source path as the last argument.
// Success requires exit status 0 AND the artifact on disk afterwards; any
// stale artifact is removed first so an old build cannot pass for a new one.
func (p *Program) Compile(ctx context.Context) bool {
	p.state = StateCompiling

	artifact := filepath.Join(filepath.Dir(p.buildPath), p.env.artifactName)
	// A bare name would be looked up in PATH when run
	if abs, err := filepath.Abs(artifact); err == nil {
		artifact = abs
	}
	if err := os.Remove(artifact); err != nil && !errors.Is(err, fs.ErrNotExist) {
		p.env.logger.Warn("could not remove stale artifact", "path", artifact, "error", err)
	}

	argv := make([]string, 0, len(p.env.compiler)+1)
	argv = append(argv, p.env.compiler...)
	argv = append(argv, p.buildPath)
	p.env.logger.Info("compile", "test", p.Name, "cmd", strings.Join(argv, " "))

	res := p.env.runner.Run(ctx, proc.Command{
		Argv:           argv,
		Timeout:        p.env.compileTimeout,
		CombinedOutput: true,
	})
	p.CompileOutput = res.Stdout

	switch {
	case res.TimedOut:
		p.fail(FailureCompileTimeout, fmt.Sprintf("compiler timed out after %s", p.env.compileTimeout))
	case !res.Started():
		p.fail(FailureCompile, fmt.Sprintf("could not start compiler: %v", res.Err))
	case res.ExitCode != 0:
		p.fail(FailureCompile, fmt.Sprintf("compiler exited non zero %d", res.ExitCode))
	case !isFile(artifact):
		p.fail(FailureCompile, fmt.Sprintf("no executable generated: %s", artifact))
	default:
		p.HasExecutable = true
		p.ArtifactPath = artifact
		p.state = StateCompiled
		return true
	}

	p.env.logger.Error("compile failed", "test", p.Name, "reason", p.Errors[len(p.Errors)-1])
	p.state = StateCompileFailed
	return false
}

// Run executes the artifact with args and folds the Verdict returned by
// check into the program. It returns false, without starting any process,
// when there is no executable. Failures never stop later runs.
func (p *Program) Run(ctx context.Context, check verdict.Check, args ...string) bool {
	if !p.HasExecutable {
		p.env.logger.Error("run refused: no executable", "test", p.Name)
		return false
	}

	argv := make([]string, 0, len(args)+1)
	argv = append(argv, p.ArtifactPath)
	argv = append(argv, args...)
	cmdline := quoteArgv(argv)
	p.env.logger.Info("run", "test", p.Name, "cmd", cmdline)

	res := p.env.runner.Run(ctx, proc.Command{
		Argv:    argv,
		Timeout: p.env.runTimeout,
	})
	p.Runs++

	if res.TimedOut {
		p.fail(FailureRunTimeout, fmt.Sprintf("%s timed out after %s", cmdline, p.env.runTimeout))
		return true
	}
	if !res.Started() {
		p.fail(FailureRun, fmt.Sprintf("could not start %s: %v", cmdline, res.Err))
		return true
	}
	if res.Signal != "" {
		p.env.logger.Warn("terminated by signal", "test", p.Name, "signal", res.Signal, "exit_code", res.ExitCode)
	}
	if check == nil {
		return true
	}

	v := verdict.New(p.env.logger.With("test", p.Name, "run", p.Runs))
	p.fold(cmdline, verdict.Merge(check(res, v), v.Verdict()))
	return true
}

// fold merges a returned Verdict into the program record.
func (p *Program) fold(cmdline string, vd verdict.Verdict) {
	errs := vd.Errors()
	for _, msg := range errs {
		p.fail(FailureAssertion, fmt.Sprintf("%s: %s", cmdline, msg))
	}
	if vd.Failed && len(errs) == 0 {
		p.fail(FailureAssertion, fmt.Sprintf("%s: validator reported failure", cmdline))
	}
}

// finish moves the program to its terminal state.
func (p *Program) finish() {
	p.state = StateReported
}

// quoteArgv renders argv the way a shell user would type it.
func quoteArgv(argv []string) string {
	parts := make([]string, len(argv))
	parts[0] = argv[0]
	for i, arg := range argv[1:] {
		parts[i+1] = fmt.Sprintf("%q", arg)
	}
	return strings.Join(parts, " ")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
