package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/cconform/internal/proc"
	"github.com/roach88/cconform/internal/script"
)

// Default timeouts. A hung artifact must not block the suite forever.
const (
	DefaultCompileTimeout = 60 * time.Second
	DefaultRunTimeout     = 10 * time.Second
)

// ErrNoCompiler is returned for a missing or blank compiler invocation.
var ErrNoCompiler = errors.New("bad compiler path")

// Config is the harness configuration. The compiler invocation is passed
// explicitly; nothing is read from globals.
type Config struct {
	// Compiler is the program path followed by its flags. The source path
	// is appended as the last argument.
	Compiler []string

	// ArtifactName is the file the compiler writes next to the source.
	// Defaults to DefaultArtifactName.
	ArtifactName string

	CompileTimeout time.Duration
	RunTimeout     time.Duration

	// Jobs is the number of test cases processed at once. Values above 1
	// compile each case in its own temporary directory.
	Jobs int
}

// ParseCompiler splits a compiler invocation token into program and flags.
func ParseCompiler(s string) ([]string, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, ErrNoCompiler
	}
	return fields, nil
}

// Validate checks the configuration before any test runs.
func (c Config) Validate() error {
	if len(c.Compiler) == 0 || strings.TrimSpace(c.Compiler[0]) == "" {
		return ErrNoCompiler
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must be non-negative, got %d", c.Jobs)
	}
	if c.CompileTimeout < 0 || c.RunTimeout < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}
	if strings.ContainsAny(c.ArtifactName, `/\`) {
		return fmt.Errorf("artifact name must be a file name, got %q", c.ArtifactName)
	}
	return nil
}

// IDGenerator produces suite run identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates time-ordered UUIDv7 run IDs.
type UUIDGenerator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Harness drives discovery results through compile, validation and
// aggregation.
type Harness struct {
	cfg    Config
	env    programEnv
	loader *script.Loader
	logger *slog.Logger
	now    func() time.Time
	ids    IDGenerator
}

// Option configures a Harness.
type Option func(*Harness)

// WithRunner replaces the OS process runner.
func WithRunner(r proc.Runner) Option {
	return func(h *Harness) { h.env.runner = r }
}

// WithLoader sets the script loader.
func WithLoader(l *script.Loader) Option {
	return func(h *Harness) { h.loader = l }
}

// WithLogger sets the logger used by the harness and every Program.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Harness) { h.now = now }
}

// WithIDGenerator replaces the run ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(h *Harness) { h.ids = g }
}

// New creates a Harness. Configuration errors are returned before any
// test runs.
func New(cfg Config, opts ...Option) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ArtifactName == "" {
		cfg.ArtifactName = DefaultArtifactName
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = 1
	}

	h := &Harness{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		ids:    UUIDGenerator{},
		env:    programEnv{runner: proc.OSRunner{}},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.loader == nil {
		h.loader = script.NewLoader(nil, h.logger)
	}

	h.env.compiler = cfg.Compiler
	h.env.artifactName = cfg.ArtifactName
	h.env.compileTimeout = cfg.CompileTimeout
	h.env.runTimeout = cfg.RunTimeout
	h.env.logger = h.logger
	return h, nil
}

// Config returns the effective configuration.
func (h *Harness) Config() Config {
	return h.cfg
}

// Run processes every test case and returns the aggregate report. Every
// attempted Program is retained, including ones that failed to compile.
// An error is returned only when ctx is cancelled.
func (h *Harness) Run(ctx context.Context, cases []TestCase) (*Report, error) {
	report := &Report{
		ID:        h.ids.Generate(),
		Compiler:  h.cfg.Compiler,
		StartedAt: h.now(),
		Programs:  make([]*Program, len(cases)),
	}
	h.logger.Info("suite started", "run_id", report.ID, "tests", len(cases), "jobs", h.cfg.Jobs)

	if h.cfg.Jobs <= 1 {
		for i, tc := range cases {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("run interrupted: %w", err)
			}
			report.Programs[i] = h.runCase(ctx, tc, tc.SourcePath)
		}
	} else if err := h.runParallel(ctx, cases, report.Programs); err != nil {
		return nil, err
	}

	report.FinishedAt = h.now()
	s := report.Summary()
	h.logger.Info("suite finished",
		"run_id", report.ID,
		"failed", s.Failed,
		"errored", s.Errored,
		"warned", s.Warned,
		"clean", s.Clean,
	)
	return report, nil
}

// runParallel compiles each case in its own directory so artifact paths
// never collide. Results land in their case's slot, keeping report order.
func (h *Harness) runParallel(ctx context.Context, cases []TestCase, programs []*Program) error {
	root, err := os.MkdirTemp("", "cconform-")
	if err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(root)

	var g errgroup.Group
	g.SetLimit(h.cfg.Jobs)
	for i, tc := range cases {
		i, tc := i, tc
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			buildPath, err := isolate(root, i, tc.SourcePath)
			if err != nil {
				p := newProgram(tc, tc.SourcePath, h.env)
				p.fail(FailureCompile, fmt.Sprintf("prepare work directory: %v", err))
				p.finish()
				programs[i] = p
				return nil
			}
			programs[i] = h.runCase(ctx, tc, buildPath)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	return nil
}

// runCase compiles one test case and, when that succeeds, runs its
// validation script against the Program.
func (h *Harness) runCase(ctx context.Context, tc TestCase, buildPath string) *Program {
	p := newProgram(tc, buildPath, h.env)
	defer p.finish()

	h.logger.Info("test started", "test", tc.Name, "source", tc.SourcePath)
	if !p.Compile(ctx) {
		return p
	}

	s, err := h.loader.Load(tc.Name, tc.ScriptPath)
	if err != nil {
		p.ScriptErr = err
		h.logger.Error("script load failed", "test", tc.Name, "error", err)
		return p
	}

	if err := script.Execute(ctx, tc.Name, tc.ScriptPath, s, p); err != nil {
		p.ScriptErr = err
		h.logger.Error("script raised", "test", tc.Name, "error", err)
	}
	return p
}

// isolate copies src into its own directory under root.
func isolate(root string, idx int, src string) (string, error) {
	dir := filepath.Join(root, fmt.Sprintf("%04d", idx))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}
