package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/roach88/cconform/internal/verdict"
)

// Extensions lists validation script extensions in lookup order.
var Extensions = []string{".cue", ".yaml", ".yml"}

// ErrNoScript is returned when a test case has no validation script.
var ErrNoScript = errors.New("no matching validation script found")

// Program is the handle bound into every validation script.
type Program interface {
	// Run executes the compiled artifact with args and applies check to the
	// result. It returns false when the run was refused.
	Run(ctx context.Context, check verdict.Check, args ...string) bool
}

// Script is executable validation logic for one test case.
type Script interface {
	Execute(ctx context.Context, p Program) error
}

// Func adapts a function to the Script interface.
type Func func(ctx context.Context, p Program) error

// Execute calls f(ctx, p).
func (f Func) Execute(ctx context.Context, p Program) error {
	return f(ctx, p)
}

// ScriptError means a test could not render a verdict at all: its script
// was missing, failed to load, or raised during execution.
type ScriptError struct {
	Name string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("script %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("script %s (%s): %v", e.Name, e.Path, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// Registry maps test names to compiled-in scripts.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// DefaultRegistry collects scripts registered from init functions of
// packages linked into the binary.
var DefaultRegistry = NewRegistry()

// Register adds fn to DefaultRegistry.
func Register(name string, fn Func) {
	DefaultRegistry.Register(name, fn)
}

// Register adds fn under name. Registering a name twice panics, like
// duplicate flag or driver registration does.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		panic("script: Register fn is nil")
	}
	if _, dup := r.funcs[name]; dup {
		panic("script: Register called twice for " + name)
	}
	r.funcs[name] = fn
}

// Lookup returns the script registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindScript returns the first existing "<dir>/<stem><ext>" for ext in
// Extensions.
func FindScript(dir, stem string) (string, bool) {
	for _, ext := range Extensions {
		path := filepath.Join(dir, stem+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Loader resolves the Script for a test case.
type Loader struct {
	registry *Registry
	logger   *slog.Logger
}

// NewLoader creates a loader consulting reg before script files.
// A nil reg means no compiled-in scripts.
func NewLoader(reg *Registry, logger *slog.Logger) *Loader {
	if reg == nil {
		reg = NewRegistry()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{registry: reg, logger: logger}
}

// Registered reports whether name has a compiled-in script.
func (l *Loader) Registered(name string) bool {
	_, ok := l.registry.Lookup(name)
	return ok
}

// Load returns the script for the named test case. path is the script file
// found during discovery and may be empty for registered names.
func (l *Loader) Load(name, path string) (Script, error) {
	if fn, ok := l.registry.Lookup(name); ok {
		l.logger.Debug("using registered script", "test", name)
		return fn, nil
	}
	if path == "" {
		return nil, &ScriptError{Name: name, Err: ErrNoScript}
	}

	var (
		s   Script
		err error
	)
	switch ext := filepath.Ext(path); ext {
	case ".cue":
		s, err = LoadCUE(path)
	case ".yaml", ".yml":
		s, err = LoadYAML(path)
	default:
		err = fmt.Errorf("unsupported script extension %q", ext)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %w", ErrNoScript, err)
		}
		return nil, &ScriptError{Name: name, Path: path, Err: err}
	}

	l.logger.Debug("loaded script", "test", name, "path", path)
	return s, nil
}

// Execute runs s against p, converting returned errors and panics into a
// *ScriptError.
func Execute(ctx context.Context, name, path string, s Script, p Program) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ScriptError{Name: name, Path: path, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if execErr := s.Execute(ctx, p); execErr != nil {
		return &ScriptError{Name: name, Path: path, Err: execErr}
	}
	return nil
}
