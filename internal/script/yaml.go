package script

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cconform/internal/proc"
	"github.com/roach88/cconform/internal/verdict"
)

// Table is a declarative script: a literal list of runs.
type Table struct {
	// Description explains what the test validates.
	Description string `yaml:"description,omitempty"`

	// Runs are executed in order. Every run executes even after an
	// earlier one failed.
	Runs []RunSpec `yaml:"runs"`
}

// RunSpec is one invocation of the compiled program.
type RunSpec struct {
	// Args are passed positionally, each one intact.
	Args []string `yaml:"args"`

	Expect Expectation `yaml:"expect"`
}

// Expectation lists what a run must produce. Unset fields are not checked.
type Expectation struct {
	ExitCode       *int    `yaml:"exit_code,omitempty"`
	ExitCodeIn     []int   `yaml:"exit_code_in,omitempty"`
	Stdout         *string `yaml:"stdout,omitempty"`
	StdoutContains string  `yaml:"stdout_contains,omitempty"`
}

func (e Expectation) empty() bool {
	return e.ExitCode == nil && len(e.ExitCodeIn) == 0 && e.Stdout == nil && e.StdoutContains == ""
}

// Check returns the verdict.Check applying every set expectation.
func (e Expectation) Check() verdict.Check {
	return func(res *proc.Result, v *verdict.Validator) verdict.Verdict {
		if e.ExitCode != nil {
			v.ExpectEqual(res.ExitCode, *e.ExitCode)
		}
		if len(e.ExitCodeIn) > 0 {
			v.ExpectOneOf(res.ExitCode, e.ExitCodeIn...)
		}
		if e.Stdout != nil {
			v.ExpectOutput(res.Stdout, *e.Stdout)
		}
		if e.StdoutContains != "" {
			v.ExpectContains(res.Stdout, e.StdoutContains)
		}
		return v.Verdict()
	}
}

// Execute runs every RunSpec against p.
func (t *Table) Execute(ctx context.Context, p Program) error {
	for _, run := range t.Runs {
		p.Run(ctx, run.Expect.Check(), run.Args...)
	}
	return nil
}

// LoadYAML reads and parses a YAML validation script.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or has a run without expectations.
func LoadYAML(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML parses a YAML validation script.
func ParseYAML(data []byte) (*Table, error) {
	// Strict field validation catches typos like "exitcode:" vs "exit_code:"
	var table Table
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&table); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateTable(&table); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return &table, nil
}

// validateTable checks that a declarative script validates something.
func validateTable(t *Table) error {
	if len(t.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}
	for i, run := range t.Runs {
		if run.Expect.empty() {
			return fmt.Errorf("runs[%d]: expect requires at least one of exit_code, exit_code_in, stdout, stdout_contains", i)
		}
	}
	return nil
}
