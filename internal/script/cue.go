package script

import (
	"context"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cconform/internal/proc"
	"github.com/roach88/cconform/internal/verdict"
)

// cueSchema closes the shape of a CUE script so that typos in field names
// fail at load time.
const cueSchema = `
#Expect: {
	exit_code?:       int
	exit_code_in?:    [...int]
	stdout?:          string
	stdout_contains?: string
}

#Run: {
	args:   *[] | [...string]
	expect: #Expect
}

description?: string
runs: [...#Run]
`

// CUEScript is a validation script written in CUE. Expectations that are
// not concrete numbers or strings are treated as constraints and unified
// with the observed value.
type CUEScript struct {
	Description string

	ctx  *cue.Context
	runs []cueRun
}

type cueRun struct {
	args           []string
	exitCode       cue.Value
	exitCodeIn     []int
	stdout         cue.Value
	stdoutContains cue.Value
}

// LoadCUE reads and evaluates a CUE validation script.
func LoadCUE(path string) (*CUEScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	return ParseCUE(data, path)
}

// ParseCUE evaluates CUE source. filename is used in error positions.
func ParseCUE(data []byte, filename string) (*CUEScript, error) {
	// Each script owns its context; cue.Context is not safe for concurrent use.
	ctx := cuecontext.New()

	schema := ctx.CompileString(cueSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	doc := ctx.CompileBytes(data, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.Unify(doc)
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &CUEScript{ctx: ctx}

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		s.Description = desc
	}

	runsVal := v.LookupPath(cue.ParsePath("runs"))
	iter, err := runsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		run, err := parseCUERun(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("runs[%d]: %w", i, err)
		}
		s.runs = append(s.runs, run)
	}

	if len(s.runs) == 0 {
		return nil, fmt.Errorf("invalid script: runs list is required and must be non-empty")
	}
	return s, nil
}

// parseCUERun extracts one run. Arguments must be concrete; expectations
// may stay symbolic until the observed value is known.
func parseCUERun(v cue.Value) (cueRun, error) {
	var run cueRun

	argsVal, _ := v.LookupPath(cue.ParsePath("args")).Default()
	if err := argsVal.Decode(&run.args); err != nil {
		return run, formatCUEError(err)
	}

	expect := v.LookupPath(cue.ParsePath("expect"))
	run.exitCode = expect.LookupPath(cue.ParsePath("exit_code"))
	run.stdout = expect.LookupPath(cue.ParsePath("stdout"))
	run.stdoutContains = expect.LookupPath(cue.ParsePath("stdout_contains"))

	if in := expect.LookupPath(cue.ParsePath("exit_code_in")); in.Exists() {
		if err := in.Decode(&run.exitCodeIn); err != nil {
			return run, formatCUEError(err)
		}
		if len(run.exitCodeIn) == 0 {
			return run, fmt.Errorf("expect.exit_code_in must list at least one exit code")
		}
	}
	if run.stdoutContains.Exists() {
		if _, err := run.stdoutContains.String(); err != nil {
			return run, formatCUEError(err)
		}
	}

	if !run.exitCode.Exists() && run.exitCodeIn == nil && !run.stdout.Exists() && !run.stdoutContains.Exists() {
		return run, fmt.Errorf("expect requires at least one of exit_code, exit_code_in, stdout, stdout_contains")
	}
	return run, nil
}

// Execute runs every run against p in order.
func (s *CUEScript) Execute(ctx context.Context, p Program) error {
	for _, run := range s.runs {
		p.Run(ctx, s.check(run), run.args...)
	}
	return nil
}

func (s *CUEScript) check(run cueRun) verdict.Check {
	return func(res *proc.Result, v *verdict.Validator) verdict.Verdict {
		if run.exitCode.Exists() {
			if want, err := run.exitCode.Int64(); err == nil {
				v.ExpectEqual(res.ExitCode, int(want))
			} else {
				s.satisfies(v, "exit_code", run.exitCode, res.ExitCode)
			}
		}
		if run.exitCodeIn != nil {
			v.ExpectOneOf(res.ExitCode, run.exitCodeIn...)
		}
		if run.stdout.Exists() {
			if want, err := run.stdout.String(); err == nil {
				v.ExpectOutput(res.Stdout, want)
			} else {
				s.satisfies(v, "stdout", run.stdout, res.Stdout)
			}
		}
		if run.stdoutContains.Exists() {
			sub, _ := run.stdoutContains.String()
			v.ExpectContains(res.Stdout, sub)
		}
		return v.Verdict()
	}
}

// satisfies unifies an observed value with a constraint.
func (s *CUEScript) satisfies(v *verdict.Validator, field string, constraint cue.Value, observed any) {
	u := constraint.Unify(s.ctx.Encode(observed))
	if err := u.Validate(cue.Concrete(true)); err != nil {
		v.Failf("Expected %s to satisfy %v\n\t%v\n\t%v", field, constraint, observed, formatCUEError(err))
		return
	}
	v.Expect(true, fmt.Sprintf("%s %v satisfies %v", field, observed, constraint))
}

// CUEError is a script error with source position.
type CUEError struct {
	Message string
	Pos     token.Pos
}

func (e *CUEError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CUEError{
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
