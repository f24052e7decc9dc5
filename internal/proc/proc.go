// Package proc runs external processes and captures their outcome.
//
// Every invocation goes through a Runner so the harness can be exercised
// with a fake in tests. The OS implementation runs argv directly (no shell),
// which means each argument reaches the child intact even when it contains
// whitespace.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// NoExitCode is the ExitCode of a process that could not be started.
const NoExitCode = -1

// waitDelay bounds how long Run waits for output pipes after the process
// is killed. Grandchildren holding stdout open would otherwise block forever.
const waitDelay = time.Second

// Result captures the outcome of one process invocation.
type Result struct {
	// ExitCode is the status a POSIX shell would report in $?: 0..255,
	// 128+N for a process terminated by signal N, NoExitCode if the
	// process never started.
	ExitCode int

	// Stdout holds standard output. When the command asked for combined
	// output it also holds standard error.
	Stdout string

	// Stderr holds standard error when output was not combined.
	Stderr string

	Duration time.Duration

	// Signal names the terminating signal, empty for a normal exit.
	Signal string

	// TimedOut is set when the command's timeout expired and the process
	// was killed.
	TimedOut bool

	// Err is set when the process could not be started.
	Err error
}

// Started reports whether the process ran at all.
func (r *Result) Started() bool {
	return r.Err == nil
}

// Command describes a process invocation.
type Command struct {
	Argv []string
	Dir  string

	// Timeout bounds the run. Zero means no limit.
	Timeout time.Duration

	// CombinedOutput routes stderr into Stdout.
	CombinedOutput bool
}

// Runner abstracts process execution.
type Runner interface {
	Run(ctx context.Context, cmd Command) *Result
}

// OSRunner executes commands on the host.
type OSRunner struct{}

// Run executes c.Argv and waits for it to terminate. It never returns nil.
func (OSRunner) Run(ctx context.Context, c Command) *Result {
	res := &Result{ExitCode: NoExitCode}
	if len(c.Argv) == 0 {
		res.Err = fmt.Errorf("empty argv")
		return res
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	// #nosec G204 -- running the compiler and its artifacts is the point.
	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if c.CombinedOutput {
		cmd.Stderr = &stdout
	} else {
		cmd.Stderr = &stderr
	}

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	res.TimedOut = c.Timeout > 0 && timedOut(ctx, err)

	if cmd.ProcessState == nil {
		// Never started: missing binary, permission denied, bad Dir.
		res.Err = fmt.Errorf("start %q: %w", c.Argv[0], err)
		return res
	}

	res.ExitCode, res.Signal = NormalizeExit(cmd.ProcessState)
	return res
}

// timedOut reports whether a run ended because its deadline passed. A
// process that exited on its own just before the deadline did not time out.
func timedOut(ctx context.Context, runErr error) bool {
	return runErr != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)
}
