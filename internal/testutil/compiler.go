package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Artifact bodies for FakeCompiler. Each is the body of a /bin/sh script.
const (
	// NoopArtifact exits 0 regardless of arguments.
	NoopArtifact = "exit 0"

	// ArgcArtifact exits with the number of arguments it received.
	ArgcArtifact = "exit $#"

	// OffByOneArtifact miscounts its arguments by one.
	OffByOneArtifact = "exit $(($# + 1))"

	// EchoArtifact prints its arguments one per line.
	EchoArtifact = `for a; do printf '%s\n' "$a"; done`
)

// CompilerOptions configures the behaviour of a FakeCompiler.
type CompilerOptions struct {
	// Artifact is the shell body of the executable the compiler "builds".
	// Defaults to NoopArtifact.
	Artifact string

	// ArtifactName is the file written next to the source. Defaults to a.out.
	ArtifactName string

	// Output is printed by the compiler, as warnings would be.
	Output string

	// ExitCode is the compiler's exit status.
	ExitCode int

	// SkipArtifact exits without writing any artifact.
	SkipArtifact bool

	// SleepSeconds delays the compiler, for timeout tests.
	SleepSeconds int
}

// FakeCompiler writes a shell script standing in for the compiler under
// test and returns its path. It takes the source path as its last argument
// and copies a prebuilt artifact next to it.
func FakeCompiler(t testing.TB, opts CompilerOptions) string {
	t.Helper()
	RequireShell(t)

	dir := t.TempDir()
	body := opts.Artifact
	if body == "" {
		body = NoopArtifact
	}
	name := opts.ArtifactName
	if name == "" {
		name = "a.out"
	}

	template := filepath.Join(dir, "artifact.sh")
	require.NoError(t, os.WriteFile(template, []byte("#!/bin/sh\n"+body+"\n"), 0o755))

	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString("for src; do :; done\n")
	fmt.Fprintf(&sb, "out=\"$(dirname \"$src\")\"/%s\n", shellQuote(name))
	if opts.SleepSeconds > 0 {
		fmt.Fprintf(&sb, "sleep %d\n", opts.SleepSeconds)
	}
	if opts.Output != "" {
		fmt.Fprintf(&sb, "printf '%%s' %s\n", shellQuote(opts.Output))
	}
	if !opts.SkipArtifact {
		fmt.Fprintf(&sb, "cp %s \"$out\" && chmod +x \"$out\"\n", shellQuote(template))
	}
	fmt.Fprintf(&sb, "exit %d\n", opts.ExitCode)

	compiler := filepath.Join(dir, "cc.sh")
	require.NoError(t, os.WriteFile(compiler, []byte(sb.String()), 0o755))
	return compiler
}

// WriteFile writes content to dir/name, creating parent directories.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// RequireShell skips tests that depend on /bin/sh.
func RequireShell(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
