package proc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestWrapStatus(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 1},
		{255, 255},
		{256, 0},
		{257, 1},
		{-1, 255},
		{-256, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, WrapStatus(tt.in), "WrapStatus(%d)", tt.in)
	}
}

func TestOSRunner_ExitCode(t *testing.T) {
	requireShell(t)

	res := OSRunner{}.Run(context.Background(), Command{Argv: []string{writeScript(t, "exit 3")}})
	require.True(t, res.Started())
	assert.Equal(t, 3, res.ExitCode)
	assert.Empty(t, res.Signal)
	assert.False(t, res.TimedOut)
}

func TestOSRunner_Exit255IsNot256OrMinusOne(t *testing.T) {
	requireShell(t)

	res := OSRunner{}.Run(context.Background(), Command{Argv: []string{writeScript(t, "exit 255")}})
	require.NoError(t, res.Err)
	assert.Equal(t, 255, res.ExitCode)
}

func TestOSRunner_Signal(t *testing.T) {
	requireShell(t)

	res := OSRunner{}.Run(context.Background(), Command{Argv: []string{writeScript(t, "kill -9 $$")}})
	require.NoError(t, res.Err)
	assert.Equal(t, 137, res.ExitCode)
	assert.Equal(t, "killed", res.Signal)
}

func TestOSRunner_ArgumentsKeepWhitespace(t *testing.T) {
	requireShell(t)

	script := writeScript(t, `printf '%s|' "$@"; exit $#`)
	res := OSRunner{}.Run(context.Background(), Command{
		Argv: []string{script, "a b", "", "c"},
	})
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "a b||c|", res.Stdout)
}

func TestOSRunner_CombinedOutput(t *testing.T) {
	requireShell(t)

	script := writeScript(t, "echo out; echo err >&2")

	separate := OSRunner{}.Run(context.Background(), Command{Argv: []string{script}})
	assert.Equal(t, "out\n", separate.Stdout)
	assert.Equal(t, "err\n", separate.Stderr)

	combined := OSRunner{}.Run(context.Background(), Command{Argv: []string{script}, CombinedOutput: true})
	assert.Contains(t, combined.Stdout, "out\n")
	assert.Contains(t, combined.Stdout, "err\n")
	assert.Empty(t, combined.Stderr)
}

func TestOSRunner_Timeout(t *testing.T) {
	requireShell(t)

	res := OSRunner{}.Run(context.Background(), Command{
		Argv:    []string{writeScript(t, "exec sleep 5")},
		Timeout: 100 * time.Millisecond,
	})
	assert.True(t, res.TimedOut)
	assert.Less(t, res.Duration, 4*time.Second)
}

func TestTimedOut(t *testing.T) {
	expired, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()
	live := context.Background()
	killed := errors.New("signal: killed")

	assert.True(t, timedOut(expired, killed))
	assert.False(t, timedOut(expired, nil), "clean exit racing the deadline")
	assert.False(t, timedOut(live, killed))
	assert.False(t, timedOut(live, nil))
}

func TestOSRunner_QuickExitIsNotTimeout(t *testing.T) {
	requireShell(t)

	res := OSRunner{}.Run(context.Background(), Command{
		Argv:    []string{writeScript(t, "exit 3")},
		Timeout: 5 * time.Second,
	})
	assert.False(t, res.TimedOut)
	assert.Equal(t, 3, res.ExitCode)
}

func TestOSRunner_NotStarted(t *testing.T) {
	res := OSRunner{}.Run(context.Background(), Command{
		Argv: []string{filepath.Join(t.TempDir(), "missing")},
	})
	require.Error(t, res.Err)
	assert.False(t, res.Started())
	assert.Equal(t, NoExitCode, res.ExitCode)
}

func TestOSRunner_EmptyArgv(t *testing.T) {
	res := OSRunner{}.Run(context.Background(), Command{})
	require.Error(t, res.Err)
	assert.Equal(t, NoExitCode, res.ExitCode)
}

func TestNormalizeExit_Nil(t *testing.T) {
	code, sig := NormalizeExit(nil)
	assert.Equal(t, NoExitCode, code)
	assert.Empty(t, sig)
}
