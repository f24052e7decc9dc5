package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cconform/internal/script"
	"github.com/roach88/cconform/internal/testutil"
	"github.com/roach88/cconform/internal/verdict"
)

const argcScript = `
runs:
  - args: []
    expect:
      exit_code: 0
  - args: [a]
    expect:
      exit_code: 1
`

// writeSuite writes test sources with the argc script.
func writeSuite(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		testutil.WriteFile(t, dir, name+".c", "int main(int argc, char **argv) { return argc - 1; }\n")
		testutil.WriteFile(t, dir, name+".yaml", argcScript)
	}
	return dir
}

func TestRun_MissingCompiler(t *testing.T) {
	_, _, err := executeCommand(t, nil, "run", "--env-file", "")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "missing compiler path")
}

func TestRun_BadCompilerPath(t *testing.T) {
	dir := writeSuite(t, "argc")

	for _, compiler := range []string{"   ", filepath.Join(t.TempDir(), "no-such-cc")} {
		_, _, err := executeCommand(t, nil, "run", compiler, "--dir", dir, "--env-file", "")
		require.Error(t, err, compiler)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "bad compiler path")
	}
}

func TestRun_InvalidJobs(t *testing.T) {
	cc := testutil.FakeCompiler(t, testutil.CompilerOptions{Artifact: testutil.ArgcArtifact})
	dir := writeSuite(t, "argc")

	_, _, err := executeCommand(t, nil, "run", cc, "--dir", dir, "--jobs", "0", "--env-file", "")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_AllPass(t *testing.T) {
	cc := testutil.FakeCompiler(t, testutil.CompilerOptions{Artifact: testutil.ArgcArtifact})
	dir := writeSuite(t, "a", "b")

	out, _, err := executeCommand(t, nil, "run", cc, "--dir", dir, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Summary: 2 tests, 0 failed, 0 errored, 0 warned, 2 clean")
	assert.Contains(t, out, "clean   (2): a b")
	assert.Contains(t, out, "✓ No failures")
}

func TestRun_OffByOneFails(t *testing.T) {
	cc := testutil.FakeCompiler(t, testutil.CompilerOptions{Artifact: testutil.OffByOneArtifact})
	dir := writeSuite(t, "argc")

	out, _, err := executeCommand(t, nil, "run", cc, "--dir", dir, "--env-file", "")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 test(s) failed, 0 errored")
	assert.Contains(t, out, "--- FAIL argc")
	assert.Contains(t, out, "Expected EQ")
	assert.Contains(t, out, "✗ 1 failed, 0 errored")
}

func TestRun_WarningsDoNotFail(t *testing.T) {
	cc := testutil.FakeCompiler(t, testutil.CompilerOptions{
		Artifact: testutil.ArgcArtifact,
		Output:   "argc.c:1: warning: unused parameter 'argv'\n",
	})
	dir := writeSuite(t, "argc")

	out, _, err := executeCommand(t, nil, "run", cc, "--dir", dir, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "--- WARN argc")
	assert.Contains(t, out, "  argc.c:1: warning: unused parameter 'argv'")
}

func TestRun_NameFilter(t *testing.T) {
	cc := testutil.FakeCompiler(t, testutil.CompilerOptions{Artifact: testutil.ArgcArtifact})
	dir := writeSuite(t, "a", "b", "c")

	out, _, err := executeCommand(t, nil, "run", cc, "a c", "--dir", dir, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Summary: 2 tests")
	assert.Contains(t, out, "clean   (2): a c")
}

func TestRun_JSONOutput(t *testing.T) {
	cc := testutil.FakeCompiler(t, testutil.CompilerOptions{Artifact: testutil.OffByOneArtifact})
	dir := writeSuite(t, "argc")

	out, _, err := executeCommand(t, nil, "--format", "json", "run", cc, "--dir", dir, "--env-file", "")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
		Error  *CLIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeTestFailed, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Summary.Failed)
	require.Len(t, resp.Data.Programs, 1)
	assert.Equal(t, "argc", resp.Data.Programs[0].Name)
	assert.NotEmpty(t, resp.Data.ID)
}

func TestRun_RegisteredScript(t *testing.T) {
	cc := testutil.FakeCompiler(t, testutil.CompilerOptions{Artifact: testutil.ArgcArtifact})
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "builtin.c", "int main(void) { return 0; }\n")
	testutil.WriteFile(t, dir, "orphan.c", "int main(void) { return 0; }\n")

	reg := script.NewRegistry()
	reg.Register("builtin", func(ctx context.Context, p script.Program) error {
		p.Run(ctx, verdict.ExitCode(0))
		p.Run(ctx, verdict.ExitCode(2), "x", "y")
		return nil
	})

	out, _, err := executeCommand(t, reg, "run", cc, "--dir", dir, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Summary: 1 tests")
	assert.Contains(t, out, "clean   (1): builtin")
}

func TestRun_DirFromEnvironment(t *testing.T) {
	cc := testutil.FakeCompiler(t, testutil.CompilerOptions{Artifact: testutil.ArgcArtifact})
	dir := writeSuite(t, "argc")
	t.Setenv("CCONFORM_DIR", dir)

	out, _, err := executeCommand(t, nil, "run", cc, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "clean   (1): argc")
}

func TestRun_DirFromEnvFile(t *testing.T) {
	cc := testutil.FakeCompiler(t, testutil.CompilerOptions{Artifact: testutil.ArgcArtifact})
	dir := writeSuite(t, "argc")
	envFile := filepath.Join(t.TempDir(), "cconform.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CCONFORM_DIR="+dir+"\n"), 0o644))

	out, _, err := executeCommand(t, nil, "run", cc, "--env-file", envFile)
	require.NoError(t, err)
	assert.Contains(t, out, "clean   (1): argc")
}

func TestRun_ParallelJobs(t *testing.T) {
	cc := testutil.FakeCompiler(t, testutil.CompilerOptions{Artifact: testutil.ArgcArtifact})
	dir := writeSuite(t, "a", "b", "c", "d")

	out, _, err := executeCommand(t, nil, "run", cc, "--dir", dir, "-j", "3", "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "clean   (4): a b c d")
}

func TestRun_RecordsToDatabase(t *testing.T) {
	cc := testutil.FakeCompiler(t, testutil.CompilerOptions{Artifact: testutil.OffByOneArtifact})
	dir := writeSuite(t, "argc")
	db := filepath.Join(t.TempDir(), "runs.db")

	_, _, err := executeCommand(t, nil, "run", cc, "--dir", dir, "--db", db, "--env-file", "")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, _, err := executeCommand(t, nil, "history", "--db", db, "--env-file", "")
	require.NoError(t, err)
	assert.Contains(t, out, "1 tests: 1 failed, 0 errored, 0 warned, 0 clean")
	assert.Contains(t, out, cc)
}

func TestSplitNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitNames([]string{"a b", " c "}))
	assert.Nil(t, splitNames(nil))
	assert.Nil(t, splitNames([]string{"  "}))
}
