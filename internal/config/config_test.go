package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cconform/internal/harness"
)

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvDir, EnvArtifact, EnvSourceExt, EnvCompileTimeout, EnvRunTimeout, EnvJobs, EnvDB} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 60*time.Second, cfg.CompileTimeout)
	assert.Equal(t, 10*time.Second, cfg.RunTimeout)
	assert.Equal(t, "a.out", cfg.ArtifactName)
}

func TestDefaults_MatchHarness(t *testing.T) {
	d := Defaults()
	assert.Equal(t, harness.DefaultArtifactName, d.ArtifactName)
	assert.Equal(t, harness.DefaultSourceExt, d.SourceExt)
	assert.Equal(t, harness.DefaultCompileTimeout, d.CompileTimeout)
	assert.Equal(t, harness.DefaultRunTimeout, d.RunTimeout)
}

func TestLoad_NoEnvFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDir, "tests")
	t.Setenv(EnvArtifact, "prog")
	t.Setenv(EnvSourceExt, ".mc")
	t.Setenv(EnvCompileTimeout, "5")
	t.Setenv(EnvRunTimeout, "0")
	t.Setenv(EnvJobs, "8")
	t.Setenv(EnvDB, "runs.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Config{
		Dir:            "tests",
		ArtifactName:   "prog",
		SourceExt:      ".mc",
		CompileTimeout: 5 * time.Second,
		RunTimeout:     0,
		Jobs:           8,
		DBPath:         "runs.db",
	}, cfg)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "CCONFORM_DIR=suite\nCCONFORM_JOBS=3\n# comment\nCCONFORM_DB=history.db\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "suite", cfg.Dir)
	assert.Equal(t, 3, cfg.Jobs)
	assert.Equal(t, "history.db", cfg.DBPath)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "CCONFORM_DIR=from-file\nCCONFORM_JOBS=3\n")
	t.Setenv(EnvDir, "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Dir)
	assert.Equal(t, 3, cfg.Jobs)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr string
	}{
		{EnvJobs, "many", `CCONFORM_JOBS: invalid integer "many"`},
		{EnvJobs, "0", "CCONFORM_JOBS must be at least 1"},
		{EnvCompileTimeout, "1.5", `CCONFORM_COMPILE_TIMEOUT_SEC: invalid integer "1.5"`},
		{EnvRunTimeout, "-3", "CCONFORM_RUN_TIMEOUT_SEC must be non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_UnreadableEnvFile(t *testing.T) {
	clearEnv(t)

	// A directory exists but cannot be read as a file
	_, err := Load(t.TempDir())
	require.Error(t, err)
}
