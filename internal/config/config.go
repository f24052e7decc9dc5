// Package config resolves cconform defaults from the environment.
//
// Values come from, in increasing priority: built-in defaults, an optional
// .env file, the process environment. Command-line flags override all of
// them; that last step belongs to the cli package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/roach88/cconform/internal/harness"
)

// Environment variables read by Load.
const (
	EnvDir            = "CCONFORM_DIR"
	EnvArtifact       = "CCONFORM_ARTIFACT"
	EnvSourceExt      = "CCONFORM_EXT"
	EnvCompileTimeout = "CCONFORM_COMPILE_TIMEOUT_SEC"
	EnvRunTimeout     = "CCONFORM_RUN_TIMEOUT_SEC"
	EnvJobs           = "CCONFORM_JOBS"
	EnvDB             = "CCONFORM_DB"
)

// DefaultEnvFile is the .env file Load reads when present.
const DefaultEnvFile = ".env"

// Config holds the defaults for cconform's flags.
type Config struct {
	Dir            string
	ArtifactName   string
	SourceExt      string
	CompileTimeout time.Duration
	RunTimeout     time.Duration
	Jobs           int

	// DBPath enables run history when non-empty.
	DBPath string
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Dir:            ".",
		ArtifactName:   harness.DefaultArtifactName,
		SourceExt:      harness.DefaultSourceExt,
		CompileTimeout: harness.DefaultCompileTimeout,
		RunTimeout:     harness.DefaultRunTimeout,
		Jobs:           1,
	}
}

// Load resolves the configuration. envFile may be empty or missing; a file
// that exists but does not parse is an error. Malformed numbers are errors,
// never silently replaced by defaults.
func Load(envFile string) (Config, error) {
	fileVals := map[string]string{}
	if envFile != "" {
		vals, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVals = vals
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVals[key]
		return v, ok
	}

	cfg := Defaults()
	if v, ok := lookup(EnvDir); ok && v != "" {
		cfg.Dir = v
	}
	if v, ok := lookup(EnvArtifact); ok && v != "" {
		cfg.ArtifactName = v
	}
	if v, ok := lookup(EnvSourceExt); ok && v != "" {
		cfg.SourceExt = v
	}
	if v, ok := lookup(EnvDB); ok {
		cfg.DBPath = v
	}

	var err error
	if cfg.CompileTimeout, err = seconds(lookup, EnvCompileTimeout, cfg.CompileTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RunTimeout, err = seconds(lookup, EnvRunTimeout, cfg.RunTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Jobs, err = integer(lookup, EnvJobs, cfg.Jobs); err != nil {
		return Config{}, err
	}
	if cfg.Jobs < 1 {
		return Config{}, fmt.Errorf("%s must be at least 1, got %d", EnvJobs, cfg.Jobs)
	}
	return cfg, nil
}

func integer(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	n, set, err := parse(lookup, key)
	if err != nil || !set {
		return fallback, err
	}
	return n, nil
}

func seconds(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	n, set, err := parse(lookup, key)
	if err != nil || !set {
		return fallback, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must be non-negative, got %d", key, n)
	}
	return time.Duration(n) * time.Second, nil
}

func parse(lookup func(string) (string, bool), key string) (int, bool, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, true, nil
}
