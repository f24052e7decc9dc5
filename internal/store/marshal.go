package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/cconform/internal/harness"
)

// timeLayout stores instants as sortable UTC text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// marshalCompiler converts the compiler invocation to canonical JSON TEXT.
func marshalCompiler(argv []string) (string, error) {
	if argv == nil {
		argv = []string{}
	}
	data, err := harness.MarshalCanonical(argv)
	if err != nil {
		return "", fmt.Errorf("marshal compiler: %w", err)
	}
	return string(data), nil
}

func unmarshalCompiler(s string) ([]string, error) {
	var argv []string
	if err := json.Unmarshal([]byte(s), &argv); err != nil {
		return nil, fmt.Errorf("unmarshal compiler: %w", err)
	}
	return argv, nil
}

// marshalProgram converts a Program to canonical JSON TEXT. No root is
// trimmed, so failure messages keep the artifact paths of the run.
func marshalProgram(p *harness.Program) (string, error) {
	data, err := harness.MarshalCanonical(harness.SnapshotProgram(p, ""))
	if err != nil {
		return "", fmt.Errorf("marshal program %s: %w", p.Name, err)
	}
	return string(data), nil
}

func unmarshalProgram(s string) (harness.ProgramSnapshot, error) {
	var snap harness.ProgramSnapshot
	if err := json.Unmarshal([]byte(s), &snap); err != nil {
		return harness.ProgramSnapshot{}, fmt.Errorf("unmarshal program: %w", err)
	}
	return snap, nil
}
