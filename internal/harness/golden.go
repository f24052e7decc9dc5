package harness

import (
	"encoding/json"
	"strings"
	"testing"

	jsoncanonicalizer "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/sebdah/goldie/v2"
)

// RootPlaceholder replaces the test directory in snapshots.
const RootPlaceholder = "$ROOT"

// ReportSnapshot is the path-independent view of a Report used for
// golden comparison and persisted records. Timestamps and run IDs are
// left out so identical suites snapshot identically.
type ReportSnapshot struct {
	Summary  Summary           `json:"summary"`
	Programs []ProgramSnapshot `json:"programs"`
}

// ProgramSnapshot is one Program in a ReportSnapshot.
type ProgramSnapshot struct {
	Name          string    `json:"name"`
	Category      Category  `json:"category"`
	HasExecutable bool      `json:"has_executable"`
	CompileOutput string    `json:"compile_output,omitempty"`
	Runs          int       `json:"runs"`
	Failures      []Failure `json:"failures,omitempty"`
	ScriptError   string    `json:"script_error,omitempty"`
}

// SnapshotProgram builds the snapshot of p, replacing root in every
// message with RootPlaceholder. An empty root leaves messages untouched.
func SnapshotProgram(p *Program, root string) ProgramSnapshot {
	s := ProgramSnapshot{
		Name:          p.Name,
		Category:      Classify(p),
		HasExecutable: p.HasExecutable,
		CompileOutput: p.CompileOutput,
		Runs:          p.Runs,
	}
	for _, f := range p.Failures {
		s.Failures = append(s.Failures, Failure{Kind: f.Kind, Message: trimRoot(f.Message, root)})
	}
	if p.ScriptErr != nil {
		s.ScriptError = trimRoot(p.ScriptErr.Error(), root)
	}
	return s
}

// Snapshot builds the snapshot of r. See SnapshotProgram for root.
func (r *Report) Snapshot(root string) ReportSnapshot {
	s := ReportSnapshot{
		Summary:  r.Summary(),
		Programs: make([]ProgramSnapshot, len(r.Programs)),
	}
	for i, p := range r.Programs {
		s.Programs[i] = SnapshotProgram(p, root)
	}
	return s
}

// MarshalCanonical encodes v as RFC 8785 canonical JSON: sorted keys, no
// insignificant whitespace, so equal values always produce equal bytes.
func MarshalCanonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsoncanonicalizer.Transform(raw)
}

// AssertGolden compares the canonical snapshot of report against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, report *Report, root string) {
	t.Helper()

	data, err := MarshalCanonical(report.Snapshot(root))
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

func trimRoot(s, root string) string {
	if root == "" {
		return s
	}
	return strings.ReplaceAll(s, root, RootPlaceholder)
}
