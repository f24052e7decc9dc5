package harness

// TestCase pairs a source file with its validation script.
// It is immutable once discovered.
type TestCase struct {
	// Name is the source path relative to the scanned directory, without
	// extension, using forward slashes ("argc", "loop/loop_break").
	Name string `json:"name"`

	SourcePath string `json:"source_path"`

	// ScriptPath is empty when the test uses a compiled-in script.
	ScriptPath string `json:"script_path,omitempty"`
}

// FailureKind classifies why a Program failed.
type FailureKind string

// Failure kinds recorded on a Program.
const (
	FailureCompile        FailureKind = "compile"
	FailureCompileTimeout FailureKind = "compile-timeout"
	FailureRun            FailureKind = "run"
	FailureRunTimeout     FailureKind = "run-timeout"
	FailureAssertion      FailureKind = "assertion"
)

// Failure is one recorded failure.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// State is a Program's position in its lifecycle.
type State int

// Program states. Run is only reachable from StateCompiled.
const (
	StateCreated State = iota
	StateCompiling
	StateCompileFailed
	StateCompiled
	StateReported
)

var stateNames = [...]string{
	StateCreated:       "created",
	StateCompiling:     "compiling",
	StateCompileFailed: "compile-failed",
	StateCompiled:      "compiled",
	StateReported:      "reported",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
