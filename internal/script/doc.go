// Package script loads and executes per-test validation logic.
//
// A validation script decides what counts as correct for one test case. It
// receives exactly one binding, the live Program handle for that test case,
// and calls Program.Run zero or more times with a check and an argument
// list. Three kinds of script exist:
//
//   - Compiled-in functions registered by test name (Registry).
//   - CUE documents (.cue) whose expectations may be formulas over the
//     run's own arguments or CUE constraints.
//   - YAML documents (.yaml, .yml) with a literal table of runs.
//
// # CUE Format
//
//	description: "argc reaches the exit status"
//	runs: [
//	    {args: [], expect: exit_code: len(args)},
//	    {args: ["a"], expect: exit_code: len(args)},
//	    {args: ["a", "b c"], expect: exit_code: >=1 & <=2},
//	]
//
// Comprehensions work as usual:
//
//	import "list"
//
//	runs: [for n in [0, 1, 2] {
//	    args: [for i in list.Range(0, n, 1) {"x"}]
//	    expect: exit_code: n
//	}]
//
// # YAML Format
//
//	description: "argc reaches the exit status"
//	runs:
//	  - args: []
//	    expect:
//	      exit_code: 0
//	  - args: [a, "b c"]
//	    expect:
//	      exit_code_in: [2]
//	      stdout_contains: "ok"
//
// # Expectations
//
//   - exit_code: exact status (CUE: any number constraint)
//   - exit_code_in: list of accepted statuses
//   - stdout: exact standard output (CUE: any string constraint, e.g. =~"^ok")
//   - stdout_contains: substring of standard output
//
// A script that fails to load, returns an error, or panics is a harness
// error (ScriptError), reported apart from assertion failures.
package script
