// Package harness drives compiler conformance tests.
//
// A test case is a source file paired with a validation script of the same
// stem. For every case the harness compiles the source with the compiler
// under test, hands the resulting Program to the script, and records each
// assertion the script makes against the artifact's runtime behaviour.
//
// # Lifecycle
//
// A Program moves through these states:
//
//	created -> compiling -> compiled -> reported
//	                     \-> compile-failed -> reported
//
// Run is refused unless the compile produced an executable. Failures
// accumulate across every Run and are never cleared.
//
// # Classification
//
// After the suite, each Program falls into exactly one category, checked
// in this order:
//
//   - failed: the compile failed, a process timed out, or an assertion failed
//   - errored: the validation script was missing or raised
//   - warned: compiled with no failures, but the compiler printed output
//   - clean: everything else
//
// # Usage
//
//	cases, err := harness.Discover("tests", harness.DiscoverOptions{})
//	if err != nil {
//	    return err
//	}
//	h, err := harness.New(harness.Config{Compiler: []string{"./mycc", "-O2"}})
//	if err != nil {
//	    return err
//	}
//	report, err := h.Run(ctx, cases)
package harness
