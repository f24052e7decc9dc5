// Package verdict records assertion outcomes for a single run of a compiled
// test program.
//
// A Validator is created fresh for every run. The check supplied by the
// validation script drives it and returns its Verdict; the owning program
// folds that returned value, merged with the Validator's own record, into
// its record.
package verdict

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cconform/internal/proc"
)

// Check inspects the result of one run. Implementations drive v and
// return v.Verdict().
type Check func(res *proc.Result, v *Validator) Verdict

// Outcome is a single evaluated expectation.
type Outcome struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// Verdict is the structured result of one check.
type Verdict struct {
	Outcomes []Outcome `json:"outcomes"`
	Failed   bool      `json:"failed"`
}

// Errors returns the messages of failed outcomes in order.
func (v Verdict) Errors() []string {
	var errs []string
	for _, o := range v.Outcomes {
		if !o.Passed {
			errs = append(errs, o.Message)
		}
	}
	return errs
}

// ErrorMessage joins the failed outcome messages.
func (v Verdict) ErrorMessage() string {
	return strings.Join(v.Errors(), "\n")
}

// Merge combines the Verdict a check returned with the record of the
// Validator it was given. Outcomes present in both are kept once, so a
// check returning v.Verdict() merges to itself; failures the returned
// value left out are appended.
func Merge(returned, recorded Verdict) Verdict {
	seen := make(map[Outcome]int, len(returned.Outcomes))
	for _, o := range returned.Outcomes {
		seen[o]++
	}

	out := Verdict{
		Outcomes: append([]Outcome(nil), returned.Outcomes...),
		Failed:   returned.Failed || recorded.Failed,
	}
	for _, o := range recorded.Outcomes {
		if seen[o] > 0 {
			seen[o]--
			continue
		}
		out.Outcomes = append(out.Outcomes, o)
	}
	return out
}

// Validator accumulates outcomes for one run.
type Validator struct {
	logger   *slog.Logger
	outcomes []Outcome
	failed   bool
}

// New creates a Validator. A nil logger discards output.
func New(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Validator{logger: logger}
}

// Failed reports whether any expectation has failed so far.
func (v *Validator) Failed() bool {
	return v.failed
}

// Verdict returns a snapshot of the outcomes recorded so far.
func (v *Validator) Verdict() Verdict {
	outcomes := make([]Outcome, len(v.outcomes))
	copy(outcomes, v.outcomes)
	return Verdict{Outcomes: outcomes, Failed: v.failed}
}

// Fail records a failure with the given message.
func (v *Validator) Fail(msg string) {
	v.failed = true
	v.outcomes = append(v.outcomes, Outcome{Passed: false, Message: msg})
	v.logger.Error("expectation failed", "message", msg)
}

// Failf is Fail with formatting.
func (v *Validator) Failf(format string, args ...any) {
	v.Fail(fmt.Sprintf(format, args...))
}

func (v *Validator) pass(msg string) {
	v.outcomes = append(v.outcomes, Outcome{Passed: true, Message: msg})
	v.logger.Info("expectation passed", "message", msg)
}

// Expect records cond as an outcome described by msg.
func (v *Validator) Expect(cond bool, msg string) bool {
	if cond {
		v.pass(msg)
	} else {
		v.Fail(msg)
	}
	return cond
}

// ExpectEqual checks that actual and expected are equal. Numbers compare by
// value, so 255 (int) and 255 (int64) match; a mismatch still names both
// types, since a representation mismatch can itself be the bug under test.
func (v *Validator) ExpectEqual(actual, expected any) bool {
	if equal(actual, expected) {
		v.pass(fmt.Sprintf("%v (%T) == %v (%T)", actual, actual, expected, expected))
		return true
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "Expected EQ\n\t%v (%T)\n\t%v (%T)", actual, actual, expected, expected)
	if actual != nil && expected != nil && reflect.TypeOf(actual) != reflect.TypeOf(expected) {
		fmt.Fprintf(&buf, "\n\toperand types differ: %T vs %T", actual, expected)
	}
	v.Fail(buf.String())
	return false
}

func equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case isInt(ra) && isInt(rb):
		return ra.Int() == rb.Int()
	case isUint(ra) && isUint(rb):
		return ra.Uint() == rb.Uint()
	case isInt(ra) && isUint(rb):
		return ra.Int() >= 0 && uint64(ra.Int()) == rb.Uint()
	case isUint(ra) && isInt(rb):
		return rb.Int() >= 0 && uint64(rb.Int()) == ra.Uint()
	case isNumber(ra) && isNumber(rb) && (isFloat(ra) || isFloat(rb)):
		return toFloat(ra) == toFloat(rb)
	}
	return false
}

func isInt(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isFloat(v reflect.Value) bool {
	return v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64
}

func isNumber(v reflect.Value) bool {
	return isInt(v) || isUint(v) || isFloat(v)
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isInt(v):
		return float64(v.Int())
	case isUint(v):
		return float64(v.Uint())
	}
	return v.Float()
}

// ExpectInRange checks lo <= actual <= hi.
func (v *Validator) ExpectInRange(actual, lo, hi int) bool {
	if actual >= lo && actual <= hi {
		v.pass(fmt.Sprintf("%d in [%d, %d]", actual, lo, hi))
		return true
	}
	v.Failf("Expected IN RANGE\n\t%d\n\t[%d, %d]", actual, lo, hi)
	return false
}

// ExpectOneOf checks that actual is a member of allowed.
func (v *Validator) ExpectOneOf(actual int, allowed ...int) bool {
	for _, a := range allowed {
		if a == actual {
			v.pass(fmt.Sprintf("%d in %v", actual, allowed))
			return true
		}
	}
	v.Failf("Expected ONE OF\n\t%d\n\t%v", actual, allowed)
	return false
}

// ExpectOutput compares program output after NFC normalization, so a
// precomposed and a decomposed accent compare equal.
func (v *Validator) ExpectOutput(actual, expected string) bool {
	if norm.NFC.String(actual) == norm.NFC.String(expected) {
		v.pass(fmt.Sprintf("output == %q", expected))
		return true
	}
	v.Failf("Expected OUTPUT\n\t%q\n\t%q", actual, expected)
	return false
}

// ExpectContains checks that output contains substr (NFC-normalized).
func (v *Validator) ExpectContains(actual, substr string) bool {
	if strings.Contains(norm.NFC.String(actual), norm.NFC.String(substr)) {
		v.pass(fmt.Sprintf("output contains %q", substr))
		return true
	}
	v.Failf("Expected CONTAINS\n\t%q\n\t%q", actual, substr)
	return false
}

// ExitCode returns a Check asserting the run exited with want.
func ExitCode(want int) Check {
	return func(res *proc.Result, v *Validator) Verdict {
		v.ExpectEqual(res.ExitCode, want)
		return v.Verdict()
	}
}
