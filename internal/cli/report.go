package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/cconform/internal/harness"
)

var detailLabels = map[harness.Category]string{
	harness.CategoryFailed:  "FAIL",
	harness.CategoryErrored: "ERROR",
	harness.CategoryWarned:  "WARN",
}

// writeTextReport prints the per-category summary, then full diagnostics
// for every failed, errored and warned program.
func writeTextReport(w io.Writer, r *harness.Report) error {
	s := r.Summary()

	fmt.Fprintf(w, "Run %s finished in %s\n", r.ID, r.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Summary: %d tests, %d failed, %d errored, %d warned, %d clean\n",
		s.Total, s.Failed, s.Errored, s.Warned, s.Clean)
	for _, c := range harness.Categories {
		programs := r.ByCategory(c)
		if len(programs) == 0 {
			fmt.Fprintf(w, "  %-7s (0)\n", c)
			continue
		}
		names := make([]string, len(programs))
		for i, p := range programs {
			names[i] = p.Name
		}
		fmt.Fprintf(w, "  %-7s (%d): %s\n", c, len(programs), strings.Join(names, " "))
	}

	for _, c := range []harness.Category{harness.CategoryFailed, harness.CategoryErrored, harness.CategoryWarned} {
		for _, p := range r.ByCategory(c) {
			fmt.Fprintf(w, "\n--- %s %s\n", detailLabels[c], p.Name)
			if out := strings.TrimRight(p.CompileOutput, "\n"); out != "" {
				fmt.Fprintln(w, "compiler output:")
				writeIndented(w, out)
			}
			if len(p.Errors) > 0 {
				fmt.Fprintln(w, "errors:")
				for _, msg := range p.Errors {
					writeIndented(w, msg)
				}
			}
			if p.ScriptErr != nil {
				fmt.Fprintln(w, "script error:")
				writeIndented(w, p.ScriptErr.Error())
			}
		}
	}

	fmt.Fprintln(w)
	if r.OK() {
		fmt.Fprintln(w, "✓ No failures")
	} else {
		fmt.Fprintf(w, "✗ %d failed, %d errored\n", s.Failed, s.Errored)
	}
	return nil
}

func writeIndented(w io.Writer, text string) {
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
