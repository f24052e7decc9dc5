package harness

import (
	"strings"
	"time"
)

// Category is the report bucket of a Program.
type Category string

// Categories in precedence order: a Program lands in the first one whose
// condition holds.
const (
	CategoryFailed  Category = "failed"
	CategoryErrored Category = "errored"
	CategoryWarned  Category = "warned"
	CategoryClean   Category = "clean"
)

// Categories lists every category in report order.
var Categories = []Category{CategoryFailed, CategoryErrored, CategoryWarned, CategoryClean}

// Classify places p in exactly one category.
//
//   - failed: compile failure, timeout or assertion failure
//   - errored: the validation script could not render a verdict
//   - warned: compiled, no failures, but the compiler printed something
//   - clean: everything else
func Classify(p *Program) Category {
	switch {
	case p.Failed:
		return CategoryFailed
	case p.ScriptErr != nil:
		return CategoryErrored
	case p.HasExecutable && strings.TrimSpace(p.CompileOutput) != "":
		return CategoryWarned
	default:
		return CategoryClean
	}
}

// Report aggregates every Program of one suite run.
type Report struct {
	ID         string
	Compiler   []string
	StartedAt  time.Time
	FinishedAt time.Time
	Programs   []*Program
}

// Summary holds per-category counts.
type Summary struct {
	Total   int `json:"total"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Warned  int `json:"warned"`
	Clean   int `json:"clean"`
}

// Summary counts programs per category.
func (r *Report) Summary() Summary {
	s := Summary{Total: len(r.Programs)}
	for _, p := range r.Programs {
		switch Classify(p) {
		case CategoryFailed:
			s.Failed++
		case CategoryErrored:
			s.Errored++
		case CategoryWarned:
			s.Warned++
		default:
			s.Clean++
		}
	}
	return s
}

// ByCategory returns the programs in category c, in report order.
func (r *Report) ByCategory(c Category) []*Program {
	var out []*Program
	for _, p := range r.Programs {
		if Classify(p) == c {
			out = append(out, p)
		}
	}
	return out
}

// OK reports whether no program failed or errored.
func (r *Report) OK() bool {
	s := r.Summary()
	return s.Failed == 0 && s.Errored == 0
}

// Duration is the wall time of the suite.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
