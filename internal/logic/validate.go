package logic

import (
	"fmt"
	"math"
)

// Problem describes one invalid condition found by Validate.
type Problem struct {
	// Index is the condition's position in the list.
	Index int
	// Reason is a human-readable description of what is wrong.
	Reason string
}

func (p Problem) String() string {
	return fmt.Sprintf("condition %d: %s", p.Index, p.Reason)
}

// Validate checks a condition list at save/enable time and returns every
// problem found, one per offending condition aspect. knownIDs is the set of
// currently-known channel ids; a condition referencing a since-removed
// channel is flagged but still evaluates to false at runtime rather than
// erroring.
func Validate(conds []Condition, knownIDs []string) []Problem {
	known := make(map[string]bool, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = true
	}

	var problems []Problem
	for i, c := range conds {
		if len(c.Sensors) == 0 {
			problems = append(problems, Problem{i, "no sensors listed"})
		}
		for _, id := range c.Sensors {
			if !known[id] {
				problems = append(problems, Problem{i, fmt.Sprintf("unknown sensor id %q", id)})
			}
		}
		switch c.Op {
		case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual:
		default:
			problems = append(problems, Problem{i, fmt.Sprintf("unknown operator %q", string(c.Op))})
		}
		if math.IsNaN(c.Threshold) || math.IsInf(c.Threshold, 0) {
			problems = append(problems, Problem{i, "threshold is not a finite number"})
		}
		if i == 0 && c.Logic != CombineNone {
			problems = append(problems, Problem{i, fmt.Sprintf("first condition must not carry a combinator (got %q)", string(c.Logic))})
		}
		if i > 0 && c.Logic != CombineAnd && c.Logic != CombineOr {
			problems = append(problems, Problem{i, fmt.Sprintf("missing or unknown combinator %q", string(c.Logic))})
		}
	}
	return problems
}
