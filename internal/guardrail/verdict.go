// Package guardrail holds the two independent safety checks around query
// execution: static analysis of the built query plan before execution, and
// business-rule sanity analysis of the returned result after it.
package guardrail

// Status is the ordered severity of a validation verdict:
// pass < warn < block.
type Status string

const (
	StatusPass  Status = "pass"
	StatusWarn  Status = "warn"
	StatusBlock Status = "block"
)

func (s Status) rank() int {
	switch s {
	case StatusWarn:
		return 1
	case StatusBlock:
		return 2
	default:
		return 0
	}
}

// Verdict is the outcome of one post-execution validation pass. Issues
// accumulate in check order; Status only ever escalates.
type Verdict struct {
	Status   Status   `json:"status"`
	Issues   []string `json:"issues"`
	RowCount int      `json:"row_count"`
}

// Raise records an issue and escalates the verdict's status to at least
// the given severity. Severity never de-escalates.
func (v *Verdict) Raise(to Status, issue string) {
	v.Issues = append(v.Issues, issue)
	if to.rank() > v.Status.rank() {
		v.Status = to
	}
}

// Blocked reports whether the verdict blocks the traversal.
func (v *Verdict) Blocked() bool {
	return v.Status == StatusBlock
}
