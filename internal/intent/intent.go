// Package intent defines the structured analytics intent and the contract
// with the external text-generation service that produces it. The package
// extracts a strict JSON intent from free-form model output; it never
// touches data.
package intent

import (
	"encoding/json"
	"fmt"
)

// Question types form a closed set declared in the schema registry.
const (
	TypeAggregation = "aggregation"
	TypeComparison  = "comparison"
	TypeRanking     = "ranking"
	TypeTrend       = "trend"
	TypeSummary     = "summary"
)

// TimeRange describes the temporal focus of a question.
type TimeRange struct {
	Type       string `json:"type,omitempty"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
	Period     string `json:"period,omitempty"`
	Comparison string `json:"comparison,omitempty"`
}

// IsZero reports whether the time range carries no information.
func (tr *TimeRange) IsZero() bool {
	return tr == nil || (tr.Type == "" && tr.Start == "" && tr.End == "" && tr.Period == "" && tr.Comparison == "")
}

// FilterValue is a scalar or list filter operand. Scalars render as
// equality predicates, lists as IN predicates.
type FilterValue struct {
	Values []any
	List   bool
}

// Scalar builds a single-valued filter.
func Scalar(v any) FilterValue {
	return FilterValue{Values: []any{v}}
}

// In builds a list-valued filter.
func In(vs ...any) FilterValue {
	return FilterValue{Values: vs, List: true}
}

// UnmarshalJSON accepts either a JSON scalar or a JSON array.
func (f *FilterValue) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case []any:
		f.Values = v
		f.List = true
	default:
		f.Values = []any{v}
		f.List = false
	}
	return nil
}

// MarshalJSON mirrors UnmarshalJSON.
func (f FilterValue) MarshalJSON() ([]byte, error) {
	if f.List {
		return json.Marshal(f.Values)
	}
	if len(f.Values) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(f.Values[0])
}

// Intent is the structured representation of a business question. It is
// produced by the external extraction service, optionally enriched by
// context memory, annotated by the router, and read-only thereafter.
type Intent struct {
	QuestionType string                 `json:"question_type"`
	Question     string                 `json:"business_question"`
	Tables       []string               `json:"target_tables"`
	Metrics      []string               `json:"metrics"`
	Dimensions   []string               `json:"dimensions"`
	Filters      map[string]FilterValue `json:"filters"`
	TimeRange    *TimeRange             `json:"time_range"`
	Grain        string                 `json:"grain"`
	Expected     string                 `json:"expected_output"`
	Ambiguities  []string               `json:"ambiguities"`
	Confidence   float64                `json:"confidence"`
	OutOfScope   bool                   `json:"out_of_scope"`
}

// Clone returns a deep copy. Memory and the orchestrator hand copies
// around so no stage can mutate another stage's view.
func (in *Intent) Clone() *Intent {
	if in == nil {
		return nil
	}
	out := *in
	out.Tables = append([]string(nil), in.Tables...)
	out.Metrics = append([]string(nil), in.Metrics...)
	out.Dimensions = append([]string(nil), in.Dimensions...)
	out.Ambiguities = append([]string(nil), in.Ambiguities...)
	if in.Filters != nil {
		out.Filters = make(map[string]FilterValue, len(in.Filters))
		for k, v := range in.Filters {
			out.Filters[k] = FilterValue{Values: append([]any(nil), v.Values...), List: v.List}
		}
	}
	if in.TimeRange != nil {
		tr := *in.TimeRange
		out.TimeRange = &tr
	}
	return &out
}

// WantsComparison reports whether a period-over-period comparison was
// requested.
func (in *Intent) WantsComparison() bool {
	return in.TimeRange != nil && in.TimeRange.Comparison != ""
}

// MalformedIntentError signals that the text-generation service violated
// the extraction contract: no JSON object in its output, or an object that
// does not parse.
type MalformedIntentError struct {
	Reason string
	Err    error
}

func (e *MalformedIntentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed intent: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed intent: %s", e.Reason)
}

func (e *MalformedIntentError) Unwrap() error { return e.Err }
