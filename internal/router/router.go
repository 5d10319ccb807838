// Package router turns a structured intent into an executable routing
// plan: validated tables, inferred joins, execution mode, and a complexity
// class. It enforces structural safety limits but generates no SQL.
package router

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/storewise/storewise/internal/intent"
	"github.com/storewise/storewise/internal/schema"
)

// ExecutionMode selects the downstream strategy for a routed intent.
type ExecutionMode string

const (
	ModeQA            ExecutionMode = "qa"
	ModeSummarization ExecutionMode = "summarization"
)

// Complexity classifies a routed intent's expected query cost. Advisory
// metadata only; it never gates execution.
type Complexity string

const (
	ComplexityLight  Complexity = "light"
	ComplexityMedium Complexity = "medium"
	ComplexityHeavy  Complexity = "heavy"
)

// Join is one required join between two resolved tables.
type Join struct {
	Left  string   `json:"left"`
	Right string   `json:"right"`
	Type  string   `json:"type"`
	Keys  []string `json:"keys"`
}

// RoutedIntent is the intent enriched with the routing plan. ResolvedTables
// is never empty; its first element is the driving table.
type RoutedIntent struct {
	intent.Intent

	ResolvedTables []string      `json:"resolved_tables"`
	RequiredJoins  []Join        `json:"required_joins"`
	ExecutionMode  ExecutionMode `json:"execution_mode"`
	Complexity     Complexity    `json:"query_complexity"`
	SafetyStatus   string        `json:"safety_status"`
}

// UnknownTableError reports a requested table absent from the registry.
type UnknownTableError struct {
	Table     string
	Available []string
}

func (e *UnknownTableError) Error() string {
	return fmt.Sprintf("unknown table requested: %s (available: %s)",
		e.Table, strings.Join(e.Available, ", "))
}

// TooManyDimensionsError reports a group-by request beyond the configured
// safety limit.
type TooManyDimensionsError struct {
	Count int
	Max   int
}

func (e *TooManyDimensionsError) Error() string {
	return fmt.Sprintf("too many group by dimensions requested: %d (max allowed: %d)", e.Count, e.Max)
}

// Router validates intents against the schema registry and produces
// routing plans.
type Router struct {
	registry *schema.Registry
	logger   *slog.Logger
}

// New creates a router. A nil logger discards output.
func New(registry *schema.Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{registry: registry, logger: logger}
}

// Route enriches an intent with resolved tables, required joins, execution
// mode, and a complexity class.
func (r *Router) Route(in *intent.Intent) (*RoutedIntent, error) {
	routed := &RoutedIntent{Intent: *in.Clone()}

	// Validate and default the target tables. An intent with no tables
	// falls back to the primary fact table.
	for _, table := range in.Tables {
		if !r.registry.HasTable(table) {
			return nil, &UnknownTableError{Table: table, Available: r.registry.TableNames()}
		}
		routed.ResolvedTables = append(routed.ResolvedTables, table)
	}
	if len(routed.ResolvedTables) == 0 {
		routed.ResolvedTables = []string{r.registry.PrimaryFactTable()}
	}

	routed.RequiredJoins = r.inferJoins(routed.ResolvedTables)

	if in.QuestionType == intent.TypeSummary {
		routed.ExecutionMode = ModeSummarization
	} else {
		routed.ExecutionMode = ModeQA
	}

	routed.Complexity = classify(scoreComplexity(routed))

	maxDims := r.registry.Rules().MaxGroupByColumns
	if maxDims > 0 && len(in.Dimensions) > maxDims {
		return nil, &TooManyDimensionsError{Count: len(in.Dimensions), Max: maxDims}
	}
	routed.SafetyStatus = "pass"

	r.logger.Debug("intent routed",
		"tables", routed.ResolvedTables,
		"joins", len(routed.RequiredJoins),
		"mode", routed.ExecutionMode,
		"complexity", routed.Complexity)

	return routed, nil
}

// inferJoins applies the registry's declarative join rules: a rule fires
// only when both of its tables are resolved. Table pairs without a declared
// rule are never auto-joined.
func (r *Router) inferJoins(resolved []string) []Join {
	present := make(map[string]struct{}, len(resolved))
	for _, t := range resolved {
		present[t] = struct{}{}
	}

	var joins []Join
	for _, rule := range r.registry.JoinRules() {
		if _, ok := present[rule.Left]; !ok {
			continue
		}
		if _, ok := present[rule.Right]; !ok {
			continue
		}
		joins = append(joins, Join{
			Left:  rule.Left,
			Right: rule.Right,
			Type:  rule.Type,
			Keys:  append([]string(nil), rule.Keys...),
		})
	}
	return joins
}

// scoreComplexity estimates query cost: one point per metric and per
// dimension, two per join, and two more when a period-over-period
// comparison is requested.
func scoreComplexity(routed *RoutedIntent) int {
	score := len(routed.Metrics) + len(routed.Dimensions) + 2*len(routed.RequiredJoins)
	if routed.WantsComparison() {
		score += 2
	}
	return score
}

func classify(score int) Complexity {
	switch {
	case score <= 3:
		return ComplexityLight
	case score <= 6:
		return ComplexityMedium
	default:
		return ComplexityHeavy
	}
}
