// Package schema provides the static schema registry consumed by every
// other component: tables and their columns, the closed metric whitelist,
// declarative join rules, and business safety limits. The registry is
// loaded once at process start and is immutable thereafter.
package schema

import (
	"fmt"
	"strings"
)

// ColumnType tags a column with its analytical type.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumeric ColumnType = "numeric"
	TypeDate    ColumnType = "date"
	TypeBool    ColumnType = "bool"
)

// Table describes one warehouse table.
type Table struct {
	Name    string
	Columns map[string]ColumnType
}

// IsDimension reports whether the table is a dimension table by naming
// convention (dim_ prefix).
func (t Table) IsDimension() bool {
	return strings.HasPrefix(t.Name, "dim_")
}

// IsFact reports whether the table is a fact table by naming convention
// (fact_ prefix).
func (t Table) IsFact() bool {
	return strings.HasPrefix(t.Name, "fact_")
}

// HasColumn reports whether the table declares the given column.
func (t Table) HasColumn(name string) bool {
	_, ok := t.Columns[name]
	return ok
}

// Metric is one entry in the closed aggregation whitelist. Only the fixed
// Expression/Alias pair may ever appear in a generated query; a metric
// identifier outside this set must never reach the query text.
type Metric struct {
	Expression string // e.g. "SUM(revenue)"
	Alias      string // e.g. "total_revenue"
}

// SelectExpr renders the metric as a SELECT list item.
func (m Metric) SelectExpr() string {
	return m.Expression + " AS " + m.Alias
}

// JoinRule declares that two tables, when both resolved for a query, are
// combined with the given join over the given keys. The rule set is
// table-pair-specific; pairs without a declared rule are never auto-joined.
type JoinRule struct {
	Left  string
	Right string
	Type  string // "left", "inner"
	Keys  []string
}

// SanityLimits bounds result values during post-execution validation.
type SanityLimits struct {
	RevenueGrowthMin    float64
	RevenueGrowthMax    float64
	CancellationRateMax float64
}

// BusinessRules holds safety limits and sanity bounds enforced by the
// router and the guardrails.
type BusinessRules struct {
	MaxGroupByColumns int
	MaxRowsReturned   int
	Sanity            SanityLimits

	// ExecutiveSummary is free-form guidance injected into the insight
	// prompt. The core never interprets it.
	ExecutiveSummary []string
}

// Registry is the read-only schema model. Construct with Load or Default
// and share one instance across all components.
type Registry struct {
	tables        map[string]Table
	tableOrder    []string
	metrics       map[string]Metric
	metricOrder   []string
	questionTypes map[string]struct{}
	qtOrder       []string
	joins         []JoinRule
	primaryFact   string
	rules         BusinessRules
}

// Table returns the named table.
func (r *Registry) Table(name string) (Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// HasTable reports whether the registry declares the named table.
func (r *Registry) HasTable(name string) bool {
	_, ok := r.tables[name]
	return ok
}

// Tables returns all tables in declaration order.
func (r *Registry) Tables() []Table {
	out := make([]Table, 0, len(r.tableOrder))
	for _, name := range r.tableOrder {
		out = append(out, r.tables[name])
	}
	return out
}

// TableNames returns all table names in declaration order.
func (r *Registry) TableNames() []string {
	return append([]string(nil), r.tableOrder...)
}

// Metric returns the whitelisted aggregation for the given metric
// identifier.
func (r *Registry) Metric(name string) (Metric, bool) {
	m, ok := r.metrics[name]
	return m, ok
}

// MetricNames returns all whitelisted metric identifiers in declaration
// order.
func (r *Registry) MetricNames() []string {
	return append([]string(nil), r.metricOrder...)
}

// MetricAlias returns the output column name for a metric identifier, or
// the identifier itself when it is not whitelisted.
func (r *Registry) MetricAlias(name string) string {
	if m, ok := r.metrics[name]; ok {
		return m.Alias
	}
	return name
}

// IsQuestionType reports whether qt is one of the supported question types.
func (r *Registry) IsQuestionType(qt string) bool {
	_, ok := r.questionTypes[qt]
	return ok
}

// QuestionTypes returns the closed set of supported question types.
func (r *Registry) QuestionTypes() []string {
	return append([]string(nil), r.qtOrder...)
}

// JoinRules returns the declared join rules.
func (r *Registry) JoinRules() []JoinRule {
	return append([]JoinRule(nil), r.joins...)
}

// PrimaryFactTable is the driving table used when an intent names no
// tables.
func (r *Registry) PrimaryFactTable() string {
	return r.primaryFact
}

// Rules returns the business rules document.
func (r *Registry) Rules() BusinessRules {
	return r.rules
}

// ResolveColumn locates the table that declares the given column among the
// candidate tables, scanning dimension tables before fact tables and, within
// each group, in registry declaration order. It returns the qualified
// "table.column" reference.
func (r *Registry) ResolveColumn(column string, candidates []string) (string, bool) {
	want := make(map[string]struct{}, len(candidates))
	for _, name := range candidates {
		want[name] = struct{}{}
	}

	scan := func(dimension bool) (string, bool) {
		for _, name := range r.tableOrder {
			if _, ok := want[name]; !ok {
				continue
			}
			t := r.tables[name]
			if t.IsDimension() != dimension {
				continue
			}
			if t.HasColumn(column) {
				return t.Name + "." + column, true
			}
		}
		return "", false
	}

	if ref, ok := scan(true); ok {
		return ref, true
	}
	return scan(false)
}

// validate checks internal consistency after loading.
func (r *Registry) validate() error {
	if len(r.tables) == 0 {
		return fmt.Errorf("registry declares no tables")
	}
	if r.primaryFact == "" {
		return fmt.Errorf("registry declares no primary fact table")
	}
	if !r.HasTable(r.primaryFact) {
		return fmt.Errorf("primary fact table %q is not declared", r.primaryFact)
	}
	for name, m := range r.metrics {
		if m.Expression == "" || m.Alias == "" {
			return fmt.Errorf("metric %q is missing expression or alias", name)
		}
	}
	for _, j := range r.joins {
		if !r.HasTable(j.Left) || !r.HasTable(j.Right) {
			return fmt.Errorf("join rule %s->%s references an undeclared table", j.Left, j.Right)
		}
		if len(j.Keys) == 0 {
			return fmt.Errorf("join rule %s->%s declares no keys", j.Left, j.Right)
		}
	}
	return nil
}
