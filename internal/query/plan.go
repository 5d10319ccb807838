// Package query builds schema-qualified analytical queries from routed
// intents. Construction is two-phase: a structured Plan first, then SQL
// rendering with bound placeholders. The plan is what the pre-execution
// guardrail inspects; filter values never appear in the query text.
package query

import (
	"strings"
)

// SelectItem is one projected expression. For metrics the aggregate fields
// carry the parsed shape of the whitelisted expression so safety checks
// operate on structure rather than on rendered text.
type SelectItem struct {
	Expr      string // full rendered item, e.g. "SUM(revenue) AS total_revenue"
	Alias     string // output column name
	Qualified string // "table.column" for dimensions, empty for metrics

	Aggregate bool
	AggFunc   string // "SUM", "COUNT", ...
	AggColumn string // innermost column the aggregate consumes
}

// JoinClause is one rendered join.
type JoinClause struct {
	Type  string
	Left  string
	Right string
	Keys  []string
}

// Predicate is one WHERE condition. List predicates render as IN, scalars
// as equality; values are always bound, never interpolated.
type Predicate struct {
	Column string
	Values []any
	List   bool
}

// Plan is the structured query representation. Clause order in the
// rendered SQL is fixed: SELECT, FROM+JOIN, WHERE, GROUP BY.
type Plan struct {
	Select  []SelectItem
	From    string
	Joins   []JoinClause
	Where   []Predicate
	GroupBy []string // qualified column references
}

// Columns returns the output column names in projection order.
func (p *Plan) Columns() []string {
	cols := make([]string, 0, len(p.Select))
	for _, item := range p.Select {
		cols = append(cols, item.Alias)
	}
	return cols
}

// SQL renders the plan to a query string with ? placeholders and the
// matching argument slice.
func (p *Plan) SQL() (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	for i, item := range p.Select {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(item.Expr)
	}

	b.WriteString(" FROM ")
	b.WriteString(p.From)

	for _, j := range p.Joins {
		b.WriteString(" ")
		b.WriteString(strings.ToUpper(j.Type))
		b.WriteString(" JOIN ")
		b.WriteString(j.Right)
		b.WriteString(" ON ")
		for i, key := range j.Keys {
			if i > 0 {
				b.WriteString(" AND ")
			}
			b.WriteString(j.Left + "." + key + " = " + j.Right + "." + key)
		}
	}

	if len(p.Where) > 0 {
		b.WriteString(" WHERE ")
		for i, pred := range p.Where {
			if i > 0 {
				b.WriteString(" AND ")
			}
			if pred.List {
				b.WriteString(pred.Column + " IN (" + placeholders(len(pred.Values)) + ")")
			} else {
				b.WriteString(pred.Column + " = ?")
			}
			args = append(args, pred.Values...)
		}
	}

	if len(p.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(p.GroupBy, ", "))
	}

	return b.String(), args
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
