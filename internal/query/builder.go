package query

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/storewise/storewise/internal/router"
	"github.com/storewise/storewise/internal/schema"
)

// UnsupportedMetricError reports a metric identifier outside the
// registry's whitelist. Such a metric must never reach the query string.
type UnsupportedMetricError struct {
	Metric string
}

func (e *UnsupportedMetricError) Error() string {
	return fmt.Sprintf("metric %q is not supported or not analytics-safe", e.Metric)
}

// UnresolvedDimensionError reports a dimension column that none of the
// resolved tables declares.
type UnresolvedDimensionError struct {
	Dimension string
}

func (e *UnresolvedDimensionError) Error() string {
	return fmt.Sprintf("unable to resolve dimension column: %s", e.Dimension)
}

// Builder constructs query plans under the strict metric contract: each
// metric expands to the registry's fixed aggregation template verbatim,
// never to freeform SQL.
type Builder struct {
	registry *schema.Registry
	logger   *slog.Logger
}

// NewBuilder creates a builder. A nil logger discards output.
func NewBuilder(registry *schema.Registry, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{registry: registry, logger: logger}
}

// Build turns a routed intent into a query plan. Dimensions resolve to
// fully qualified columns, scanning dimension tables before fact tables in
// registry declaration order; metrics expand from the whitelist only.
func (b *Builder) Build(routed *router.RoutedIntent) (*Plan, error) {
	plan := &Plan{From: routed.ResolvedTables[0]}

	for _, dim := range routed.Dimensions {
		qualified, ok := b.registry.ResolveColumn(dim, routed.ResolvedTables)
		if !ok {
			return nil, &UnresolvedDimensionError{Dimension: dim}
		}
		plan.Select = append(plan.Select, SelectItem{
			Expr:      qualified + " AS " + dim,
			Alias:     dim,
			Qualified: qualified,
		})
		plan.GroupBy = append(plan.GroupBy, qualified)
	}

	for _, metric := range routed.Metrics {
		def, ok := b.registry.Metric(metric)
		if !ok {
			return nil, &UnsupportedMetricError{Metric: metric}
		}
		fn, col := parseAggregate(def.Expression)
		plan.Select = append(plan.Select, SelectItem{
			Expr:      def.SelectExpr(),
			Alias:     def.Alias,
			Aggregate: true,
			AggFunc:   fn,
			AggColumn: col,
		})
	}

	for _, j := range routed.RequiredJoins {
		plan.Joins = append(plan.Joins, JoinClause{
			Type:  j.Type,
			Left:  j.Left,
			Right: j.Right,
			Keys:  append([]string(nil), j.Keys...),
		})
	}

	// Deterministic predicate order regardless of map iteration.
	cols := make([]string, 0, len(routed.Filters))
	for col := range routed.Filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		fv := routed.Filters[col]
		plan.Where = append(plan.Where, Predicate{
			Column: col,
			Values: append([]any(nil), fv.Values...),
			List:   fv.List || len(fv.Values) > 1,
		})
	}

	sql, _ := plan.SQL()
	b.logger.Debug("query built", "sql", sql, "columns", plan.Columns())

	return plan, nil
}

// parseAggregate splits a whitelisted expression like "SUM(revenue)" or
// "COUNT(DISTINCT order_id)" into its function name and innermost column.
// Registry expressions are trusted to have this shape; anything else parses
// as a bare column.
func parseAggregate(expr string) (fn, column string) {
	open := strings.Index(expr, "(")
	close := strings.LastIndex(expr, ")")
	if open == -1 || close == -1 || close < open {
		return "", expr
	}
	fn = strings.ToUpper(strings.TrimSpace(expr[:open]))
	arg := strings.TrimSpace(expr[open+1 : close])
	if fields := strings.Fields(arg); len(fields) > 0 {
		column = fields[len(fields)-1]
	}
	return fn, column
}
