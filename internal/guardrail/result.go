package guardrail

import (
	"fmt"
	"strings"

	"github.com/storewise/storewise/internal/router"
	"github.com/storewise/storewise/internal/schema"
	"github.com/storewise/storewise/internal/warehouse"
)

// ResultChecker validates query results against business and sanity rules.
type ResultChecker struct {
	registry *schema.Registry
}

// NewResultChecker creates a result checker bound to the registry's
// business rules and metric alias mapping.
func NewResultChecker(registry *schema.Registry) *ResultChecker {
	return &ResultChecker{registry: registry}
}

// Check runs the fixed sequence of post-execution checks. Each check may
// raise the verdict's severity but never lower it; an empty result
// short-circuits straight to block.
func (c *ResultChecker) Check(routed *router.RoutedIntent, res *warehouse.Result) *Verdict {
	if res.Empty() {
		return &Verdict{
			Status:   StatusBlock,
			Issues:   []string{"Query returned no data"},
			RowCount: 0,
		}
	}

	v := &Verdict{Status: StatusPass, RowCount: res.RowCount}
	rules := c.registry.Rules()

	if res.NullRatio() > 0.5 {
		v.Raise(StatusWarn, "Result contains more than 50% null values")
	}

	if rules.MaxRowsReturned > 0 && res.RowCount > rules.MaxRowsReturned {
		v.Raise(StatusWarn, fmt.Sprintf("Too many rows returned: %d (limit: %d)", res.RowCount, rules.MaxRowsReturned))
	}

	c.checkSanityBounds(v, res, rules.Sanity)
	c.checkIntentAlignment(v, routed, res)

	if values, ok := res.Column("total_revenue"); ok {
		total := 0.0
		for _, val := range values {
			if f, ok := warehouse.AsFloat(val); ok {
				total += f
			}
		}
		if total <= 0 {
			v.Raise(StatusWarn, "Total revenue is zero or negative")
		}
	}

	c.checkUnknownCategories(v, res)

	return v
}

// checkSanityBounds scans numeric columns for growth and cancellation
// values outside the configured bounds. Out-of-bound growth warns; a
// cancellation rate over the ceiling blocks.
func (c *ResultChecker) checkSanityBounds(v *Verdict, res *warehouse.Result, limits schema.SanityLimits) {
	for _, col := range res.Columns {
		values, _ := res.Column(col)

		var min, max float64
		numeric := false
		for _, val := range values {
			f, ok := warehouse.AsFloat(val)
			if !ok {
				continue
			}
			if !numeric || f < min {
				min = f
			}
			if !numeric || f > max {
				max = f
			}
			numeric = true
		}
		if !numeric {
			continue
		}

		name := strings.ToLower(col)
		if strings.Contains(name, "growth") {
			if min < limits.RevenueGrowthMin || max > limits.RevenueGrowthMax {
				v.Raise(StatusWarn, fmt.Sprintf("Growth values out of sane range in %s", col))
			}
		}
		if strings.Contains(name, "cancellation") {
			if max > limits.CancellationRateMax {
				v.Raise(StatusBlock, "Cancellation rate exceeds 100%")
			}
		}
	}
}

// checkIntentAlignment verifies every requested dimension and metric is
// present in the result. Metrics are checked under their aggregation alias.
func (c *ResultChecker) checkIntentAlignment(v *Verdict, routed *router.RoutedIntent, res *warehouse.Result) {
	for _, dim := range routed.Dimensions {
		if !res.HasColumn(dim) {
			v.Raise(StatusBlock, fmt.Sprintf("Expected dimension missing from result: %s", dim))
		}
	}
	for _, metric := range routed.Metrics {
		alias := c.registry.MetricAlias(metric)
		if !res.HasColumn(alias) {
			v.Raise(StatusBlock, fmt.Sprintf("Expected metric missing from result: %s", alias))
		}
	}
}

// checkUnknownCategories warns when missing/"unknown" categories exceed
// 20% of rows.
func (c *ResultChecker) checkUnknownCategories(v *Verdict, res *warehouse.Result) {
	values, ok := res.Column("category")
	if !ok || len(values) == 0 {
		return
	}

	unknown := 0
	for _, val := range values {
		if val == nil {
			unknown++
			continue
		}
		if s, ok := val.(string); ok && strings.EqualFold(s, "unknown") {
			unknown++
		}
	}

	ratio := float64(unknown) / float64(len(values))
	if ratio > 0.2 {
		v.Raise(StatusWarn, fmt.Sprintf("High proportion of 'unknown' categories detected (%.0f%%)", ratio*100))
	}
}
