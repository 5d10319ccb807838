package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storewise/storewise/internal/intent"
	"github.com/storewise/storewise/internal/router"
	"github.com/storewise/storewise/internal/schema"
)

func routed(in intent.Intent, tables []string, joins []router.Join) *router.RoutedIntent {
	return &router.RoutedIntent{Intent: in, ResolvedTables: tables, RequiredJoins: joins}
}

func TestBuildRankingQuery(t *testing.T) {
	b := NewBuilder(schema.Default(), nil)

	plan, err := b.Build(routed(intent.Intent{
		Metrics:    []string{"revenue"},
		Dimensions: []string{"category"},
	}, []string{"fact_sales"}, nil))
	require.NoError(t, err)

	sql, args := plan.SQL()
	assert.Equal(t,
		"SELECT fact_sales.category AS category, SUM(revenue) AS total_revenue "+
			"FROM fact_sales GROUP BY fact_sales.category",
		sql)
	assert.Empty(t, args)
	assert.Equal(t, []string{"category", "total_revenue"}, plan.Columns())
}

func TestBuildWithJoin(t *testing.T) {
	b := NewBuilder(schema.Default(), nil)

	plan, err := b.Build(routed(intent.Intent{
		Metrics:    []string{"revenue"},
		Dimensions: []string{"category"},
	}, []string{"fact_sales", "dim_product"}, []router.Join{
		{Left: "fact_sales", Right: "dim_product", Type: "left", Keys: []string{"sku"}},
	}))
	require.NoError(t, err)

	sql, _ := plan.SQL()
	// category resolves to the dimension table once it is joined in.
	assert.Equal(t,
		"SELECT dim_product.category AS category, SUM(revenue) AS total_revenue "+
			"FROM fact_sales LEFT JOIN dim_product ON fact_sales.sku = dim_product.sku "+
			"GROUP BY dim_product.category",
		sql)
}

func TestBuildFilters(t *testing.T) {
	b := NewBuilder(schema.Default(), nil)

	plan, err := b.Build(routed(intent.Intent{
		Metrics: []string{"revenue"},
		Filters: map[string]intent.FilterValue{
			"region":        intent.Scalar("domestic"),
			"sales_channel": intent.In("web", "store"),
		},
	}, []string{"fact_sales"}, nil))
	require.NoError(t, err)

	sql, args := plan.SQL()
	// Predicates render in deterministic (sorted) column order with bound
	// placeholders; values never appear in the text.
	assert.Equal(t,
		"SELECT SUM(revenue) AS total_revenue FROM fact_sales "+
			"WHERE region = ? AND sales_channel IN (?, ?)",
		sql)
	assert.Equal(t, []any{"domestic", "web", "store"}, args)
	assert.NotContains(t, sql, "domestic")
}

func TestBuildUnsupportedMetric(t *testing.T) {
	b := NewBuilder(schema.Default(), nil)

	_, err := b.Build(routed(intent.Intent{
		Metrics: []string{"margin"},
	}, []string{"fact_sales"}, nil))

	var unsupported *UnsupportedMetricError
	require.Error(t, err)
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "margin", unsupported.Metric)
}

func TestBuildUnresolvedDimension(t *testing.T) {
	b := NewBuilder(schema.Default(), nil)

	_, err := b.Build(routed(intent.Intent{
		Metrics:    []string{"revenue"},
		Dimensions: []string{"color"}, // only on dim_product, which is not resolved
	}, []string{"fact_sales"}, nil))

	var unresolved *UnresolvedDimensionError
	require.Error(t, err)
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "color", unresolved.Dimension)
}

func TestBuildMetricUsesWhitelistTemplateVerbatim(t *testing.T) {
	b := NewBuilder(schema.Default(), nil)

	plan, err := b.Build(routed(intent.Intent{
		Metrics: []string{"orders"},
	}, []string{"fact_sales"}, nil))
	require.NoError(t, err)

	sql, _ := plan.SQL()
	assert.Contains(t, sql, "COUNT(DISTINCT order_id) AS total_orders")

	require.Len(t, plan.Select, 1)
	item := plan.Select[0]
	assert.True(t, item.Aggregate)
	assert.Equal(t, "COUNT", item.AggFunc)
	assert.Equal(t, "order_id", item.AggColumn)
}

func TestParseAggregate(t *testing.T) {
	tests := []struct {
		expr    string
		wantFn  string
		wantCol string
	}{
		{"SUM(revenue)", "SUM", "revenue"},
		{"COUNT(DISTINCT order_id)", "COUNT", "order_id"},
		{"avg(units)", "AVG", "units"},
		{"revenue", "", "revenue"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			fn, col := parseAggregate(tt.expr)
			assert.Equal(t, tt.wantFn, fn)
			assert.Equal(t, tt.wantCol, col)
		})
	}
}
