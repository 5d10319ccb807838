package schema

// Default returns the built-in retail registry used when no registry
// documents are configured. It mirrors the canonical warehouse produced by
// the ETL pipeline: one sales fact table, a product dimension, and a
// finance rollup.
func Default() *Registry {
	reg := registryDoc{
		PrimaryFactTable: "fact_sales",
		QuestionTypes:    []string{"aggregation", "comparison", "ranking", "trend", "summary"},
		Tables: []tableDoc{
			{
				Name: "dim_product",
				Columns: map[string]string{
					"sku":      "string",
					"style":    "string",
					"category": "string",
					"size":     "string",
					"color":    "string",
				},
			},
			{
				Name: "fact_sales",
				Columns: map[string]string{
					"order_id":         "string",
					"order_date":       "date",
					"sku":              "string",
					"style":            "string",
					"category":         "string",
					"currency":         "string",
					"region":           "string",
					"country":          "string",
					"state":            "string",
					"city":             "string",
					"sales_channel":    "string",
					"fulfillment_type": "string",
					"order_status":     "string",
					"revenue":          "numeric",
					"units":            "numeric",
					"year":             "numeric",
					"month":            "numeric",
					"quarter":          "string",
					"is_cancelled":     "bool",
					"is_b2b":           "bool",
				},
			},
			{
				Name: "finance_summary",
				Columns: map[string]string{
					"month":             "string",
					"total_revenue":     "numeric",
					"total_units":       "numeric",
					"revenue_growth":    "numeric",
					"cancellation_rate": "numeric",
				},
			},
		},
		Metrics: []metricDoc{
			{Name: "revenue", Expression: "SUM(revenue)", Alias: "total_revenue"},
			{Name: "units", Expression: "SUM(units)", Alias: "total_units"},
			{Name: "orders", Expression: "COUNT(DISTINCT order_id)", Alias: "total_orders"},
		},
		Joins: []joinDoc{
			{Left: "fact_sales", Right: "dim_product", Type: "left", Keys: []string{"sku"}},
		},
	}

	rules := rulesDoc{}
	rules.SafetyLimits.MaxGroupByColumns = 3
	rules.Validation.MaxRowsReturned = 5000
	rules.Validation.SanityLimits.RevenueGrowthMin = -0.9
	rules.Validation.SanityLimits.RevenueGrowthMax = 10.0
	rules.Validation.SanityLimits.CancellationRateMax = 1.0
	rules.ExecutiveSummary = []string{
		"Lead with the single most important finding.",
		"Quantify every claim with a number from the data.",
		"Call out concentration risk when one segment dominates.",
		"Surface validation warnings as caveats, never bury them.",
	}

	r, err := fromDocuments(reg, rules)
	if err != nil {
		// The built-in documents are fixed; a failure here is a bug.
		panic(err)
	}
	return r
}
