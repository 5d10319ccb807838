package warehouse

// Result is the tabular output of one query execution plus the exact SQL
// that produced it. Metric columns always carry their aggregation alias
// (e.g. total_revenue), never the raw metric identifier.
type Result struct {
	SQL      string   `json:"sql"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}

// Empty reports whether the result has no rows.
func (r *Result) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// HasColumn reports whether the result contains the named column.
func (r *Result) HasColumn(name string) bool {
	_, ok := r.columnIndex(name)
	return ok
}

// Column returns all values of the named column in row order.
func (r *Result) Column(name string) ([]any, bool) {
	idx, ok := r.columnIndex(name)
	if !ok {
		return nil, false
	}
	out := make([]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, row[idx])
	}
	return out, true
}

// NullRatio returns the mean null ratio across all columns.
func (r *Result) NullRatio() float64 {
	if r.Empty() || len(r.Columns) == 0 {
		return 0
	}
	nulls := 0
	for _, row := range r.Rows {
		for _, v := range row {
			if v == nil {
				nulls++
			}
		}
	}
	return float64(nulls) / float64(len(r.Rows)*len(r.Columns))
}

func (r *Result) columnIndex(name string) (int, bool) {
	for i, col := range r.Columns {
		if col == name {
			return i, true
		}
	}
	return 0, false
}

// AsFloat coerces a scanned value to float64. Non-numeric values and nulls
// report false.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
