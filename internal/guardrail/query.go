package guardrail

import (
	"fmt"
	"strings"

	"github.com/storewise/storewise/internal/query"
)

// forbiddenSumColumns are identifier and categorical columns that must
// never be summed. Summing them is always an analytics bug, not a valid
// question.
var forbiddenSumColumns = map[string]struct{}{
	"order_id":      {},
	"sku":           {},
	"style":         {},
	"category":      {},
	"region":        {},
	"country":       {},
	"state":         {},
	"city":          {},
	"sales_channel": {},
	"currency":      {},
}

// destructiveTokens are rejected anywhere in the rendered query text,
// case-insensitively. The plan checks above make these unreachable through
// normal construction; the scan is a final tripwire.
var destructiveTokens = []string{";--", "drop table", "delete from", "truncate table"}

// UnsafeQueryError reports a query rejected by pre-execution analysis.
type UnsafeQueryError struct {
	Reason string
}

func (e *UnsafeQueryError) Error() string {
	return "unsafe query: " + e.Reason
}

// CheckQuery statically analyzes a built query plan before execution.
// Checks run in order and the first violation wins: unsafe aggregation,
// wildcard projection, join without keys, destructive tokens.
func CheckQuery(plan *query.Plan) error {
	for _, item := range plan.Select {
		if !item.Aggregate {
			continue
		}
		if item.AggFunc != "SUM" {
			continue
		}
		col := strings.ToLower(item.AggColumn)
		if _, forbidden := forbiddenSumColumns[col]; forbidden {
			return &UnsafeQueryError{Reason: fmt.Sprintf("SUM(%s) is not allowed", col)}
		}
	}

	for _, item := range plan.Select {
		if item.Expr == "*" || strings.HasSuffix(item.Qualified, ".*") {
			return &UnsafeQueryError{Reason: "wildcard projection is not allowed in analytics queries"}
		}
	}

	for _, j := range plan.Joins {
		if len(j.Keys) == 0 {
			return &UnsafeQueryError{Reason: "join without key predicate detected"}
		}
	}

	sql, _ := plan.SQL()
	lower := strings.ToLower(sql)
	for _, token := range destructiveTokens {
		if strings.Contains(lower, token) {
			return &UnsafeQueryError{Reason: "potentially destructive SQL detected"}
		}
	}

	return nil
}
