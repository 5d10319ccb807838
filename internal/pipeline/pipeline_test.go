package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storewise/storewise/internal/llm"
	"github.com/storewise/storewise/internal/memory"
	"github.com/storewise/storewise/internal/schema"
	"github.com/storewise/storewise/internal/state"
	"github.com/storewise/storewise/internal/testutil"
	"github.com/storewise/storewise/internal/warehouse"
)

// scriptedClient answers the extraction prompt with a fixed intent JSON and
// the analyst prompt with a fixed insight.
func scriptedClient(t *testing.T, intentJSON string) llm.Client {
	t.Helper()
	return llm.GenerateFunc(func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "intent extraction engine"):
			return intentJSON, nil
		case strings.Contains(prompt, "business analyst"):
			return "Electronics leads with 980.50 in revenue.\n", nil
		default:
			return "", fmt.Errorf("unexpected prompt")
		}
	})
}

func newTestPipeline(t *testing.T, client llm.Client) (*Pipeline, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := testutil.NewTestLogger(t)
	p := New(Config{
		Registry:  schema.Default(),
		Memory:    memory.New(memory.DefaultMaxHistory),
		Warehouse: warehouse.NewFromDB(db, logger),
		Client:    client,
		Logger:    logger,
	})
	return p, mock
}

const rankingIntentJSON = `{
	"question_type": "ranking",
	"business_question": "Which category generates the most revenue?",
	"target_tables": ["fact_sales", "dim_product"],
	"metrics": ["revenue"],
	"dimensions": ["category"],
	"confidence": 0.92
}`

func TestAskCompletedTraversal(t *testing.T) {
	p, mock := newTestPipeline(t, scriptedClient(t, rankingIntentJSON))

	mock.ExpectQuery("SELECT dim_product.category AS category, SUM(revenue) AS total_revenue" +
		" FROM fact_sales LEFT JOIN dim_product ON fact_sales.sku = dim_product.sku" +
		" GROUP BY dim_product.category").
		WillReturnRows(sqlmock.NewRows([]string{"category", "total_revenue"}).
			AddRow("Electronics", 980.5).
			AddRow("Clothing", 400.0))

	out := p.Ask(context.Background(), "Which category generates the most revenue?")

	require.Equal(t, StatusCompleted, out.Status)
	assert.NotEmpty(t, out.RunID)
	assert.Empty(t, out.Error)

	require.NotNil(t, out.Data)
	assert.Equal(t, 2, out.Data.RowCount)

	require.NotNil(t, out.Validation)
	assert.False(t, out.Validation.Blocked())

	require.NotNil(t, out.Insight)
	assert.Equal(t, "Electronics leads with 980.50 in revenue.", out.Insight.Text)
	assert.Equal(t, 2, out.Insight.RowCount)
	assert.Equal(t, 0.92, out.Insight.Confidence)

	// The accepted intent is committed to memory exactly once.
	assert.Equal(t, 1, p.Memory().Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskOutOfScopeBypassesMemory(t *testing.T) {
	p, _ := newTestPipeline(t, scriptedClient(t, `{
		"question_type": "forecasting",
		"metrics": ["revenue"],
		"target_tables": ["fact_sales"]
	}`))

	out := p.Ask(context.Background(), "Forecast next quarter's revenue")

	assert.Equal(t, StatusBlocked, out.Status)
	assert.Equal(t, ReasonOutOfScope, out.Error)
	assert.Nil(t, out.Data)
	assert.Nil(t, out.Validation)
	assert.Equal(t, 0, p.Memory().Len())
}

func TestAskUnknownTableBlocks(t *testing.T) {
	p, _ := newTestPipeline(t, scriptedClient(t, `{
		"question_type": "aggregation",
		"target_tables": ["user_accounts"],
		"metrics": ["revenue"]
	}`))

	out := p.Ask(context.Background(), "Total revenue from user accounts")

	assert.Equal(t, StatusBlocked, out.Status)
	assert.Contains(t, out.Error, "user_accounts")
	assert.Equal(t, 0, p.Memory().Len())
}

func TestAskUnsupportedMetricBlocks(t *testing.T) {
	p, _ := newTestPipeline(t, scriptedClient(t, `{
		"question_type": "aggregation",
		"target_tables": ["fact_sales"],
		"metrics": ["profit_margin"]
	}`))

	out := p.Ask(context.Background(), "What is the profit margin?")

	assert.Equal(t, StatusBlocked, out.Status)
	assert.Contains(t, out.Error, "profit_margin")
}

func TestAskEmptyResultBlocksAndSkipsMemory(t *testing.T) {
	p, mock := newTestPipeline(t, scriptedClient(t, rankingIntentJSON))

	mock.ExpectQuery("SELECT dim_product.category AS category, SUM(revenue) AS total_revenue" +
		" FROM fact_sales LEFT JOIN dim_product ON fact_sales.sku = dim_product.sku" +
		" GROUP BY dim_product.category").
		WillReturnRows(sqlmock.NewRows([]string{"category", "total_revenue"}))

	out := p.Ask(context.Background(), "Which category generates the most revenue?")

	require.Equal(t, StatusBlocked, out.Status)
	require.NotNil(t, out.Validation)
	assert.True(t, out.Validation.Blocked())
	assert.Contains(t, out.Validation.Issues, "Query returned no data")
	assert.Nil(t, out.Data)

	// A blocked validation must not commit the intent.
	assert.Equal(t, 0, p.Memory().Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskBlockedVerdictWithholdsData(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	audit := state.NewStore(nil)
	require.NoError(t, audit.Open(":memory:"))
	t.Cleanup(func() { _ = audit.Close() })

	logger := testutil.NewTestLogger(t)
	p := New(Config{
		Registry:  schema.Default(),
		Memory:    memory.New(memory.DefaultMaxHistory),
		Warehouse: warehouse.NewFromDB(db, logger),
		Client:    scriptedClient(t, rankingIntentJSON),
		Audit:     audit,
		Logger:    logger,
	})

	sqlText := "SELECT dim_product.category AS category, SUM(revenue) AS total_revenue" +
		" FROM fact_sales LEFT JOIN dim_product ON fact_sales.sku = dim_product.sku" +
		" GROUP BY dim_product.category"
	mock.ExpectQuery(sqlText).
		WillReturnRows(sqlmock.NewRows([]string{"category", "total_revenue", "cancellation_rate"}).
			AddRow("Electronics", 980.5, 1.7))

	out := p.Ask(context.Background(), "Which category generates the most revenue?")

	require.Equal(t, StatusBlocked, out.Status)
	require.NotNil(t, out.Validation)
	assert.True(t, out.Validation.Blocked())
	assert.Contains(t, out.Validation.Issues, "Cancellation rate exceeds 100%")

	// The rejected rows must not reach the caller in any form.
	assert.Nil(t, out.Data)
	assert.Nil(t, out.Insight)
	assert.Equal(t, 0, p.Memory().Len())

	// The audit trail still sees what ran.
	recorded, err := audit.Recent(1)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, "blocked", recorded[0].Status)
	assert.Equal(t, sqlText, recorded[0].SQL)
	assert.Equal(t, 1, recorded[0].RowCount)
	assert.Equal(t, "block", recorded[0].VerdictStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAskTransportFailureBlocks(t *testing.T) {
	client := llm.GenerateFunc(func(_ context.Context, _ string) (string, error) {
		return "", fmt.Errorf("connection refused")
	})
	p, _ := newTestPipeline(t, client)

	out := p.Ask(context.Background(), "Total revenue last month")

	assert.Equal(t, StatusBlocked, out.Status)
	assert.Contains(t, out.Error, "connection refused")
}

func TestAskFollowupInheritsContext(t *testing.T) {
	calls := 0
	client := llm.GenerateFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "business analyst") {
			return "Summary.", nil
		}
		calls++
		if calls == 1 {
			return rankingIntentJSON, nil
		}
		// The follow-up names no tables or dimensions; memory supplies them.
		return `{
			"question_type": "ranking",
			"metrics": ["units"],
			"confidence": 0.8
		}`, nil
	})
	p, mock := newTestPipeline(t, client)

	firstSQL := "SELECT dim_product.category AS category, SUM(revenue) AS total_revenue" +
		" FROM fact_sales LEFT JOIN dim_product ON fact_sales.sku = dim_product.sku" +
		" GROUP BY dim_product.category"
	mock.ExpectQuery(firstSQL).
		WillReturnRows(sqlmock.NewRows([]string{"category", "total_revenue"}).
			AddRow("Electronics", 980.5))

	followupSQL := "SELECT dim_product.category AS category, SUM(units) AS total_units" +
		" FROM fact_sales LEFT JOIN dim_product ON fact_sales.sku = dim_product.sku" +
		" GROUP BY dim_product.category"
	mock.ExpectQuery(followupSQL).
		WillReturnRows(sqlmock.NewRows([]string{"category", "total_units"}).
			AddRow("Electronics", int64(42)))

	first := p.Ask(context.Background(), "Which category generates the most revenue?")
	require.Equal(t, StatusCompleted, first.Status)

	second := p.Ask(context.Background(), "And by units?")
	require.Equal(t, StatusCompleted, second.Status)
	assert.Equal(t, []string{"category", "total_units"}, second.Data.Columns)

	assert.Equal(t, 2, p.Memory().Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}
