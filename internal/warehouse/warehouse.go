// Package warehouse is the analytical storage layer. It owns the DuckDB
// connection, loads the canonical tables from parquet/CSV files, and is the
// only place queries are executed. Callers depend on result column names
// and value types, never on engine-specific behavior.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Config holds warehouse configuration.
type Config struct {
	// Path is the DuckDB database file. Empty means in-memory.
	Path string
	// Logger is the structured logger (optional).
	Logger *slog.Logger
}

// Warehouse wraps a DuckDB connection behind database/sql.
type Warehouse struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to DuckDB and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Warehouse, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	return NewFromDB(db, cfg.Logger), nil
}

// NewFromDB wraps an existing connection. Used by tests to substitute a
// mock driver.
func NewFromDB(db *sql.DB, logger *slog.Logger) *Warehouse {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Warehouse{db: db, logger: logger}
}

// Close closes the underlying connection.
func (w *Warehouse) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}

// Query executes a parameterized query and materializes the full result.
// Byte-slice values are converted to strings so downstream checks see
// plain scalars.
func (w *Warehouse) Query(ctx context.Context, sqlStr string, args ...any) (*Result, error) {
	if w.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := w.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &Result{SQL: sqlStr, Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}

	result.RowCount = len(result.Rows)
	w.logger.Debug("query executed", "rows", result.RowCount, "columns", len(cols))
	return result, nil
}
