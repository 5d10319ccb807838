package warehouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Table names derive from file names; restrict them to plain identifiers
// so a stray file can never smuggle SQL into the DDL below.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadDir loads every *.parquet and *.csv file in dir into a table named
// after the file stem. Existing tables are replaced, so the load is safe to
// rerun.
func (w *Warehouse) LoadDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read data directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".parquet" && ext != ".csv" {
			continue
		}

		table := strings.TrimSuffix(name, filepath.Ext(name))
		if !identPattern.MatchString(table) {
			return fmt.Errorf("file %s does not map to a valid table name", name)
		}

		path := filepath.Join(dir, name)
		reader := "read_parquet"
		if ext == ".csv" {
			reader = "read_csv_auto"
		}

		w.logger.Info("loading table", "table", table, "file", name)

		ddl := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s(?)", table, reader)
		if _, err := w.db.ExecContext(ctx, ddl, path); err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
		loaded++
	}

	if loaded == 0 {
		return fmt.Errorf("no parquet or csv files found in %s", dir)
	}
	w.logger.Info("warehouse loaded", "tables", loaded)
	return nil
}

// HealthCheck verifies the warehouse answers trivial queries for each of
// the given tables.
func (w *Warehouse) HealthCheck(ctx context.Context, tables []string) error {
	for _, table := range tables {
		if !identPattern.MatchString(table) {
			return fmt.Errorf("invalid table name %q", table)
		}
		var count int64
		if err := w.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return fmt.Errorf("health check failed for %s: %w", table, err)
		}
		w.logger.Debug("health check", "table", table, "rows", count)
	}
	return nil
}
