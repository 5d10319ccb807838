// Package cli provides the storewise command-line interface.
package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/storewise/storewise/internal/config"
	"github.com/storewise/storewise/internal/llm"
	"github.com/storewise/storewise/internal/memory"
	"github.com/storewise/storewise/internal/pipeline"
	"github.com/storewise/storewise/internal/schema"
	"github.com/storewise/storewise/internal/state"
	"github.com/storewise/storewise/internal/warehouse"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "storewise",
		Short: "Storewise - Retail Insights Assistant",
		Long: `Storewise answers natural-language business questions against a retail
warehouse through a deterministic pipeline: intent extraction, schema-aware
routing, guarded query construction, result validation, and summarization.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
			}))

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./storewise.yaml)")
	flags.String("data-dir", "", "directory of parquet/CSV files to load")
	flags.String("database", "", "DuckDB database path (empty for in-memory)")
	flags.String("audit-path", "", "SQLite traversal audit path")
	flags.String("registry", "", "schema registry document")
	flags.String("business-rules", "", "business rules document")
	flags.String("model", "", "text-generation model")
	flags.String("listen", "", "HTTP listen address")
	flags.BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		newAskCmd(),
		newLoadCmd(),
		newServeCmd(),
		newHistoryCmd(),
	)

	return rootCmd
}

// Execute runs the root command.
func Execute() int {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		rootCmd.PrintErrln("Error:", err)
		return 1
	}
	return 0
}

// runtime bundles the long-lived collaborators a command needs.
type runtime struct {
	registry  *schema.Registry
	warehouse *warehouse.Warehouse
	audit     *state.Store
	pipeline  *pipeline.Pipeline
}

func (rt *runtime) close() {
	if rt.audit != nil {
		_ = rt.audit.Close()
	}
	if rt.warehouse != nil {
		_ = rt.warehouse.Close()
	}
}

// buildRuntime loads the registry, opens the warehouse and audit store,
// and assembles the pipeline.
func buildRuntime(ctx context.Context) (*runtime, error) {
	registry, err := loadRegistry()
	if err != nil {
		return nil, err
	}

	wh, err := warehouse.Open(ctx, warehouse.Config{Path: cfg.Database, Logger: logger})
	if err != nil {
		return nil, err
	}

	rt := &runtime{registry: registry, warehouse: wh}

	if cfg.AuditPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.AuditPath), 0o755); err == nil {
			audit := state.NewStore(logger)
			if err := audit.Open(cfg.AuditPath); err != nil {
				logger.Warn("audit store unavailable", "error", err)
			} else {
				rt.audit = audit
			}
		}
	}

	client := llm.NewAnthropic(cfg.Model, cfg.MaxTokens, logger)

	rt.pipeline = pipeline.New(pipeline.Config{
		Registry:     registry,
		Memory:       memory.New(cfg.MaxHistory),
		Warehouse:    wh,
		Client:       client,
		Audit:        rt.audit,
		Logger:       logger,
		LLMTimeout:   cfg.LLMTimeout,
		QueryTimeout: cfg.QueryTimeout,
	})

	return rt, nil
}

func loadRegistry() (*schema.Registry, error) {
	if cfg.RegistryPath != "" && cfg.RulesPath != "" {
		return schema.Load(cfg.RegistryPath, cfg.RulesPath)
	}
	return schema.Default(), nil
}
