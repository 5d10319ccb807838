// Package config loads application configuration for storewise.
// Precedence, lowest to highest: built-in defaults, the storewise.yaml
// config file, STOREWISE_* environment variables, command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all runtime configuration.
type Config struct {
	// DataDir contains the parquet/CSV files loaded into the warehouse.
	DataDir string `koanf:"data_dir"`
	// Database is the DuckDB file path (empty for in-memory).
	Database string `koanf:"database"`
	// AuditPath is the SQLite traversal audit database (empty disables).
	AuditPath string `koanf:"audit_path"`

	// RegistryPath and RulesPath point at the schema registry and business
	// rules documents. Empty means the built-in retail defaults.
	RegistryPath string `koanf:"registry"`
	RulesPath    string `koanf:"business_rules"`

	// Model is the text-generation model identifier.
	Model string `koanf:"model"`
	// MaxTokens bounds each generation response.
	MaxTokens int64 `koanf:"max_tokens"`

	// MaxHistory bounds the context memory's intent history.
	MaxHistory int `koanf:"max_history"`

	// LLMTimeout bounds each text-generation call; QueryTimeout bounds
	// warehouse execution.
	LLMTimeout   time.Duration `koanf:"llm_timeout"`
	QueryTimeout time.Duration `koanf:"query_timeout"`

	// Listen is the HTTP bind address for serve.
	Listen string `koanf:"listen"`

	Verbose bool `koanf:"verbose"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"data_dir":      "data",
		"database":      "",
		"audit_path":    ".storewise/audit.db",
		"model":         "claude-sonnet-4-5",
		"max_tokens":    1024,
		"max_history":   5,
		"llm_timeout":   "60s",
		"query_timeout": "30s",
		"listen":        ":8080",
	}
}

// findConfigFile finds the config file to use.
// Priority: explicit path > storewise.yaml > storewise.yml.
func findConfigFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	for _, name := range []string{"storewise.yaml", "storewise.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration from all sources. flags may be nil.
func Load(explicitFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	if path := findConfigFile(explicitFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else if explicitFile != "" {
		return nil, fmt.Errorf("config file not found: %s", explicitFile)
	}

	// STOREWISE_QUERY_TIMEOUT → query_timeout
	err := k.Load(env.Provider("STOREWISE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "STOREWISE_"))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	if flags != nil {
		// Only flags that were explicitly set override; --data-dir maps to
		// data_dir.
		err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to load flag config: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
