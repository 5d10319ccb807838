package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "", cfg.Database)
	assert.Equal(t, ".storewise/audit.db", cfg.AuditPath)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Model)
	assert.Equal(t, int64(1024), cfg.MaxTokens)
	assert.Equal(t, 5, cfg.MaxHistory)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storewise.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /srv/retail
model: claude-opus-4-1
query_timeout: 45s
verbose: true
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/srv/retail", cfg.DataDir)
	assert.Equal(t, "claude-opus-4-1", cfg.Model)
	assert.Equal(t, 45*time.Second, cfg.QueryTimeout)
	assert.True(t, cfg.Verbose)
	// Untouched keys keep their defaults.
	assert.Equal(t, ":8080", cfg.Listen)
}

func TestLoadConfigFileDiscovery(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("storewise.yaml", []byte("listen: :9090\n"), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("nope.yaml", nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "config file not found")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storewise.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: from-file\n"), 0o644))

	t.Setenv("STOREWISE_MODEL", "from-env")
	t.Setenv("STOREWISE_LLM_TIMEOUT", "90s")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Model)
	assert.Equal(t, 90*time.Second, cfg.LLMTimeout)
}

func TestLoadFlagsOverrideEverything(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STOREWISE_DATA_DIR", "/from/env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("data-dir", "data", "")
	flags.String("listen", ":8080", "")
	require.NoError(t, flags.Set("data-dir", "/from/flag"))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	// Only the flag that was explicitly set overrides.
	assert.Equal(t, "/from/flag", cfg.DataDir)
	assert.Equal(t, ":8080", cfg.Listen)
}
