package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090
  mode: debug
log:
  level: debug
registry:
  api_key: file-key
  rate_per_second: 5
documents:
  suffixes: ["B2", "A1"]
  exclude_patterns: ["^Cited By"]
importer:
  pacing_delay: 250ms
store:
  backend: memory
  session_key: lab_family
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "famscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "file-key", cfg.Registry.APIKey)
	assert.Equal(t, 5.0, cfg.Registry.RatePerSecond)
	assert.Equal(t, []string{"B2", "A1"}, cfg.Documents.Suffixes)
	assert.Equal(t, []string{"^Cited By"}, cfg.Documents.ExcludePatterns)
	assert.Equal(t, 250*time.Millisecond, cfg.Importer.PacingDelay)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "lab_family", cfg.Store.SessionKey)
	// untouched sections get defaults
	assert.Equal(t, DefaultAnalysisModel, cfg.Analysis.Model)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("FAMSCOPE_REGISTRY_API_KEY", "env-key")
	t.Setenv("FAMSCOPE_SERVER_PORT", "7070")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Registry.APIKey)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FAMSCOPE_STORE_BACKEND", "redis")
	t.Setenv("FAMSCOPE_ANALYSIS_API_KEY", "sk-test")
	t.Setenv("FAMSCOPE_IMPORTER_PACING_DELAY", "2s")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "sk-test", cfg.Analysis.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Importer.PacingDelay)
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
}

func TestLoad_EmptyPathUsesEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionKey, cfg.Store.SessionKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "store:\n  backend: sqlite\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	changed := make(chan *Config, 4)
	require.NoError(t, Watch(path, func(c *Config) { changed <- c }, nil))

	updated := sampleYAML + "\nanalysis:\n  model: claude-test\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	// A write may surface as several events, the first of which can observe a
	// truncated file.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Analysis.Model == "claude-test" {
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

//Personal.AI order the ending
