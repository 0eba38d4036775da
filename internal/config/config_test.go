package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	t.Parallel()
	cfg := validConfig()

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultRegistryBaseURL, cfg.Registry.BaseURL)
	assert.Equal(t, []string{"B2", "B1", "A1", "A"}, cfg.Documents.Suffixes)
	assert.Equal(t, DefaultAnalysisModel, cfg.Analysis.Model)
	assert.Equal(t, 1024, cfg.Analysis.MaxTokens)
	assert.Equal(t, 1500*time.Millisecond, cfg.Importer.PacingDelay)
	assert.Equal(t, "patent_family", cfg.Store.SessionKey)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "family.record.stage", cfg.Kafka.StageTopic)
	assert.Equal(t, 24*time.Hour, cfg.Cache.RegistryTTL)
	assert.NoError(t, cfg.Validate())
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	cfg.Server.Port = 9999
	cfg.Store.SessionKey = "custom"
	cfg.Documents.Suffixes = []string{"B2"}
	ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "custom", cfg.Store.SessionKey)
	assert.Equal(t, []string{"B2"}, cfg.Documents.Suffixes)
}

func TestApplyDefaults_NilSafe(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

func TestApplyDefaults_SuffixesNotShared(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Documents.Suffixes[0] = "X"
	assert.Equal(t, "B2", DefaultDocumentSuffixes[0])
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"registry url", func(c *Config) { c.Registry.BaseURL = "" }, "registry.base_url"},
		{"retry", func(c *Config) { c.Registry.RetryMax = -1 }, "registry.retry_max"},
		{"documents url", func(c *Config) { c.Documents.BaseURL = "" }, "documents.base_url"},
		{"pattern", func(c *Config) { c.Documents.IncludePatterns = []string{"(["} }, "does not compile"},
		{"model", func(c *Config) { c.Analysis.Model = "" }, "analysis.model"},
		{"tokens", func(c *Config) { c.Analysis.MaxTokens = 0 }, "analysis.max_tokens"},
		{"pacing", func(c *Config) { c.Importer.PacingDelay = -time.Second }, "pacing_delay"},
		{"session", func(c *Config) { c.Store.SessionKey = "" }, "session_key"},
		{"backend", func(c *Config) { c.Store.Backend = "sqlite" }, "store.backend"},
		{"file path", func(c *Config) { c.Store.FilePath = "" }, "store.file_path"},
		{"postgres", func(c *Config) { c.Store.Backend = BackendPostgres; c.Postgres.DBName = "" }, "postgres.host"},
		{"redis", func(c *Config) { c.Store.Backend = BackendRedis; c.Redis.Addr = "" }, "redis.addr"},
		{"redis db", func(c *Config) { c.Redis.DB = -1 }, "redis.db"},
		{"minio", func(c *Config) { c.Documents.Archive = true; c.MinIO.Bucket = "" }, "minio.endpoint"},
		{"kafka brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"kafka group", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.GroupID = "" }, "kafka.group_id"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate_BackendAware(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Store.Backend = BackendMemory
	cfg.Store.FilePath = ""
	cfg.Redis.Addr = ""
	assert.NoError(t, cfg.Validate(), "memory backend needs neither a file nor redis")
}

func TestNeeds(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	assert.False(t, cfg.NeedsRedis())
	assert.False(t, cfg.NeedsMinIO())

	cfg.Cache.Enabled = true
	cfg.Store.Backend = BackendMinIO
	assert.True(t, cfg.NeedsRedis())
	assert.True(t, cfg.NeedsMinIO())
}

//Personal.AI order the ending
