// Package config defines all configuration structures for FamilyScope.  No
// I/O or parsing logic lives here; only plain data types and validation.
package config

import (
	"fmt"
	"regexp"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP API server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second per client, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level        string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format       string   `mapstructure:"format"` // "json" | "console"
	OutputPaths  []string `mapstructure:"output_paths"`
	EnableCaller bool     `mapstructure:"enable_caller"`
}

// RegistryConfig configures the primary patent registry (PatentsView-style
// JSON API).
type RegistryConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryMax      int           `mapstructure:"retry_max"`
	RetryWait     time.Duration `mapstructure:"retry_wait"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// DocumentsConfig configures the secondary HTML document store.
type DocumentsConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Suffixes        []string      `mapstructure:"suffixes"`
	IncludePatterns []string      `mapstructure:"include_patterns"`
	ExcludePatterns []string      `mapstructure:"exclude_patterns"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RatePerSecond   float64       `mapstructure:"rate_per_second"`
	Burst           int           `mapstructure:"burst"`
	UserAgent       string        `mapstructure:"user_agent"`
	Archive         bool          `mapstructure:"archive"` // snapshot fetched HTML to MinIO
}

// AnalysisConfig configures the generative analysis capability.
type AnalysisConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryMax      int           `mapstructure:"retry_max"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
}

// ImporterConfig configures the batch family importer.
type ImporterConfig struct {
	PacingDelay time.Duration `mapstructure:"pacing_delay"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

// StoreConfig selects and configures the family collection store.
type StoreConfig struct {
	Backend    string `mapstructure:"backend"` // memory | file | redis | postgres | minio
	SessionKey string `mapstructure:"session_key"`
	FilePath   string `mapstructure:"file_path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"db_name"`
	SSLMode     string `mapstructure:"ssl_mode"`
	MaxConns    int32  `mapstructure:"max_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// KafkaConfig holds Apache Kafka producer/consumer parameters.
type KafkaConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Brokers       []string      `mapstructure:"brokers"`
	GroupID       string        `mapstructure:"group_id"`
	StageTopic    string        `mapstructure:"stage_topic"`
	ProgressTopic string        `mapstructure:"progress_topic"`
	ImportTopic   string        `mapstructure:"import_topic"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	AutoCreate    bool          `mapstructure:"auto_create_topics"`
	SASLMechanism string        `mapstructure:"sasl_mechanism"` // empty disables SASL
	SASLUsername  string        `mapstructure:"sasl_username"`
	SASLPassword  string        `mapstructure:"sasl_password"`
	TLSEnabled    bool          `mapstructure:"tls_enabled"`
	TLSCAFile     string        `mapstructure:"tls_ca_file"`
}

// CacheConfig controls the Redis-backed registry response cache.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RegistryTTL time.Duration `mapstructure:"registry_ttl"`
}

// MetricsConfig controls Prometheus instrumentation.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.  Every infrastructure component
// and application service reads its settings from the relevant sub-struct.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Importer  ImporterConfig  `mapstructure:"importer"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// Store backend identifiers.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMinIO    = "minio"
)

// NeedsRedis reports whether any enabled component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Store.Backend == BackendRedis || c.Cache.Enabled
}

// NeedsMinIO reports whether any enabled component talks to MinIO.
func (c *Config) NeedsMinIO() bool {
	return c.Store.Backend == BackendMinIO || c.Documents.Archive
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.  It
// returns the first error encountered.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("config: server.rate_limit and server.rate_burst must not be negative")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	// Sources
	if c.Registry.BaseURL == "" {
		return fmt.Errorf("config: registry.base_url is required")
	}
	if c.Registry.RetryMax < 0 {
		return fmt.Errorf("config: registry.retry_max must be ≥ 0, got %d", c.Registry.RetryMax)
	}
	if c.Documents.BaseURL == "" {
		return fmt.Errorf("config: documents.base_url is required")
	}
	for _, p := range append(append([]string{}, c.Documents.IncludePatterns...), c.Documents.ExcludePatterns...) {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("config: documents pattern %q does not compile: %w", p, err)
		}
	}
	if c.Analysis.Model == "" {
		return fmt.Errorf("config: analysis.model is required")
	}
	if c.Analysis.MaxTokens < 1 {
		return fmt.Errorf("config: analysis.max_tokens must be ≥ 1, got %d", c.Analysis.MaxTokens)
	}

	// Importer
	if c.Importer.PacingDelay < 0 {
		return fmt.Errorf("config: importer.pacing_delay must not be negative")
	}

	// Store
	if c.Store.SessionKey == "" {
		return fmt.Errorf("config: store.session_key is required")
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.FilePath == "" {
			return fmt.Errorf("config: store.file_path is required for the file backend")
		}
	case BackendRedis, BackendMinIO:
	case BackendPostgres:
		if c.Postgres.Host == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("config: postgres.host and postgres.db_name are required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: store.backend %q is invalid; expected memory|file|redis|postgres|minio", c.Store.Backend)
	}

	// Redis
	if c.NeedsRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// MinIO
	if c.NeedsMinIO() && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		return fmt.Errorf("config: minio.endpoint and minio.bucket are required")
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
	}

	return nil
}

//Personal.AI order the ending
