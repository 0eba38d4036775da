package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080
	DefaultServerMode = "release"
	DefaultRateBurst  = 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRegistryBaseURL = "https://api.patentsview.org"
	DefaultRegistryTimeout = 15 * time.Second
	DefaultRegistryRetries = 3

	DefaultDocumentsBaseURL = "https://patents.google.com"
	DefaultDocumentsTimeout = 20 * time.Second

	DefaultAnalysisBaseURL   = "https://api.anthropic.com"
	DefaultAnalysisModel     = "claude-sonnet-4-20250514"
	DefaultAnalysisMaxTokens = 1024
	DefaultAnalysisTimeout   = 60 * time.Second

	DefaultImportPacing = 1500 * time.Millisecond

	DefaultStoreBackend  = BackendFile
	DefaultSessionKey    = "patent_family"
	DefaultStoreFilePath = ".famscope/family.json"

	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPrefix = "famscope:"

	DefaultPostgresHost = "localhost"
	DefaultPostgresPort = 5432
	DefaultPostgresDB   = "famscope"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "famscope"

	DefaultKafkaBroker        = "localhost:9092"
	DefaultKafkaGroupID       = "famscope-worker"
	DefaultKafkaStageTopic    = "family.record.stage"
	DefaultKafkaProgressTopic = "family.import.progress"
	DefaultKafkaImportTopic   = "family.import.requested"

	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "famscope"
)

// DefaultDocumentSuffixes are the kind codes tried, in order, before the bare
// number when fetching a document.
var DefaultDocumentSuffixes = []string{"B2", "B1", "A1", "A"}

// ─────────────────────────────────────────────────────────────────────────────
// ApplyDefaults
// ─────────────────────────────────────────────────────────────────────────────

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// already set are left unchanged so explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Adding a member runs acquisition plus three analysis calls inline.
		cfg.Server.WriteTimeout = 5 * time.Minute
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = DefaultRateBurst
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Registry ──────────────────────────────────────────────────────────────
	if cfg.Registry.BaseURL == "" {
		cfg.Registry.BaseURL = DefaultRegistryBaseURL
	}
	if cfg.Registry.Timeout == 0 {
		cfg.Registry.Timeout = DefaultRegistryTimeout
	}
	if cfg.Registry.RetryMax == 0 {
		cfg.Registry.RetryMax = DefaultRegistryRetries
	}
	if cfg.Registry.RetryWait == 0 {
		cfg.Registry.RetryWait = 500 * time.Millisecond
	}
	if cfg.Registry.RatePerSecond == 0 {
		cfg.Registry.RatePerSecond = 2
	}
	if cfg.Registry.Burst == 0 {
		cfg.Registry.Burst = 4
	}

	// ── Documents ─────────────────────────────────────────────────────────────
	if cfg.Documents.BaseURL == "" {
		cfg.Documents.BaseURL = DefaultDocumentsBaseURL
	}
	if len(cfg.Documents.Suffixes) == 0 {
		cfg.Documents.Suffixes = append([]string(nil), DefaultDocumentSuffixes...)
	}
	if cfg.Documents.Timeout == 0 {
		cfg.Documents.Timeout = DefaultDocumentsTimeout
	}
	if cfg.Documents.RatePerSecond == 0 {
		cfg.Documents.RatePerSecond = 1
	}
	if cfg.Documents.Burst == 0 {
		cfg.Documents.Burst = 2
	}

	// ── Analysis ──────────────────────────────────────────────────────────────
	if cfg.Analysis.BaseURL == "" {
		cfg.Analysis.BaseURL = DefaultAnalysisBaseURL
	}
	if cfg.Analysis.Model == "" {
		cfg.Analysis.Model = DefaultAnalysisModel
	}
	if cfg.Analysis.MaxTokens == 0 {
		cfg.Analysis.MaxTokens = DefaultAnalysisMaxTokens
	}
	if cfg.Analysis.Timeout == 0 {
		cfg.Analysis.Timeout = DefaultAnalysisTimeout
	}
	if cfg.Analysis.RetryMax == 0 {
		cfg.Analysis.RetryMax = 2
	}
	if cfg.Analysis.RatePerSecond == 0 {
		cfg.Analysis.RatePerSecond = 1
	}

	// ── Importer ──────────────────────────────────────────────────────────────
	// A zero pacing delay is a legitimate explicit choice only through code;
	// file and env configuration get the default.
	if cfg.Importer.PacingDelay == 0 {
		cfg.Importer.PacingDelay = DefaultImportPacing
	}
	if cfg.Importer.LockTTL == 0 {
		cfg.Importer.LockTTL = 30 * time.Minute
	}

	// ── Store ─────────────────────────────────────────────────────────────────
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.SessionKey == "" {
		cfg.Store.SessionKey = DefaultSessionKey
	}
	if cfg.Store.FilePath == "" {
		cfg.Store.FilePath = DefaultStoreFilePath
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisPrefix
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}

	// ── Postgres ──────────────────────────────────────────────────────────────
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultPostgresHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Postgres.DBName == "" {
		cfg.Postgres.DBName = DefaultPostgresDB
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = 4
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.StageTopic == "" {
		cfg.Kafka.StageTopic = DefaultKafkaStageTopic
	}
	if cfg.Kafka.ProgressTopic == "" {
		cfg.Kafka.ProgressTopic = DefaultKafkaProgressTopic
	}
	if cfg.Kafka.ImportTopic == "" {
		cfg.Kafka.ImportTopic = DefaultKafkaImportTopic
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	// ── Cache ─────────────────────────────────────────────────────────────────
	if cfg.Cache.RegistryTTL == 0 {
		cfg.Cache.RegistryTTL = 24 * time.Hour
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}

//Personal.AI order the ending
