// Package bootstrap wires configuration into the running pipeline.  The API
// server, the worker and the CLI all build their dependencies here.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/FamilyScope/internal/application/acquisition"
	"github.com/turtacn/FamilyScope/internal/application/analysis"
	appFamily "github.com/turtacn/FamilyScope/internal/application/family"
	"github.com/turtacn/FamilyScope/internal/application/enrichment"
	"github.com/turtacn/FamilyScope/internal/application/importer"
	"github.com/turtacn/FamilyScope/internal/config"
	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/domain/patent"
	"github.com/turtacn/FamilyScope/internal/infrastructure/database/postgres"
	"github.com/turtacn/FamilyScope/internal/infrastructure/database/redis"
	"github.com/turtacn/FamilyScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/internal/infrastructure/source/gpatents"
	"github.com/turtacn/FamilyScope/internal/infrastructure/source/patentsview"
	"github.com/turtacn/FamilyScope/internal/infrastructure/storage/local"
	"github.com/turtacn/FamilyScope/internal/infrastructure/storage/minio"
	"github.com/turtacn/FamilyScope/internal/intelligence/family_llm"
)

// EventSource is written into every Kafka envelope as the producer name.
const EventSource = "famscope"

// App holds every long-lived component built from one Config.
type App struct {
	Config    *config.Config
	Logger    logging.Logger
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	Store     family.Store
	Jobs      importer.JobStore
	Registry  *patentsview.Client
	Documents *gpatents.Client
	Analyzer  *family_llm.AnthropicClient
	Engine    *family_llm.Engine
	Machine   *enrichment.Machine
	Family    *appFamily.Service
	Analysis  *analysis.Service

	// Publisher is nil unless kafka.enabled.
	Publisher *kafka.EventPublisher
	Topics    kafka.Topics

	pingers map[string]family.Pinger
	redis   *redis.Client
	pool    *pgxpool.Pool
	minio   *minio.Client
	closers []func() error
}

// Option adjusts how New builds an App.
type Option func(*options)

type options struct {
	registry  patent.RegistrySource
	documents patent.DocumentSource
	analyzer  family_llm.Analyzer
	store     family.Store
}

// WithRegistrySource replaces the PatentsView adapter.
func WithRegistrySource(r patent.RegistrySource) Option {
	return func(o *options) { o.registry = r }
}

// WithDocumentSource replaces the document store adapter.
func WithDocumentSource(d patent.DocumentSource) Option {
	return func(o *options) { o.documents = d }
}

// WithAnalyzer replaces the Anthropic client.
func WithAnalyzer(a family_llm.Analyzer) Option {
	return func(o *options) { o.analyzer = a }
}

// WithStore replaces the configured collection store.
func WithStore(s family.Store) Option {
	return func(o *options) { o.store = s }
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(logging.LogConfig{
		Level:        level,
		Format:       cfg.Format,
		OutputPaths:  cfg.OutputPaths,
		EnableCaller: cfg.EnableCaller,
	})
}

// New builds the pipeline described by cfg.  On error everything opened so
// far is closed again.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (_ *App, err error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	app := &App{Config: cfg, Logger: logger, pingers: make(map[string]family.Pinger)}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if err = app.initMetrics(); err != nil {
		return nil, err
	}
	if err = app.initBackends(); err != nil {
		return nil, err
	}
	if o.store != nil {
		app.Store = o.store
	} else if app.Store, err = app.buildStore(); err != nil {
		return nil, err
	}
	if p, ok := app.Store.(family.Pinger); ok {
		app.pingers["store"] = p
	}
	app.Jobs = app.buildJobStore()

	if err = app.initKafka(ctx); err != nil {
		return nil, err
	}

	registry := o.registry
	if registry == nil {
		app.Registry = patentsview.New(patentsview.Config{
			BaseURL:       cfg.Registry.BaseURL,
			APIKey:        cfg.Registry.APIKey,
			UserAgent:     cfg.Registry.UserAgent,
			Timeout:       cfg.Registry.Timeout,
			RetryMax:      cfg.Registry.RetryMax,
			RetryWait:     cfg.Registry.RetryWait,
			RatePerSecond: cfg.Registry.RatePerSecond,
			Burst:         cfg.Registry.Burst,
		}, logger, patentsview.WithMetrics(app.Metrics))
		registry = app.Registry
	}
	if cfg.Cache.Enabled && app.redis != nil {
		cache := redis.NewRedisCache(app.redis, logger, redis.WithDefaultTTL(cfg.Cache.RegistryTTL))
		registry = redis.NewCachedRegistry(registry, cache, cfg.Cache.RegistryTTL, app.Metrics, logger)
	}

	documents := o.documents
	if documents == nil {
		if app.Documents, err = app.buildDocuments(); err != nil {
			return nil, err
		}
		documents = app.Documents
	}

	analyzer := o.analyzer
	if analyzer == nil {
		app.Analyzer = family_llm.NewAnthropicClient(family_llm.AnthropicConfig{
			BaseURL:       cfg.Analysis.BaseURL,
			APIKey:        cfg.Analysis.APIKey,
			Model:         cfg.Analysis.Model,
			MaxTokens:     cfg.Analysis.MaxTokens,
			Timeout:       cfg.Analysis.Timeout,
			RetryMax:      cfg.Analysis.RetryMax,
			RatePerSecond: cfg.Analysis.RatePerSecond,
		}, logger, family_llm.WithMetrics(app.Metrics))
		analyzer = app.Analyzer
	}
	app.Engine = family_llm.NewEngine(analyzer, logger)

	orchestrator := acquisition.NewOrchestrator(registry, documents, logger,
		acquisition.WithDocumentBase(cfg.Documents.BaseURL),
		acquisition.WithMetrics(app.Metrics))

	machineOpts := []enrichment.Option{enrichment.WithMetrics(app.Metrics)}
	if app.Publisher != nil {
		machineOpts = append(machineOpts, enrichment.WithObserver(app.Publisher))
	}
	app.Machine = enrichment.NewMachine(app.Store, app.Engine, logger, machineOpts...)

	importOpts := []importer.Option{
		importer.WithPacing(cfg.Importer.PacingDelay),
		importer.WithClearWatch(app.Store),
		importer.WithJobStore(app.Jobs),
		importer.WithSession(cfg.Store.SessionKey),
		importer.WithMetrics(app.Metrics),
	}
	if app.redis != nil {
		importOpts = append(importOpts, importer.WithLock(
			redis.NewImportLock(app.redis, cfg.Store.SessionKey, cfg.Importer.LockTTL, logger)))
	}
	if app.Publisher != nil {
		importOpts = append(importOpts, importer.WithProgressPublisher(app.Publisher))
	}
	app.Family = appFamily.NewService(app.Store, orchestrator, app.Machine, logger,
		appFamily.WithSession(cfg.Store.SessionKey),
		appFamily.WithMetrics(app.Metrics),
		appFamily.WithImporterOptions(importOpts...))

	app.Analysis = analysis.NewService(app.Store, app.Engine, logger,
		analysis.WithDiffer(analysis.NewWordDiffer()))

	logger.Info("pipeline ready",
		logging.String("store", cfg.Store.Backend),
		logging.String("session", cfg.Store.SessionKey),
		logging.Bool("kafka", app.Publisher != nil),
		logging.Bool("registry_cache", cfg.Cache.Enabled),
		logging.Bool("metrics", app.Metrics != nil))
	return app, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Backends
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) initMetrics() error {
	if !a.Config.Metrics.Enabled {
		return nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            a.Config.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	a.Collector = collector
	a.Metrics = prometheus.NewAppMetrics(collector)
	return nil
}

func (a *App) initBackends() error {
	cfg := a.Config
	if cfg.NeedsRedis() {
		client, err := redis.NewClient(&cfg.Redis, a.Logger)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		a.redis = client
		a.closers = append(a.closers, client.Close)
		a.pingers["redis"] = client
	}

	if cfg.Store.Backend == config.BackendPostgres {
		if cfg.Postgres.AutoMigrate {
			if err := postgres.RunMigrations(cfg.Postgres); err != nil {
				return fmt.Errorf("postgres migrations: %w", err)
			}
		}
		pool, err := postgres.NewConnectionPool(cfg.Postgres, a.Logger)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		a.pool = pool
		a.closers = append(a.closers, func() error { postgres.Close(pool); return nil })
	}

	if cfg.NeedsMinIO() {
		client, err := minio.NewClient(cfg.MinIO, a.Logger)
		if err != nil {
			return fmt.Errorf("minio: %w", err)
		}
		a.minio = client
		a.closers = append(a.closers, client.Close)
		a.pingers["minio"] = client
	}
	return nil
}

func (a *App) buildStore() (family.Store, error) {
	cfg := a.Config
	session := cfg.Store.SessionKey
	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		return local.NewMemoryStore(), nil
	case config.BackendFile:
		return local.NewFileStore(cfg.Store.FilePath, a.Logger), nil
	case config.BackendRedis:
		return redis.NewFamilyStore(a.redis, session, a.Logger, redis.WithStoreMetrics(a.Metrics)), nil
	case config.BackendPostgres:
		return postgres.NewFamilyStore(a.pool, session, a.Metrics, a.Logger), nil
	case config.BackendMinIO:
		return minio.NewFamilyStore(a.minio, session, a.Metrics, a.Logger), nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Store.Backend)
	}
}

// buildJobStore keeps import reports next to the collection when the store
// is SQL; every other backend keeps them in process.
func (a *App) buildJobStore() importer.JobStore {
	if a.pool != nil {
		return postgres.NewJobStore(a.pool, a.Config.Store.SessionKey)
	}
	return importer.NewMemoryJobStore()
}

func (a *App) buildDocuments() (*gpatents.Client, error) {
	cfg := a.Config.Documents
	policy := family.DefaultSectionPolicy()
	if len(cfg.IncludePatterns) > 0 || len(cfg.ExcludePatterns) > 0 {
		p, err := family.NewSectionPolicy(cfg.IncludePatterns, cfg.ExcludePatterns)
		if err != nil {
			return nil, fmt.Errorf("documents: %w", err)
		}
		policy = p
	}
	opts := []gpatents.Option{gpatents.WithMetrics(a.Metrics), gpatents.WithPolicy(policy)}
	if cfg.Archive && a.minio != nil {
		opts = append(opts, gpatents.WithArchive(a.minio))
	}
	return gpatents.New(gpatents.Config{
		BaseURL:       cfg.BaseURL,
		Suffixes:      cfg.Suffixes,
		UserAgent:     cfg.UserAgent,
		Timeout:       cfg.Timeout,
		RatePerSecond: cfg.RatePerSecond,
		Burst:         cfg.Burst,
	}, a.Logger, opts...), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Kafka
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) initKafka(ctx context.Context) error {
	cfg := a.Config.Kafka
	if !cfg.Enabled {
		return nil
	}
	a.Topics = kafka.TopicsFromConfig(cfg)

	if cfg.AutoCreate {
		tm, err := kafka.NewTopicManager(cfg.Brokers, a.Logger)
		if err != nil {
			return fmt.Errorf("kafka topics: %w", err)
		}
		err = tm.EnsureTopics(ctx, kafka.DefaultTopics(a.Topics))
		_ = tm.Close()
		if err != nil {
			return fmt.Errorf("kafka topics: %w", err)
		}
	}

	producer, err := kafka.NewProducer(ProducerConfig(cfg), a.Logger)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	a.Publisher = kafka.NewEventPublisher(producer, a.Topics, EventSource, a.Logger)
	a.closers = append(a.closers, a.Publisher.Close)
	return nil
}

// ProducerConfig maps the kafka section onto producer settings.
func ProducerConfig(cfg config.KafkaConfig) kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		Acks:          "all",
		WriteTimeout:  cfg.WriteTimeout,
		SASLEnabled:   cfg.SASLMechanism != "",
		SASLMechanism: cfg.SASLMechanism,
		SASLUsername:  cfg.SASLUsername,
		SASLPassword:  cfg.SASLPassword,
		TLSEnabled:    cfg.TLSEnabled,
		TLSCertPath:   cfg.TLSCAFile,
	}
}

// ConsumerConfig maps the kafka section onto the import consumer settings.
// Exhausted messages go to the dead letter topic.
func ConsumerConfig(cfg config.KafkaConfig, topics kafka.Topics) kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topics:          []string{topics.Import},
		AutoOffsetReset: "earliest",
		SASLEnabled:     cfg.SASLMechanism != "",
		SASLMechanism:   cfg.SASLMechanism,
		SASLUsername:    cfg.SASLUsername,
		SASLPassword:    cfg.SASLPassword,
		TLSEnabled:      cfg.TLSEnabled,
		TLSCertPath:     cfg.TLSCAFile,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      3,
			RetryBackoff:    time.Second,
			MaxRetryBackoff: 10 * time.Second,
			DeadLetterTopic: topics.DeadLetter,
		},
	}
}

// ImportRunner runs queued import requests for this App's session.
// Requests for another session are dropped with a warning, since each
// worker serves exactly one collection.
func (a *App) ImportRunner() kafka.ImportRunner {
	log := a.Logger.Named("import_runner")
	return func(ctx context.Context, req *family.ImportRequestedEvent) error {
		if req.SessionKey != "" && req.SessionKey != a.Config.Store.SessionKey {
			log.Warn("dropping import for another session",
				logging.String("job_id", req.JobID),
				logging.String("session", req.SessionKey))
			return nil
		}
		report, err := a.Family.ImportJob(ctx, req.JobID, req.Identifiers)
		if err != nil {
			return err
		}
		log.Info("import job finished",
			logging.String("job_id", report.JobID),
			logging.Int("added", report.Added),
			logging.Int("failed", report.Failed),
			logging.Bool("cancelled", report.Cancelled))
		return nil
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Runtime
// ─────────────────────────────────────────────────────────────────────────────

// Pingers returns the remote dependencies readiness should check, by name.
func (a *App) Pingers() map[string]family.Pinger {
	out := make(map[string]family.Pinger, len(a.pingers))
	for k, v := range a.pingers {
		out[k] = v
	}
	return out
}

// Reload applies the hot-reloadable settings of cfg: log level, importer
// pacing and source rates.  Everything else needs a restart.
func (a *App) Reload(cfg *config.Config) {
	if level, err := logging.ParseLevel(cfg.Log.Level); err == nil {
		if logging.SetLevel(a.Logger, level) {
			a.Logger.Info("log level changed", logging.String("level", level.String()))
		}
	}
	a.Family.Importer().SetPacing(cfg.Importer.PacingDelay)
	if a.Registry != nil {
		a.Registry.SetRate(cfg.Registry.RatePerSecond, cfg.Registry.Burst)
	}
	if a.Documents != nil {
		a.Documents.SetRate(cfg.Documents.RatePerSecond, cfg.Documents.Burst)
	}
	if a.Analyzer != nil {
		a.Analyzer.SetRate(cfg.Analysis.RatePerSecond)
	}
	a.Logger.Info("configuration reloaded",
		logging.Duration("pacing", cfg.Importer.PacingDelay),
		logging.Float64("registry_rate", cfg.Registry.RatePerSecond))
}

// Close releases every backend in reverse order of opening.
func (a *App) Close() error {
	var errs []string
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err.Error())
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("bootstrap: close: %s", strings.Join(errs, "; "))
	}
	return nil
}

//Personal.AI order the ending
