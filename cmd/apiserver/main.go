// Command apiserver serves the FamilyScope REST API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/FamilyScope/internal/bootstrap"
	"github.com/turtacn/FamilyScope/internal/config"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/FamilyScope/internal/interfaces/http"
	"github.com/turtacn/FamilyScope/internal/interfaces/http/handlers"
	"github.com/turtacn/FamilyScope/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

const startupTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: FAMSCOPE_* environment only)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *httpPort); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting FamilyScope API server",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.String("build_date", buildDate),
		logging.Int("port", cfg.Server.Port),
		logging.String("store", cfg.Store.Backend),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	app, err := bootstrap.New(startCtx, cfg, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	queue, closeQueue := importQueue(app)
	if closeQueue != nil {
		defer closeQueue()
	}

	var limiter *middleware.Limiter
	rateCfg := middleware.DefaultRateLimitConfig()
	if cfg.Server.RateLimit > 0 {
		rateCfg.RequestsPerSecond = cfg.Server.RateLimit
		rateCfg.Burst = cfg.Server.RateBurst
		limiter = middleware.NewLimiter(rateCfg.RequestsPerSecond, rateCfg.Burst, rateCfg.IdleTTL)
	}

	routerCfg := httpserver.RouterConfig{
		Mode:          cfg.Server.Mode,
		FamilyHandler: handlers.NewFamilyHandler(app.Family, app.Analysis, queue, cfg.Store.SessionKey, logger),
		HealthHandler: handlers.NewHealthHandler(version, handlers.PingCheckers(app.Pingers())...),
		Logging:       middleware.DefaultLoggingConfig(),
		RateLimiter:   limiter,
		RateLimit:     rateCfg,
		Logger:        logger,
		Metrics:       app.Metrics,
		MetricsPath:   cfg.Metrics.Path,

		MetricsCollector: app.Collector,
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.CORSOrigins
		routerCfg.CORS = &cors
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	if configPath != "" {
		err := config.Watch(configPath, func(next *config.Config) {
			app.Reload(next)
			if limiter != nil && next.Server.RateLimit > 0 {
				limiter.SetRate(next.Server.RateLimit, next.Server.RateBurst)
			}
			logger.Info("configuration reloaded")
		}, func(err error) {
			logger.Warn("ignoring invalid configuration change", logging.Err(err))
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	logger.Info("server stopped")
	return nil
}

//Personal.AI order the ending
