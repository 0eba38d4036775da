// Command worker consumes import requests from Kafka and runs them against
// one family collection.  It exposes /healthz, /readyz and /metrics on a
// separate port for probes.
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
	"github.com/turtacn/FamilyScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/FamilyScope/internal/interfaces/http"
	"github.com/turtacn/FamilyScope/internal/interfaces/http/handlers"
	"github.com/turtacn/FamilyScope/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

const (
	defaultHealthPort = 8081
	startupTimeout    = 30 * time.Second
	drainTimeout      = 2 * time.Minute
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: FAMSCOPE_* environment only)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for health and metrics endpoints, 0 disables")
	flag.Parse()

	if err := run(*configPath, *healthPort); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, healthPort int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka.enabled is false; the worker has nothing to consume")
	}

	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	startCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	app, err := bootstrap.New(startCtx, cfg, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	consumer, err := kafka.NewConsumer(bootstrap.ConsumerConfig(cfg.Kafka, app.Topics), logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.Subscribe(app.Topics.Import, kafka.NewImportHandler(app.ImportRunner(), logger))

	logger.Info("starting FamilyScope worker",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.String("topic", app.Topics.Import),
		logging.String("group", cfg.Kafka.GroupID),
		logging.String("session", cfg.Store.SessionKey),
	)

	var healthSrv *httpserver.Server
	if healthPort > 0 {
		healthSrv = newHealthServer(app, healthPort)
		go func() {
			if err := healthSrv.Start(); err != nil {
				logger.Error("health server error", logging.Err(err))
			}
		}()
	}

	if configPath != "" {
		err := config.Watch(configPath, app.Reload, func(err error) {
			logger.Warn("ignoring invalid configuration change", logging.Err(err))
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if err := consumer.Start(ctx); err != nil {
		return err
	}

	// Records left mid-way by a process that died are finished here.
	go func() {
		if _, err := app.Machine.ResumeAll(ctx); err != nil {
			logger.Warn("resuming interrupted records failed", logging.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	sig := <-quit
	logger.Info("received shutdown signal", logging.String("signal", sig.String()))

	// Stop fetching; the message in hand finishes or is cancelled.
	stop()
	done := make(chan struct{})
	go func() {
		consumer.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("consumer drained")
		if err := consumer.Close(); err != nil {
			logger.Warn("kafka consumer close", logging.Err(err))
		}
	case <-time.After(drainTimeout):
		// Close would wait on the same loop.
		logger.Warn("drain timeout exceeded, forcing exit")
	}

	if healthSrv != nil {
		if err := healthSrv.Stop(context.Background()); err != nil {
			logger.Error("health server shutdown error", logging.Err(err))
		}
	}

	logger.Info("FamilyScope worker stopped",
		logging.Int64("processed", consumer.Processed()),
		logging.Int64("failed", consumer.Failed()),
		logging.Int64("dead_lettered", consumer.DeadLettered()))
	return nil
}

func newHealthServer(app *bootstrap.App, port int) *httpserver.Server {
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Mode:             "release",
		HealthHandler:    handlers.NewHealthHandler(version, handlers.PingCheckers(app.Pingers())...),
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           app.Logger,
		MetricsCollector: app.Collector,
		MetricsPath:      app.Config.Metrics.Path,
	})
	return httpserver.NewServer(config.ServerConfig{
		Port:            port,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}, router, app.Logger)
}

//Personal.AI order the ending
