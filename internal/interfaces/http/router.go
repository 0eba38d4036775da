// Package http assembles the gin engine and server of the FamilyScope API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/internal/interfaces/http/handlers"
	"github.com/turtacn/FamilyScope/internal/interfaces/http/middleware"
	"github.com/turtacn/FamilyScope/pkg/errors"
	"github.com/turtacn/FamilyScope/pkg/types/common"
)

// RouterConfig aggregates the handlers and middleware the route tree needs.
// Nil entries are skipped.
type RouterConfig struct {
	Mode string // gin mode: debug | release | test

	// Handlers
	FamilyHandler *handlers.FamilyHandler
	HealthHandler *handlers.HealthHandler

	// Middleware
	CORS        *middleware.CORSConfig
	Logging     middleware.LoggingConfig
	RateLimiter *middleware.Limiter
	RateLimit   middleware.RateLimitConfig

	// Infrastructure
	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.AppMetrics
	MetricsPath      string
}

// NewRouter builds the gin engine: global middleware, probes, metrics and
// the /api/v1 resource groups.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// --- Global middleware ---
	r.Use(recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(logger.Named("http"), cfg.Logging))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit))
	}

	r.NoRoute(func(c *gin.Context) { abortWithCode(c, errors.ErrCodeNotFound) })
	r.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, common.ErrorResponse{Error: common.ErrorDetail{
			Code: errors.ErrCodeBadRequest.String(), Message: "method not allowed",
		}})
	})

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}

	// --- Metrics ---
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	// --- API v1 ---
	api := r.Group("/api/v1")
	if cfg.FamilyHandler != nil {
		cfg.FamilyHandler.RegisterRoutes(api)
	}

	return r
}

// recovery turns panics into a logged 500 with the standard envelope.
func recovery(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.Error("panic recovered",
			logging.Any("panic", rec),
			logging.String("path", c.Request.URL.Path),
			logging.String("request_id", logging.RequestIDFromContext(c.Request.Context())))
		abortWithCode(c, errors.ErrCodeInternal)
	})
}

func abortWithCode(c *gin.Context, code errors.ErrorCode) {
	c.AbortWithStatusJSON(errors.HTTPStatusForCode(code), common.ErrorResponse{Error: common.ErrorDetail{
		Code: code.String(), Message: errors.DefaultMessageForCode(code),
	}})
}

//Personal.AI order the ending
