package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/pkg/types/common"
)

// HealthChecker is a component that can report its health.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

type pingChecker struct {
	name string
	p    family.Pinger
}

func (c pingChecker) Name() string                    { return c.name }
func (c pingChecker) Check(ctx context.Context) error { return c.p.Ping(ctx) }

// PingChecker adapts a store, cache or broker with a Ping method.
func PingChecker(name string, p family.Pinger) HealthChecker {
	return pingChecker{name: name, p: p}
}

// PingCheckers adapts every entry of pingers, in name order.
func PingCheckers(pingers map[string]family.Pinger) []HealthChecker {
	names := make([]string, 0, len(pingers))
	for name := range pingers {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]HealthChecker, 0, len(names))
	for _, name := range names {
		out = append(out, PingChecker(name, pingers[name]))
	}
	return out
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
	timeout  time.Duration
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
		timeout:  3 * time.Second,
	}
}

// LivenessResponse is the body of GET /healthz.
type LivenessResponse struct {
	Status  common.HealthStatus `json:"status"`
	Version string              `json:"version"`
	Uptime  string              `json:"uptime"`
}

// ReadinessResponse is the body of GET /readyz.
type ReadinessResponse struct {
	Status     common.HealthStatus      `json:"status"`
	Components []common.ComponentHealth `json:"components"`
}

// Liveness never checks dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  common.HealthUp,
		Version: h.version,
		Uptime:  time.Since(h.startAt).Round(time.Second).String(),
	})
}

// Readiness pings every checker concurrently and answers 503 when any is
// down.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	components := h.checkAll(ctx)
	resp := ReadinessResponse{Status: common.HealthUp, Components: components}
	status := http.StatusOK
	for _, comp := range components {
		if comp.Status != common.HealthUp {
			resp.Status = common.HealthDown
			status = http.StatusServiceUnavailable
			break
		}
	}
	c.JSON(status, resp)
}

func (h *HealthHandler) checkAll(ctx context.Context) []common.ComponentHealth {
	out := make([]common.ComponentHealth, len(h.checkers))
	var wg sync.WaitGroup
	for i, chk := range h.checkers {
		wg.Add(1)
		go func(i int, chk HealthChecker) {
			defer wg.Done()
			start := time.Now()
			err := chk.Check(ctx)
			comp := common.ComponentHealth{
				Name:    chk.Name(),
				Status:  common.HealthUp,
				Latency: time.Since(start).String(),
			}
			if err != nil {
				comp.Status = common.HealthDown
				comp.Message = err.Error()
			}
			out[i] = comp
		}(i, chk)
	}
	wg.Wait()
	return out
}

//Personal.AI order the ending
