package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/pkg/types/common"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func healthEngine(h *HealthHandler) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	return r
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler("1.2.3", PingChecker("store", pingFunc(func(context.Context) error { return assert.AnError })))
	w := httptest.NewRecorder()
	healthEngine(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code, "liveness ignores dependencies")
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, common.HealthUp, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestHealthHandler_Readiness(t *testing.T) {
	up := PingChecker("store", pingFunc(func(context.Context) error { return nil }))
	down := PingChecker("cache", pingFunc(func(context.Context) error { return assert.AnError }))

	tests := []struct {
		name     string
		checkers []HealthChecker
		status   int
		overall  common.HealthStatus
	}{
		{"no checkers", nil, http.StatusOK, common.HealthUp},
		{"all up", []HealthChecker{up}, http.StatusOK, common.HealthUp},
		{"one down", []HealthChecker{up, down}, http.StatusServiceUnavailable, common.HealthDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			healthEngine(NewHealthHandler("dev", tt.checkers...)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.status, w.Code)
			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.overall, resp.Status)
			require.Len(t, resp.Components, len(tt.checkers))
			for i, c := range tt.checkers {
				assert.Equal(t, c.Name(), resp.Components[i].Name)
			}
		})
	}
}

func TestPingCheckers_SortedByName(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	got := PingCheckers(map[string]family.Pinger{"store": ok, "cache": ok, "kafka": ok})

	require.Len(t, got, 3)
	assert.Equal(t, "cache", got[0].Name())
	assert.Equal(t, "kafka", got[1].Name())
	assert.Equal(t, "store", got[2].Name())
	assert.NoError(t, got[0].Check(context.Background()))
	assert.Empty(t, PingCheckers(nil))
}

//Personal.AI order the ending
