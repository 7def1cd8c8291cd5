package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/backoffice/installments/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func labelsSeenBy(cfg ProfilingConfig, method, route, target string) map[string]string {
	seen := map[string]string{}
	router := gin.New()
	router.Use(ProfilingWithConfig(cfg))
	router.Handle(method, route, func(c *gin.Context) {
		for _, key := range []string{telemetry.ProfilingLabelResource, telemetry.ProfilingLabelRoute, telemetry.ProfilingLabelMethod} {
			if v, ok := pprof.Label(c.Request.Context(), key); ok {
				seen[key] = v
			}
		}
		c.Status(http.StatusOK)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, target, nil))
	return seen
}

func TestProfilingWithConfig_Labels(t *testing.T) {
	seen := labelsSeenBy(DefaultProfilingConfig(), http.MethodPost,
		"/api/v1/obligations/:id/payments", "/api/v1/obligations/abc/payments")

	assert.Equal(t, "payments", seen[telemetry.ProfilingLabelResource])
	assert.Equal(t, "/api/v1/obligations/:id/payments", seen[telemetry.ProfilingLabelRoute])
	assert.Equal(t, http.MethodPost, seen[telemetry.ProfilingLabelMethod])
}

func TestProfilingWithConfig_Skips(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		seen := labelsSeenBy(ProfilingConfig{Enabled: false}, http.MethodGet, "/api/v1/obligations", "/api/v1/obligations")
		assert.Empty(t, seen)
	})

	t.Run("health path", func(t *testing.T) {
		seen := labelsSeenBy(DefaultProfilingConfig(), http.MethodGet, "/health", "/health")
		assert.Empty(t, seen)
	})

	t.Run("swagger prefix", func(t *testing.T) {
		seen := labelsSeenBy(DefaultProfilingConfig(), http.MethodGet, "/swagger/*any", "/swagger/index.html")
		assert.Empty(t, seen)
	})
}

func TestResourceOfRoute(t *testing.T) {
	tests := map[string]string{
		"/api/v1/obligations":                              "obligations",
		"/api/v1/obligations/:id":                          "obligations",
		"/api/v1/obligations/summary":                      "obligations",
		"/api/v1/obligations/:id/payments":                 "payments",
		"/api/v1/obligations/:id/payments/validate":        "payments",
		"/api/v1/obligations/:id/payments/:paymentId":      "payments",
		"/health":                                          "health",
		"/api/v2":                                          "",
		"":                                                 "",
	}
	for route, expected := range tests {
		assert.Equal(t, expected, resourceOfRoute(route), route)
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("vx"))
	assert.False(t, isVersionSegment("obligations"))
}
