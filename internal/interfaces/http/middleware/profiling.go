package middleware

import (
	"context"
	"strings"

	"github.com/backoffice/installments/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig selects the requests that get profiling labels
type ProfilingConfig struct {
	Enabled          bool
	SkipPaths        []string // exact paths such as health checks
	SkipPathPrefixes []string
}

// DefaultProfilingConfig skips health checks and the swagger UI
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:          true,
		SkipPaths:        []string{"/health", "/healthz", "/ready"},
		SkipPathPrefixes: []string{"/swagger"},
	}
}

// ProfilingWithConfig labels the handler goroutine with the resource, route
// and method so profiles can be sliced per endpoint.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		labels := telemetry.ProfileLabels{
			Resource: resourceOfRoute(route),
			Route:    route,
			Method:   c.Request.Method,
		}
		telemetry.Profile(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceOfRoute names the API collection a route serves.
// "/api/v1/obligations/:id/payments" -> "payments", "/api/v1/obligations/summary" -> "obligations"
func resourceOfRoute(route string) string {
	resource := ""
	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isVersionSegment(part) {
			continue
		}
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "*") {
			continue
		}
		// payments nest under obligations; documents are their own collection
		if resource == "" || part == "payments" {
			resource = part
		}
	}
	return resource
}

// isVersionSegment reports whether a path segment is an API version (v1, v2, ...)
func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}
