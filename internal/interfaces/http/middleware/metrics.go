package middleware

import (
	"time"

	"github.com/backoffice/installments/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	attrStatusClass = attribute.Key("http.status_class")
	attrErrorCode   = attribute.Key("error.code")
)

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Enabled       bool
}

type httpInstruments struct {
	requests  *telemetry.Counter
	failures  *telemetry.Counter
	duration  *telemetry.Histogram
	bodySize  *telemetry.Histogram
	replySize *telemetry.Histogram
	inFlight  metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var (
		in  httpInstruments
		err error
	)
	if in.requests, err = telemetry.NewCounter(meter,
		"http_server_request_total", "HTTP requests served", "{request}"); err != nil {
		return nil, err
	}
	if in.failures, err = telemetry.NewCounter(meter,
		"http_server_error_total", "HTTP requests answered with an error envelope, by error code", "{request}"); err != nil {
		return nil, err
	}
	if in.duration, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	// payment bodies are small, the buckets stop well below the body limit
	if in.bodySize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "HTTP request body size in bytes",
		Unit:        "By",
		Boundaries:  []float64{100, 250, 500, 1000, 5000, 10000, 100000},
	}); err != nil {
		return nil, err
	}
	// summaries over many obligations are the largest replies
	if in.replySize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size in bytes",
		Unit:        "By",
		Boundaries:  []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
	}); err != nil {
		return nil, err
	}
	if in.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests being served"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	return &in, nil
}

// HTTPMetrics records request counts, latency and sizes per route. Requests
// that end with an error envelope are also counted by their error code.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), true)
}

// HTTPMetricsWithMeter is HTTPMetrics recording on meter.
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return passThrough
	}
	in, err := newHTTPInstruments(meter)
	if err != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		in.inFlight.Add(ctx, 1)
		defer in.inFlight.Add(ctx, -1)

		c.Next()

		status := c.Writer.Status()
		route := telemetry.AttrHTTPRoute.String(routeOf(c))
		method := telemetry.AttrHTTPMethod.String(c.Request.Method)

		in.requests.Inc(ctx, method, route,
			telemetry.AttrHTTPStatusCode.Int(status),
			attrStatusClass.String(HTTPMetricsStatusGroup(status)))
		if code := GetErrorCode(c); code != "" {
			in.failures.Inc(ctx, route, attrErrorCode.String(code))
		}
		in.duration.RecordDuration(ctx, time.Since(start), method, route)
		if n := c.Request.ContentLength; n > 0 {
			in.bodySize.Record(ctx, float64(n), method, route)
		}
		if n := c.Writer.Size(); n > 0 {
			in.replySize.Record(ctx, float64(n), method, route)
		}
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}

// routeOf returns the matched route pattern, never the raw path
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

// HTTPMetricsStatusGroup returns the class of a status code.
func HTTPMetricsStatusGroup(statusCode int) string {
	if statusCode < 200 || statusCode > 599 {
		return "other"
	}
	return string(rune('0'+statusCode/100)) + "xx"
}
