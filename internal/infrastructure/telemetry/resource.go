package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const (
	// defaultServiceVersion is reported when no build version is configured
	defaultServiceVersion = "dev"

	// providerShutdownTimeout bounds the final flush of each signal pipeline
	providerShutdownTimeout = 10 * time.Second
)

// Endpoint identifies the OTLP collector every signal pipeline exports to.
type Endpoint struct {
	CollectorEndpoint string
	Insecure          bool
}

// ServiceIdentity is stamped on every exported span, metric point and log record.
type ServiceIdentity struct {
	ServiceName    string
	ServiceVersion string
}

func (s ServiceIdentity) version() string {
	if s.ServiceVersion == "" {
		return defaultServiceVersion
	}
	return s.ServiceVersion
}

// resource merges the SDK defaults (host, process, telemetry.sdk) with the
// service identity.
func (s ServiceIdentity) resource() (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(s.ServiceName),
			semconv.ServiceVersion(s.version()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s resource: %w", s.ServiceName, err)
	}
	return res, nil
}

// shutdownPipeline flushes and stops one signal pipeline. A nil shutdown means
// the signal was disabled and there is nothing to flush.
func shutdownPipeline(ctx context.Context, logger *zap.Logger, signal string, shutdown func(context.Context) error) error {
	if shutdown == nil {
		logger.Debug("Telemetry pipeline disabled, nothing to flush", zap.String("signal", signal))
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, providerShutdownTimeout)
	defer cancel()

	if err := shutdown(shutdownCtx); err != nil {
		logger.Error("Telemetry pipeline shutdown failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("failed to shutdown %s pipeline: %w", signal, err)
	}

	logger.Info("Telemetry pipeline flushed", zap.String("signal", signal))
	return nil
}
