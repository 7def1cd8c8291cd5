package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

// DBMetricsConfig holds configuration for database metrics collection.
type DBMetricsConfig struct {
	Enabled            bool
	SlowQueryThreshold time.Duration // default 200ms
}

// DefaultDBMetricsConfig returns default configuration for database metrics.
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{Enabled: true, SlowQueryThreshold: defaultSlowQueryThreshold}
}

// DBMetrics records per-statement counters and, once ObservePool is called,
// reports connection pool state each time metrics are collected.
type DBMetrics struct {
	meter     metric.Meter
	threshold time.Duration
	logger    *zap.Logger

	queries  *Counter
	duration *Histogram
	slow     *Counter

	pool metric.Registration
}

// NewDBMetrics creates the statement instruments on meter.
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &DBMetrics{
		meter:     meter,
		threshold: cfg.SlowQueryThreshold,
		logger:    logger,
	}
	if m.threshold <= 0 {
		m.threshold = defaultSlowQueryThreshold
	}

	var err error
	if m.queries, err = NewCounter(meter, "db_query_total",
		"SQL statements executed, by operation and table", "{query}"); err != nil {
		return nil, err
	}
	if m.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "SQL statement latency in seconds",
		Unit:        "s",
		Boundaries:  StoreDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slow, err = NewCounter(meter, "db_slow_query_total",
		"SQL statements slower than the slow query threshold", "{query}"); err != nil {
		return nil, err
	}
	return m, nil
}

// ObservePool reports the sql.DB pool on every collection: connections by
// state, the configured maximum, and how often and how long callers waited
// for a free connection. Row locks taken while registering payments show up
// here as waits.
func (m *DBMetrics) ObservePool(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("observe pool: nil sql.DB")
	}
	connections, err := m.meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pool connections by state"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxOpen, err := m.meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Configured maximum of open connections, zero for unlimited"), metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	waits, err := m.meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Times a caller waited for a free connection"), metric.WithUnit("{wait}"))
	if err != nil {
		return err
	}
	waited, err := m.meter.Float64ObservableCounter("db_pool_wait_duration_seconds",
		metric.WithDescription("Total time spent waiting for a free connection"), metric.WithUnit("s"))
	if err != nil {
		return err
	}

	m.pool, err = m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(connections, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(connections, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		o.ObserveInt64(maxOpen, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waits, stats.WaitCount)
		o.ObserveFloat64(waited, stats.WaitDuration.Seconds())
		return nil
	}, connections, maxOpen, waits, waited)
	if err != nil {
		return err
	}
	m.logger.Debug("observing database connection pool", zap.Int("max_open", sqlDB.Stats().MaxOpenConnections))
	return nil
}

// Close stops pool observation. It is safe to call when ObservePool never ran.
func (m *DBMetrics) Close() error {
	if m.pool == nil {
		return nil
	}
	err := m.pool.Unregister()
	m.pool = nil
	return err
}

// RecordQuery counts one statement, its latency and whether it was slow.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, elapsed time.Duration) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}
	if table == "" {
		table = "unknown"
	}
	op, tbl := AttrDBOperation.String(operation), AttrDBTable.String(table)

	m.queries.Inc(ctx, op, tbl)
	m.duration.RecordDuration(ctx, elapsed, op)
	if elapsed > m.threshold {
		m.slow.Inc(ctx, tbl)
	}
}

// DBMetricsPlugin is a GORM plugin that feeds DBMetrics.
type DBMetricsPlugin struct {
	metrics *DBMetrics
}

// NewDBMetricsPlugin creates a new GORM plugin for database metrics.
func NewDBMetricsPlugin(metrics *DBMetrics) *DBMetricsPlugin {
	return &DBMetricsPlugin{metrics: metrics}
}

// Name implements gorm.Plugin.
func (p *DBMetricsPlugin) Name() string {
	return "db_metrics"
}

// Initialize implements gorm.Plugin.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	return registerAround(db, "db_metrics", markQueryStart, func(tx *gorm.DB, hook gormHook) {
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		operation := hook.operation
		if operation == "" {
			operation = sqlVerb(tx.Statement.SQL.String())
		}
		elapsed, _ := queryElapsed(ctx)
		p.metrics.RecordQuery(ctx, operation, tx.Statement.Table, elapsed)
	})
}

// sqlVerb reads the verb of a Row/Raw statement
func sqlVerb(statement string) string {
	statement = strings.ToUpper(strings.TrimSpace(statement))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(statement, verb) {
			return verb
		}
	}
	return "OTHER"
}

// RegisterDBMetrics installs the GORM plugin and starts observing the pool of
// db. It returns nil, nil when metrics are disabled; otherwise the caller
// closes the result on shutdown.
func RegisterDBMetrics(db *gorm.DB, meterProvider *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled || meterProvider == nil || !meterProvider.IsEnabled() {
		logger.Debug("database metrics disabled")
		return nil, nil
	}

	metrics, err := NewDBMetrics(meterProvider.Meter("db.client"), cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Use(NewDBMetricsPlugin(metrics)); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := metrics.ObservePool(sqlDB); err != nil {
		return nil, err
	}

	logger.Info("database metrics registered", zap.Duration("slow_query_threshold", metrics.threshold))
	return metrics, nil
}
