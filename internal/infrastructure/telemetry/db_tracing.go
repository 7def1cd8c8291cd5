package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool          // Enable database tracing
	LogFullSQL      bool          // Include query variables in spans (dev only)
	SlowQueryThresh time.Duration // Threshold for marking queries as slow (default: 200ms)
	DBSystem        string        // Database system name (default: "postgresql")
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:         false,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// gormHook names one GORM processor that issues SQL. operation is empty for
// Row/Raw, where the verb is detected from the statement itself.
type gormHook struct {
	name      string
	operation string
}

var gormHooks = []gormHook{
	{"create", "INSERT"},
	{"query", "SELECT"},
	{"update", "UPDATE"},
	{"delete", "DELETE"},
	{"row", ""},
	{"raw", ""},
}

// callbackRegistrar is satisfied by GORM's unexported callback builder.
type callbackRegistrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

// hookPoint positions a callback before or after the built-in callback of the
// named processor. After-callbacks also run before otelgorm closes its span.
func hookPoint(db *gorm.DB, hook string, before bool) callbackRegistrar {
	builtin := "gorm:" + hook
	otelAfter := "otel:after:" + hook
	cb := db.Callback()
	switch hook {
	case "create":
		if before {
			return cb.Create().Before(builtin)
		}
		return cb.Create().After(builtin).Before(otelAfter)
	case "query":
		if before {
			return cb.Query().Before(builtin)
		}
		return cb.Query().After(builtin).Before(otelAfter)
	case "update":
		if before {
			return cb.Update().Before(builtin)
		}
		return cb.Update().After(builtin).Before(otelAfter)
	case "delete":
		if before {
			return cb.Delete().Before(builtin)
		}
		return cb.Delete().After(builtin).Before(otelAfter)
	case "row":
		if before {
			return cb.Row().Before(builtin)
		}
		return cb.Row().After(builtin).Before(otelAfter)
	default:
		if before {
			return cb.Raw().Before(builtin)
		}
		return cb.Raw().After(builtin).Before(otelAfter)
	}
}

// registerAround installs before/after callbacks on every SQL-issuing
// processor under the given prefix.
func registerAround(db *gorm.DB, prefix string, before func(*gorm.DB), after func(*gorm.DB, gormHook)) error {
	for _, hook := range gormHooks {
		if err := hookPoint(db, hook.name, true).Register(prefix+":before_"+hook.name, before); err != nil {
			return err
		}
		afterFn := func(tx *gorm.DB) { after(tx, hook) }
		if err := hookPoint(db, hook.name, false).Register(prefix+":after_"+hook.name, afterFn); err != nil {
			return err
		}
	}
	return nil
}

// DBTracingPlugin wraps otelgorm plugin with custom slow query detection.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm registers the otelgorm plugin with the given GORM DB instance,
// followed by the slow query and error marking callbacks.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := registerAround(db, "otel_timing", markQueryStart, func(tx *gorm.DB, _ gormHook) {
		p.annotateSpan(tx)
	}); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)

	return nil
}

// annotateSpan adds row counts, the table name, errors and the slow query
// marker to the span otelgorm opened for the statement.
func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(AttrDBTable.String(db.Statement.Table))
	}

	// not-found is an expected answer for FindByID lookups
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if elapsed, ok := queryElapsed(ctx); ok && elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// WithQueryStartTime returns a context with the query start time set.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}

func markQueryStart(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = WithQueryStartTime(ctx)
}

func queryElapsed(ctx context.Context) (time.Duration, bool) {
	start, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}
