package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	// embedded zone database so the business time zone resolves in scratch images
	_ "time/tzdata"

	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Log            LogConfig            `mapstructure:"log"`
	Event          EventConfig          `mapstructure:"event"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Swagger        SwaggerConfig        `mapstructure:"swagger"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Port    string `mapstructure:"port"`
	Version string `mapstructure:"version"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres, sqlite
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // in minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // in minutes
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port address of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// EventConfig holds event delivery configuration
type EventConfig struct {
	// OutboxEnabled stores events in the outbox table inside the payment transaction
	// and delivers them from a background processor. When false events are
	// published to the bus right after the store call returns.
	OutboxEnabled    bool          `mapstructure:"outbox_enabled"`
	BatchSize        int           `mapstructure:"batch_size"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxRetries       int           `mapstructure:"max_retries"`
	StaleAfter       time.Duration `mapstructure:"stale_after"` // requeue entries left PROCESSING by a dead worker
	CleanupEnabled   bool          `mapstructure:"cleanup_enabled"`
	CleanupRetention time.Duration `mapstructure:"cleanup_retention"`
	CleanupInterval  time.Duration `mapstructure:"cleanup_interval"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	MaxBodySize       int64         `mapstructure:"max_body_size"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	CORSAllowOrigins  []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods  []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders  []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies"`
}

// ReconciliationConfig holds the business rules of payment reconciliation
type ReconciliationConfig struct {
	DueSoonHorizonDays int    `mapstructure:"due_soon_horizon_days"`
	DefaultCurrency    string `mapstructure:"default_currency"`
	Timezone           string `mapstructure:"timezone"`
	// IdempotencyBackend selects where Idempotency-Key claims live: memory or redis
	IdempotencyBackend string        `mapstructure:"idempotency_backend"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`
	// SweepEnabled persists derived statuses once a day
	SweepEnabled  bool   `mapstructure:"sweep_enabled"`
	SweepSchedule string `mapstructure:"sweep_schedule"` // "minute hour * * *"
	// PortfolioMetricsInterval is how often the open portfolio gauges are refreshed; 0 disables
	PortfolioMetricsInterval time.Duration `mapstructure:"portfolio_metrics_interval"`
}

// Location loads the configured business time zone
func (r ReconciliationConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("reconciliation.timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// AllowedIPs restricts the docs to these client IPs; empty allows all
	AllowedIPs []string `mapstructure:"allowed_ips"`
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"` // traces
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SamplingRatio     float64 `mapstructure:"sampling_ratio"` // 0.0 to 1.0
	ServiceName       string  `mapstructure:"service_name"`   // defaults to app.name
	Insecure          bool    `mapstructure:"insecure"`

	MetricsEnabled        bool          `mapstructure:"metrics_enabled"`
	MetricsExportInterval time.Duration `mapstructure:"metrics_export_interval"`
	LogsEnabled           bool          `mapstructure:"logs_enabled"`

	// otelgorm spans; full SQL puts bound amounts into traces
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`

	ProfilingEnabled    bool     `mapstructure:"profiling_enabled"`
	PyroscopeAddress    string   `mapstructure:"pyroscope_address"`
	PyroscopeUser       string   `mapstructure:"pyroscope_user"`
	PyroscopePassword   string   `mapstructure:"pyroscope_password"`
	ProfileTypes        []string `mapstructure:"profile_types"`
	SpanProfilesEnabled bool     `mapstructure:"span_profiles_enabled"`
}

// defaults lists every key with its built-in value. A key must be listed,
// even with a zero value, for its INST_ variable to reach Unmarshal.
var defaults = map[string]any{
	"app.name":    "installments",
	"app.env":     "development",
	"app.port":    "8080",
	"app.version": "",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "installments",
	"database.sslmode":            "disable",
	"database.sqlite_path":        "installments.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.auto_migrate":       false,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"event.outbox_enabled":    true,
	"event.batch_size":        100,
	"event.poll_interval":     2 * time.Second,
	"event.max_retries":       5,
	"event.stale_after":       5 * time.Minute,
	"event.cleanup_enabled":   true,
	"event.cleanup_retention": 7 * 24 * time.Hour,
	"event.cleanup_interval":  time.Hour,

	"http.read_timeout":        15 * time.Second,
	"http.write_timeout":       15 * time.Second,
	"http.idle_timeout":        60 * time.Second,
	"http.shutdown_timeout":    30 * time.Second,
	"http.max_header_bytes":    1 << 20,
	"http.max_body_size":       int64(1 << 20),
	"http.rate_limit_enabled":  false,
	"http.rate_limit_requests": 100,
	"http.rate_limit_window":   time.Minute,
	// no origin fallback: an empty list allows no cross-origin requests
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "DELETE", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"},
	"http.trusted_proxies":    []string{},

	"reconciliation.due_soon_horizon_days":      7,
	"reconciliation.default_currency":           "PEN",
	"reconciliation.timezone":                   "America/Lima",
	"reconciliation.idempotency_backend":        "memory",
	"reconciliation.idempotency_ttl":            24 * time.Hour,
	"reconciliation.sweep_enabled":              true,
	"reconciliation.sweep_schedule":             "5 0 * * *",
	"reconciliation.portfolio_metrics_interval": time.Duration(0),

	"swagger.enabled":     true,
	"swagger.allowed_ips": []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_export_interval": 60 * time.Second,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	"telemetry.profiling_enabled":       false,
	"telemetry.pyroscope_address":       "http://localhost:4040",
	"telemetry.pyroscope_user":          "",
	"telemetry.pyroscope_password":      "",
	"telemetry.profile_types":           []string{},
	"telemetry.span_profiles_enabled":   false,
}

// Load reads config.toml from the working directory or /app, then lets
// INST_ environment variables override it (INST_DATABASE_PASSWORD sets
// database.password). Keys set nowhere take their built-in default.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("INST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate reports every invalid setting at once
func (c *Config) validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		fail("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		fail("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		fail("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		fail("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Reconciliation.DueSoonHorizonDays < 0 {
		fail("reconciliation.due_soon_horizon_days cannot be negative")
	}
	if currency, ok := valueobject.ParseCurrency(c.Reconciliation.DefaultCurrency); !ok || !currency.IsSupported() {
		fail("reconciliation.default_currency must be one of %v, got %q",
			valueobject.SupportedCurrencies(), c.Reconciliation.DefaultCurrency)
	}
	switch c.Reconciliation.IdempotencyBackend {
	case "memory", "redis":
	default:
		fail("reconciliation.idempotency_backend must be memory or redis, got %q", c.Reconciliation.IdempotencyBackend)
	}
	if _, err := c.Reconciliation.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		fail("telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		errs = append(errs, c.productionErrors()...)
	}
	return errors.Join(errs...)
}

// productionErrors lists the settings that are only acceptable outside production
func (c *Config) productionErrors() []error {
	var errs []error
	if c.Database.Driver == "sqlite" {
		errs = append(errs, errors.New("database.driver cannot be sqlite in production"))
	}
	if c.Database.Password == "" {
		errs = append(errs, errors.New("database.password is required in production"))
	}
	if c.Database.SSLMode == "disable" {
		errs = append(errs, errors.New("database.sslmode cannot be 'disable' in production"))
	}
	// the in-memory store does not share claims between replicas
	if c.Reconciliation.IdempotencyBackend == "memory" {
		errs = append(errs, errors.New("reconciliation.idempotency_backend must be redis in production"))
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			errs = append(errs, errors.New("http.cors_allow_origins cannot be '*' in production"))
			break
		}
	}
	if c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
		errs = append(errs, errors.New("swagger endpoint must be disabled or have IP restriction in production"))
	}
	if c.Telemetry.DBLogFullSQL {
		errs = append(errs, errors.New("telemetry.db_log_full_sql must be false in production, statements carry payment amounts"))
	}
	return errs
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
