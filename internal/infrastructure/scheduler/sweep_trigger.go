package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	appinstallment "github.com/backoffice/installments/internal/application/installment"
	"go.uber.org/zap"
)

// StatusSweeper persists the derived status of open obligations
type StatusSweeper interface {
	SweepStatuses(ctx context.Context) (*appinstallment.SweepResult, error)
}

// SweepTriggerConfig holds configuration for the daily status sweep
type SweepTriggerConfig struct {
	// Enabled indicates if the daily sweep runs at all
	Enabled bool
	// Hour and Minute are the wall-clock time (24h) of the daily run
	Hour   int
	Minute int
	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
	// RunTimeout bounds a single sweep
	RunTimeout time.Duration
	// Location is the business time zone the run time is read in
	Location *time.Location
}

// DefaultSweepTriggerConfig returns default sweep trigger configuration.
// Defaults to running at 00:05 daily, right after the business date rolls over.
func DefaultSweepTriggerConfig() SweepTriggerConfig {
	return SweepTriggerConfig{
		Enabled:       true,
		Hour:          0,
		Minute:        5,
		CheckInterval: time.Minute,
		RunTimeout:    10 * time.Minute,
		Location:      time.Local,
	}
}

// ParseDailySchedule parses a cron expression "minute hour * * *" to extract hour and minute.
// An empty expression keeps the defaults.
func ParseDailySchedule(expr string) (hour, minute int, err error) {
	defaults := DefaultSweepTriggerConfig()
	hour, minute = defaults.Hour, defaults.Minute

	parts := strings.Fields(expr)
	if len(parts) == 0 {
		return hour, minute, nil
	}
	if len(parts) < 2 {
		return hour, minute, fmt.Errorf("%w: expected \"minute hour * * *\", got %q", ErrInvalidConfig, expr)
	}

	if minute, err = parseIntOrDefault(parts[0], defaults.Minute); err != nil {
		return defaults.Hour, defaults.Minute, fmt.Errorf("%w: bad minute %q", ErrInvalidConfig, parts[0])
	}
	if hour, err = parseIntOrDefault(parts[1], defaults.Hour); err != nil {
		return defaults.Hour, defaults.Minute, fmt.Errorf("%w: bad hour %q", ErrInvalidConfig, parts[1])
	}

	if minute < 0 || minute > 59 {
		return defaults.Hour, defaults.Minute, fmt.Errorf("%w: minute must be 0-59, got %d", ErrInvalidConfig, minute)
	}
	if hour < 0 || hour > 23 {
		return defaults.Hour, defaults.Minute, fmt.Errorf("%w: hour must be 0-23, got %d", ErrInvalidConfig, hour)
	}
	return hour, minute, nil
}

// parseIntOrDefault parses an int string or returns default
func parseIntOrDefault(s string, defaultVal int) (int, error) {
	if s == "" || s == "*" {
		return defaultVal, nil
	}
	var val int
	for _, c := range s {
		if c < '0' || c > '9' {
			return defaultVal, ErrInvalidConfig
		}
		val = val*10 + int(c-'0')
	}
	return val, nil
}

// SweepTrigger runs the status sweep once a day at the configured time
type SweepTrigger struct {
	config  SweepTriggerConfig
	sweeper StatusSweeper
	logger  *zap.Logger
	now     func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	sweeping    bool
	lastRunDate string // business date of the last run
	lastResult  *appinstallment.SweepResult
	lastRunAt   *time.Time
}

// NewSweepTrigger creates a new sweep trigger
func NewSweepTrigger(config SweepTriggerConfig, sweeper StatusSweeper, logger *zap.Logger) *SweepTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = DefaultSweepTriggerConfig().RunTimeout
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	return &SweepTrigger{
		config:  config,
		sweeper: sweeper,
		logger:  logger.Named("status_sweep"),
		now:     time.Now,
	}
}

// Start starts the sweep trigger
func (t *SweepTrigger) Start(ctx context.Context) error {
	if !t.config.Enabled {
		t.logger.Info("Status sweep is disabled")
		return nil
	}

	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Status sweep trigger started",
		zap.Int("hour", t.config.Hour),
		zap.Int("minute", t.config.Minute),
		zap.String("location", t.config.Location.String()),
		zap.Duration("check_interval", t.config.CheckInterval),
	)
	return nil
}

// Stop stops the sweep trigger and waits for a running sweep to finish
func (t *SweepTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Status sweep trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *SweepTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the sweep when the configured time is reached and today has not run yet
func (t *SweepTrigger) checkAndTrigger(ctx context.Context) bool {
	now := t.now().In(t.config.Location)
	currentDate := now.Format(time.DateOnly)

	t.mu.Lock()
	if t.lastRunDate == currentDate || !t.shouldRun(now) {
		t.mu.Unlock()
		return false
	}
	t.lastRunDate = currentDate
	t.mu.Unlock()

	t.logger.Info("Triggering daily status sweep", zap.String("date", currentDate))
	if _, err := t.run(ctx); err != nil {
		t.logger.Error("Daily status sweep failed", zap.Error(err))
	}
	return true
}

// shouldRun reports whether now is at or past today's run time
func (t *SweepTrigger) shouldRun(now time.Time) bool {
	if now.Hour() != t.config.Hour {
		return now.Hour() > t.config.Hour
	}
	return now.Minute() >= t.config.Minute
}

// TriggerManualRun runs a sweep immediately, outside the daily schedule
func (t *SweepTrigger) TriggerManualRun(ctx context.Context) (*appinstallment.SweepResult, error) {
	t.mu.Lock()
	running := t.isRunning
	t.mu.Unlock()
	if !running {
		return nil, ErrSchedulerNotRunning
	}
	return t.run(ctx)
}

func (t *SweepTrigger) run(ctx context.Context) (*appinstallment.SweepResult, error) {
	t.mu.Lock()
	if t.sweeping {
		t.mu.Unlock()
		return nil, ErrSweepInProgress
	}
	t.sweeping = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.sweeping = false
		t.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, t.config.RunTimeout)
	defer cancel()

	result, err := t.sweeper.SweepStatuses(ctx)
	if err != nil {
		return nil, err
	}

	now := t.now()
	t.mu.Lock()
	t.lastResult = result
	t.lastRunAt = &now
	t.mu.Unlock()
	return result, nil
}

// GetStatus returns the current status of the sweep trigger
func (t *SweepTrigger) GetStatus() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	return map[string]any{
		"enabled":     t.config.Enabled,
		"is_running":  t.isRunning,
		"hour":        t.config.Hour,
		"minute":      t.config.Minute,
		"location":    t.config.Location.String(),
		"last_run_at": t.lastRunAt,
		"last_result": t.lastResult,
	}
}
