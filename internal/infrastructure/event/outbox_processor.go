package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// StaleAfter is how long an entry may stay PROCESSING before it is
	// considered abandoned by a crashed worker and requeued. Zero disables it.
	StaleAfter       time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     2 * time.Second,
		StaleAfter:       5 * time.Minute,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// DeliveryReport summarizes one processing pass
type DeliveryReport struct {
	Claimed  int
	Sent     int
	Failed   int // scheduled for another attempt
	Dead     int
	Deferred int // held back behind a failed entry of the same obligation
}

// OutboxProcessor drains the outbox into the event bus. Delivery is
// at-least-once and ordered per aggregate: once an entry fails, the later
// entries of the same obligation wait until it is delivered or dead.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	target     shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger
	now        func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates an outbox processor delivering to target
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	target shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	defaults := DefaultOutboxProcessorConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.CleanupRetention <= 0 {
		config.CleanupRetention = defaults.CleanupRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxProcessor{
		repo:       repo,
		target:     target,
		serializer: serializer,
		config:     config,
		logger:     logger.Named("outbox"),
		now:        time.Now,
	}
}

// Start runs the delivery loop, and the cleanup loop when enabled, until Stop
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.deliveryLoop(ctx)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Duration("stale_after", p.config.StaleAfter),
	)
	return nil
}

// Stop cancels the loops and waits for the current pass to finish
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) deliveryLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	var lastRequeue time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.config.StaleAfter > 0 && p.now().Sub(lastRequeue) >= p.config.StaleAfter {
				p.requeueStale(ctx)
				lastRequeue = p.now()
			}
			if _, err := p.ProcessOnce(ctx); err != nil {
				p.logger.Error("outbox pass failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce claims one batch of due entries and delivers it in order
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) (DeliveryReport, error) {
	var report DeliveryReport

	entries, err := p.repo.ClaimDue(ctx, p.now(), p.config.BatchSize)
	if err != nil {
		return report, fmt.Errorf("claim outbox entries: %w", err)
	}
	report.Claimed = len(entries)

	blocked := make(map[uuid.UUID]bool)
	for _, entry := range entries {
		if blocked[entry.AggregateID] {
			entry.Defer(p.now())
			p.save(ctx, entry)
			report.Deferred++
			continue
		}

		if err := p.deliver(ctx, entry); err != nil {
			p.fail(ctx, entry, err)
			if entry.IsDead() {
				report.Dead++
			} else {
				report.Failed++
				blocked[entry.AggregateID] = true
			}
			continue
		}

		entry.MarkSent(p.now())
		p.save(ctx, entry)
		report.Sent++
	}

	if report.Claimed > 0 {
		p.logger.Debug("outbox pass complete",
			zap.Int("claimed", report.Claimed),
			zap.Int("sent", report.Sent),
			zap.Int("failed", report.Failed),
			zap.Int("dead", report.Dead),
			zap.Int("deferred", report.Deferred),
		)
	}
	return report, nil
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) error {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		return fmt.Errorf("deserialize: %w", err)
	}
	if err := p.target.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *OutboxProcessor) fail(ctx context.Context, entry *shared.OutboxEntry, err error) {
	entry.MarkFailed(err.Error(), p.now())

	fields := []zap.Field{
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("aggregate_id", entry.AggregateID.String()),
		zap.Int("retry_count", entry.RetryCount),
		zap.Error(err),
	}
	if entry.IsDead() {
		p.logger.Warn("outbox entry is dead, later events of the aggregate proceed", fields...)
	} else {
		p.logger.Error("outbox delivery failed", append(fields, zap.Timep("next_retry_at", entry.NextRetryAt))...)
	}
	p.save(ctx, entry)
}

func (p *OutboxProcessor) save(ctx context.Context, entry *shared.OutboxEntry) {
	if err := p.repo.Update(ctx, entry); err != nil {
		// the entry stays PROCESSING and is requeued once stale
		p.logger.Error("failed to record outbox delivery state",
			zap.String("event_id", entry.EventID.String()),
			zap.String("status", string(entry.Status)),
			zap.Error(err),
		)
	}
}

func (p *OutboxProcessor) requeueStale(ctx context.Context) {
	cutoff := p.now().Add(-p.config.StaleAfter)
	n, err := p.repo.RequeueStale(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to requeue stale outbox entries", zap.Error(err))
		return
	}
	if n > 0 {
		p.logger.Warn("requeued stale outbox entries", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
}

func (p *OutboxProcessor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanup(ctx)
		}
	}
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := p.now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to clean up outbox entries", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("cleaned up delivered outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
