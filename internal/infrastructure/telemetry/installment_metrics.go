package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// InstallmentMetrics tracks payment activity against installment obligations
// and periodically samples the open portfolio.
type InstallmentMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	paymentRegisteredTotal *Counter
	paymentAmountTotal     *Counter
	paymentRejectedTotal   *Counter
	paymentRemovedTotal    *Counter
	obligationSettledTotal *Counter
	obligationReopenTotal  *Counter
	statusMismatchTotal    *Counter
	reconcileDriftTotal    *Counter
	storeDuration          *Histogram

	portfolioPending      *Gauge
	portfolioOverdue      *Gauge
	portfolioDueSoon      *Gauge
	portfolioCountPending *Gauge
	portfolioCountOverdue *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	portfolioProvider PortfolioProvider
}

// PortfolioSnapshot is the open balance of one currency at sampling time.
type PortfolioSnapshot struct {
	Currency     string
	TotalPending decimal.Decimal
	TotalOverdue decimal.Decimal
	TotalDueSoon decimal.Decimal
	CountPending int
	CountOverdue int
}

// PortfolioProvider supplies portfolio totals for periodic collection.
// It keeps the telemetry layer independent of the installment domain.
type PortfolioProvider interface {
	PortfolioSnapshots(ctx context.Context) ([]PortfolioSnapshot, error)
}

// InstallmentMetricsConfig holds configuration for installment metrics.
type InstallmentMetricsConfig struct {
	Meter             metric.Meter
	Logger            *zap.Logger
	PortfolioProvider PortfolioProvider
}

// NewInstallmentMetrics creates a new InstallmentMetrics instance.
func NewInstallmentMetrics(cfg InstallmentMetricsConfig) (*InstallmentMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	im := &InstallmentMetrics{
		meter:             cfg.Meter,
		logger:            logger,
		stopChan:          make(chan struct{}),
		portfolioProvider: cfg.PortfolioProvider,
	}

	counters := []struct {
		dst        **Counter
		name, desc string
		unit       string
	}{
		{&im.paymentRegisteredTotal, "installments_payment_registered_total", "Total number of payments registered against obligations", "{payments}"},
		{&im.paymentAmountTotal, "installments_payment_amount_total", "Total amount paid in minor currency units", "{minor_units}"},
		{&im.paymentRejectedTotal, "installments_payment_rejected_total", "Total number of payments rejected by the split validator", "{payments}"},
		{&im.paymentRemovedTotal, "installments_payment_removed_total", "Total number of payments deleted", "{payments}"},
		{&im.obligationSettledTotal, "installments_obligation_settled_total", "Total number of obligations that reached PAGADO", "{obligations}"},
		{&im.obligationReopenTotal, "installments_obligation_reopened_total", "Total number of PAGADO obligations reopened by a payment deletion", "{obligations}"},
		{&im.statusMismatchTotal, "installments_status_mismatch_total", "Total number of reads where stored status differed from derived status", "{obligations}"},
		{&im.reconcileDriftTotal, "installments_reconcile_drift_total", "Total number of payment submissions whose refetch disagreed with the projection", "{payments}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	im.storeDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "installments_store_duration_seconds",
		Description: "Latency of locked store operations (payment create/delete)",
		Unit:        "s",
		Boundaries:  StoreDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	gauges := []struct {
		dst        **Gauge
		name, desc string
		unit       string
	}{
		{&im.portfolioPending, "installments_portfolio_pending", "Open pending balance in minor currency units", "{minor_units}"},
		{&im.portfolioOverdue, "installments_portfolio_overdue", "Overdue balance in minor currency units", "{minor_units}"},
		{&im.portfolioDueSoon, "installments_portfolio_due_soon", "Balance due within the horizon in minor currency units", "{minor_units}"},
		{&im.portfolioCountPending, "installments_portfolio_open_count", "Number of obligations with a pending balance", "{obligations}"},
		{&im.portfolioCountOverdue, "installments_portfolio_overdue_count", "Number of overdue obligations", "{obligations}"},
	}
	for _, g := range gauges {
		gauge, err := NewGauge(cfg.Meter, g.name, g.desc, g.unit)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}

	return im, nil
}

// toMinorUnits converts an amount to its integer minor-unit count (cents).
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// RecordPaymentRegistered records a stored payment and its amount split by method.
// byMethod carries only the non-zero buckets.
func (im *InstallmentMetrics) RecordPaymentRegistered(ctx context.Context, currency, documentKind string, byMethod map[string]decimal.Decimal) {
	im.paymentRegisteredTotal.Inc(ctx,
		AttrCurrency.String(currency),
		AttrDocumentKind.String(documentKind),
	)
	for method, amount := range byMethod {
		im.paymentAmountTotal.Add(ctx, toMinorUnits(amount),
			AttrCurrency.String(currency),
			AttrPaymentMethod.String(method),
		)
	}
}

// RecordPaymentRejected records a validator rejection by reason code.
func (im *InstallmentMetrics) RecordPaymentRejected(ctx context.Context, currency, reason string) {
	im.paymentRejectedTotal.Inc(ctx,
		AttrCurrency.String(currency),
		AttrRejectReason.String(reason),
	)
}

// RecordPaymentRemoved records a payment deletion.
func (im *InstallmentMetrics) RecordPaymentRemoved(ctx context.Context, currency string) {
	im.paymentRemovedTotal.Inc(ctx, AttrCurrency.String(currency))
}

// RecordSettled records an obligation reaching PAGADO.
func (im *InstallmentMetrics) RecordSettled(ctx context.Context, currency string) {
	im.obligationSettledTotal.Inc(ctx, AttrCurrency.String(currency))
}

// RecordReopened records a PAGADO obligation reopened to the given status.
func (im *InstallmentMetrics) RecordReopened(ctx context.Context, currency, status string) {
	im.obligationReopenTotal.Inc(ctx,
		AttrCurrency.String(currency),
		AttrStatus.String(status),
	)
}

// RecordStatusMismatch records a stored status that disagrees with the derived one.
func (im *InstallmentMetrics) RecordStatusMismatch(ctx context.Context, stored, derived string) {
	im.statusMismatchTotal.Inc(ctx,
		AttrStatus.String(stored+"->"+derived),
	)
}

// RecordReconcileDrift records a refetch that disagreed with the optimistic projection.
func (im *InstallmentMetrics) RecordReconcileDrift(ctx context.Context, currency string) {
	im.reconcileDriftTotal.Inc(ctx, AttrCurrency.String(currency))
}

// RecordStoreDuration records the latency of a locked store operation.
func (im *InstallmentMetrics) RecordStoreDuration(ctx context.Context, operation string, d time.Duration) {
	im.storeDuration.RecordDuration(ctx, d, AttrDBOperation.String(operation))
}

// RecordPortfolio records one currency's portfolio gauges.
func (im *InstallmentMetrics) RecordPortfolio(ctx context.Context, s PortfolioSnapshot) {
	attr := AttrCurrency.String(s.Currency)
	im.portfolioPending.Record(ctx, toMinorUnits(s.TotalPending), attr)
	im.portfolioOverdue.Record(ctx, toMinorUnits(s.TotalOverdue), attr)
	im.portfolioDueSoon.Record(ctx, toMinorUnits(s.TotalDueSoon), attr)
	im.portfolioCountPending.Record(ctx, int64(s.CountPending), attr)
	im.portfolioCountOverdue.Record(ctx, int64(s.CountOverdue), attr)
}

// StartPeriodicCollection samples the portfolio every interval (default: 5 minutes).
// It is non-blocking and only starts once; use Stop() to end collection.
func (im *InstallmentMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	im.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go im.runPeriodicCollection(ctx, interval)
	})
}

func (im *InstallmentMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	im.CollectPortfolio(ctx)

	for {
		select {
		case <-im.stopChan:
			im.logger.Info("Stopping periodic portfolio metrics collection")
			return
		case <-ctx.Done():
			im.logger.Info("Context cancelled, stopping periodic portfolio metrics collection")
			return
		case <-ticker.C:
			im.CollectPortfolio(ctx)
		}
	}
}

// CollectPortfolio samples the provider once.
func (im *InstallmentMetrics) CollectPortfolio(ctx context.Context) {
	if im.portfolioProvider == nil {
		im.logger.Debug("No portfolio provider configured, skipping portfolio metrics collection")
		return
	}

	snapshots, err := im.portfolioProvider.PortfolioSnapshots(ctx)
	if err != nil {
		im.logger.Warn("Failed to collect portfolio snapshot", zap.Error(err))
		return
	}
	for _, s := range snapshots {
		im.RecordPortfolio(ctx, s)
	}
}

// Stop stops the periodic collection.
func (im *InstallmentMetrics) Stop() {
	im.stopOnce.Do(func() {
		close(im.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
