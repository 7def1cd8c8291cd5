package installment

import (
	"context"
	"fmt"
	"time"

	"github.com/backoffice/installments/internal/domain/installment"
	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/backoffice/installments/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ServiceConfig holds the reconciliation settings of the service
type ServiceConfig struct {
	DueSoonHorizonDays int
	DefaultCurrency    valueobject.Currency
	IdempotencyTTL     time.Duration
}

// DefaultServiceConfig returns the default reconciliation settings
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		DueSoonHorizonDays: installment.DefaultDueSoonHorizonDays,
		DefaultCurrency:    valueobject.DefaultCurrency,
		IdempotencyTTL:     shared.DefaultIdempotencyTTL,
	}
}

// Service orchestrates obligation reads, payment submission and reconciliation
type Service struct {
	repo           installment.Repository
	clock          installment.Clock
	config         ServiceConfig
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
	idempotency    shared.IdempotencyStore
	metrics        *telemetry.InstallmentMetrics
}

// NewService creates a new Service
func NewService(repo installment.Repository, clock installment.Clock, cfg ServiceConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DueSoonHorizonDays < 0 {
		cfg.DueSoonHorizonDays = installment.DefaultDueSoonHorizonDays
	}
	if !cfg.DefaultCurrency.IsSupported() {
		cfg.DefaultCurrency = valueobject.DefaultCurrency
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = shared.DefaultIdempotencyTTL
	}
	return &Service{
		repo:   repo,
		clock:  clock,
		config: cfg,
		logger: logger,
	}
}

// SetEventPublisher sets the publisher for obligation events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables Idempotency-Key handling on payment registration
func (s *Service) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetMetrics sets the business metrics recorder
func (s *Service) SetMetrics(metrics *telemetry.InstallmentMetrics) {
	s.metrics = metrics
}

// Today returns the business date
func (s *Service) Today() time.Time {
	return s.clock.Today()
}

// List retrieves obligations with filtering and pagination
func (s *Service) List(ctx context.Context, filter ObligationListFilter) ([]ObligationResponse, int64, error) {
	domainFilter, err := s.toDomainFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	obligations, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	today := s.clock.Today()
	items := make([]ObligationResponse, len(obligations))
	for i, o := range obligations {
		s.checkStatus(ctx, o, today)
		items[i] = ToObligationResponse(o, today, false)
	}
	return items, total, nil
}

// GetByID retrieves an obligation with its payments
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*ObligationResponse, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	today := s.clock.Today()
	s.checkStatus(ctx, o, today)

	resp := ToObligationResponse(o, today, true)
	return &resp, nil
}

// ListByDocument retrieves all installments of a credit document in sequence order
func (s *Service) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]ObligationResponse, error) {
	obligations, err := s.repo.FindByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	today := s.clock.Today()
	items := make([]ObligationResponse, len(obligations))
	for i, o := range obligations {
		s.checkStatus(ctx, o, today)
		items[i] = ToObligationResponse(o, today, true)
	}
	return items, nil
}

// Create creates an installment of a credit document
func (s *Service) Create(ctx context.Context, req CreateObligationRequest) (_ *ObligationResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "create_obligation")
	defer telemetry.End(span, &err)

	currency := s.config.DefaultCurrency
	if req.Currency != "" {
		parsed, ok := valueobject.ParseCurrency(req.Currency)
		if !ok {
			return nil, shared.NewDomainError("INVALID_CURRENCY", fmt.Sprintf("Unknown currency code %q", req.Currency))
		}
		currency = parsed
	}

	dueDate, err := time.Parse(time.DateOnly, req.DueDate)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date must be formatted as YYYY-MM-DD")
	}

	principal, err := valueobject.NewMoney(req.PrincipalAmount, currency)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	o, err := installment.NewObligation(
		req.DocumentID,
		installment.DocumentKind(req.DocumentKind),
		req.SequenceNumber,
		principal,
		dueDate,
		today,
	)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		telemetry.ID(telemetry.AttrObligationID, o.ID),
		telemetry.ID(telemetry.AttrDocumentID, o.DocumentID),
		telemetry.Label(telemetry.AttrCurrency, o.Currency),
		telemetry.Amount(telemetry.AttrPendingAmount, o.PrincipalAmount),
	)

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, o)

	resp := ToObligationResponse(o, today, true)
	return &resp, nil
}

// ListPayments lists an obligation's payments in insertion order
func (s *Service) ListPayments(ctx context.Context, obligationID uuid.UUID) ([]PaymentResponse, error) {
	payments, err := s.repo.ListPayments(ctx, obligationID)
	if err != nil {
		return nil, err
	}
	return ToPaymentResponses(payments), nil
}

// ValidatePayment runs the split validator against the current obligation without storing anything
func (s *Service) ValidatePayment(ctx context.Context, obligationID uuid.UUID, req ValidatePaymentRequest) (_ *ValidationResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "validate_payment",
		telemetry.ID(telemetry.AttrObligationID, obligationID))
	defer telemetry.End(span, &err)

	o, err := s.repo.FindByID(ctx, obligationID)
	if err != nil {
		return nil, err
	}

	valid, err := installment.Validate(o, req.Amounts.ToDomain())
	if err != nil {
		s.recordRejection(ctx, o, err)
		return nil, err
	}

	today := s.clock.Today()
	telemetry.Event(ctx, "payment_validated",
		telemetry.Amount(telemetry.AttrPaymentTotal, valid.Total),
		telemetry.Amount(telemetry.AttrPendingAmount, valid.Remainder),
	)

	return &ValidationResponse{
		Valid:      true,
		Total:      valid.Total,
		Remainder:  valid.Remainder,
		Currency:   valid.Currency,
		Projection: installment.Project(o, valid, today),
	}, nil
}

// RegisterPayment validates and stores a payment, then refetches the obligation
// and reconciles it with the optimistic projection.
//
// A non-empty idempotencyKey is claimed before anything else; a repeated key
// returns shared.ErrDuplicateRequest. The key is released when the payment
// is not stored so the client may retry.
func (s *Service) RegisterPayment(ctx context.Context, obligationID uuid.UUID, req RegisterPaymentRequest, idempotencyKey string) (_ *PaymentResultResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "register_payment",
		telemetry.ID(telemetry.AttrObligationID, obligationID))
	defer telemetry.End(span, &err)

	claimed, err := s.claimIdempotencyKey(ctx, obligationID, idempotencyKey)
	if err != nil {
		return nil, err
	}

	result, err := s.registerPayment(ctx, obligationID, req)
	if err != nil {
		if claimed != "" {
			if releaseErr := s.idempotency.Release(ctx, claimed); releaseErr != nil {
				s.logger.Warn("Failed to release idempotency key",
					zap.String("idempotency_key", claimed),
					zap.Error(releaseErr),
				)
			}
		}
		return nil, err
	}

	span.SetAttributes(
		telemetry.ID(telemetry.AttrPaymentID, result.Payment.ID),
		telemetry.Amount(telemetry.AttrPaymentTotal, result.Payment.TotalPaid),
		telemetry.Amount(telemetry.AttrPendingAmount, result.Obligation.PendingAmount),
		telemetry.AttrStatus.String(result.Obligation.Status),
	)
	return result, nil
}

func (s *Service) registerPayment(ctx context.Context, obligationID uuid.UUID, req RegisterPaymentRequest) (*PaymentResultResponse, error) {
	today := s.clock.Today()

	before, err := s.repo.FindByID(ctx, obligationID)
	if err != nil {
		return nil, err
	}

	amounts := req.Amounts.ToDomain()
	valid, err := installment.Validate(before, amounts)
	if err != nil {
		s.recordRejection(ctx, before, err)
		return nil, err
	}
	projection := installment.Project(before, valid, today)

	draft := installment.PaymentDraft{
		Amounts:     amounts,
		PaymentDate: today,
		Observation: req.Observation,
	}
	if req.PaymentDate != "" {
		date, err := time.Parse(time.DateOnly, req.PaymentDate)
		if err != nil {
			return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date must be formatted as YYYY-MM-DD")
		}
		draft.PaymentDate = date
	}

	var (
		updated *installment.Obligation
		payment *installment.Payment
	)
	labels := telemetry.ProfileLabels{Operation: "register_payment", Currency: before.Currency.String()}
	telemetry.Profile(ctx, labels, func(c context.Context) {
		start := time.Now()
		updated, payment, err = s.repo.CreatePayment(c, obligationID, draft, today)
		if s.metrics != nil {
			s.metrics.RecordStoreDuration(c, "create_payment", time.Since(start))
		}
	})
	if err != nil {
		// the locked re-validation may reject what the snapshot accepted
		s.recordRejection(ctx, before, err)
		return nil, err
	}

	s.publishEvents(ctx, updated)
	if s.metrics != nil {
		byMethod := make(map[string]decimal.Decimal)
		payment.Amounts.Each(func(m installment.Method, amount decimal.Decimal) {
			if amount.IsPositive() {
				byMethod[m.String()] = amount
			}
		})
		s.metrics.RecordPaymentRegistered(ctx, updated.Currency.String(), updated.DocumentKind.String(), byMethod)
		if updated.Status == installment.StatusPaid {
			s.metrics.RecordSettled(ctx, updated.Currency.String())
		}
	}

	s.logger.Info("Payment registered",
		zap.String("obligation_id", obligationID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("total", valueobject.FixedAmount(payment.TotalPaid)),
		zap.String("pending", valueobject.FixedAmount(updated.PendingAmount)),
		zap.String("status", updated.Status.String()),
	)

	fetched, err := s.repo.FindByID(ctx, obligationID)
	if err != nil {
		s.logger.Warn("Failed to refetch obligation after payment, using store result",
			zap.String("obligation_id", obligationID.String()),
			zap.Error(err),
		)
		fetched = updated
	}

	drift := installment.ReconcileProjection(projection, fetched, today)
	if !drift.Confirmed() {
		s.logger.Warn("Refetched obligation disagrees with projection",
			zap.String("obligation_id", obligationID.String()),
			zap.String("projected_pending", valueobject.FixedAmount(projection.PendingAfter)),
			zap.String("drift", valueobject.FixedAmount(drift.Amount)),
			zap.String("expected_status", drift.Expected.String()),
			zap.String("actual_status", drift.Actual.String()),
		)
		if s.metrics != nil {
			s.metrics.RecordReconcileDrift(ctx, fetched.Currency.String())
		}
	}

	return &PaymentResultResponse{
		Payment:    ToPaymentResponse(payment),
		Obligation: ToObligationResponse(fetched, today, true),
		Projection: projection,
		Drift:      drift,
		Confirmed:  drift.Confirmed(),
	}, nil
}

// DeletePayment removes a payment and restores its amount to the pending balance
func (s *Service) DeletePayment(ctx context.Context, obligationID, paymentID uuid.UUID) (_ *ObligationResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "delete_payment",
		telemetry.ID(telemetry.AttrObligationID, obligationID),
		telemetry.ID(telemetry.AttrPaymentID, paymentID),
	)
	defer telemetry.End(span, &err)

	today := s.clock.Today()
	start := time.Now()
	updated, err := s.repo.DeletePayment(ctx, obligationID, paymentID, today)
	if s.metrics != nil {
		s.metrics.RecordStoreDuration(ctx, "delete_payment", time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	reopened := false
	for _, event := range updated.GetDomainEvents() {
		if event.EventType() == installment.EventTypeObligationReopened {
			reopened = true
		}
	}
	s.publishEvents(ctx, updated)

	if s.metrics != nil {
		s.metrics.RecordPaymentRemoved(ctx, updated.Currency.String())
		if reopened {
			s.metrics.RecordReopened(ctx, updated.Currency.String(), updated.Status.String())
		}
	}

	s.logger.Info("Payment deleted",
		zap.String("obligation_id", obligationID.String()),
		zap.String("payment_id", paymentID.String()),
		zap.String("pending", valueobject.FixedAmount(updated.PendingAmount)),
		zap.String("status", updated.Status.String()),
		zap.Bool("reopened", reopened),
	)

	span.SetAttributes(telemetry.Label(telemetry.AttrStatus, updated.Status))

	resp := ToObligationResponse(updated, today, true)
	return &resp, nil
}

// Summary folds the open obligations into per-currency portfolio figures
func (s *Service) Summary(ctx context.Context, filter SummaryFilter) (_ *SummaryResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "summary")
	defer telemetry.End(span, &err)

	horizon := s.config.DueSoonHorizonDays
	if filter.HorizonDays != nil {
		horizon = *filter.HorizonDays
	}

	domainFilter := installment.ObligationFilter{OnlyOpen: true}
	if filter.DocumentKind != "" {
		kind := installment.DocumentKind(filter.DocumentKind)
		domainFilter.DocumentKind = &kind
	}
	if filter.Currency != "" {
		c, err := s.parseCurrency(filter.Currency)
		if err != nil {
			return nil, err
		}
		domainFilter.Currency = &c
	}

	obligations, err := s.repo.FindOpen(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	summaries := installment.Summarize(obligations, today,
		installment.WithDueSoonHorizon(horizon),
		installment.WithDefaultCurrency(s.config.DefaultCurrency),
	)

	span.SetAttributes(
		telemetry.AttrObligationCount.Int(len(obligations)),
		telemetry.AttrCurrencyCount.Int(len(summaries)),
	)

	resp := ToSummaryResponse(summaries, today, horizon)
	return &resp, nil
}

// PortfolioSnapshots samples the open portfolio for the metrics collector
func (s *Service) PortfolioSnapshots(ctx context.Context) ([]telemetry.PortfolioSnapshot, error) {
	obligations, err := s.repo.FindOpen(ctx, installment.ObligationFilter{OnlyOpen: true})
	if err != nil {
		return nil, err
	}

	summaries := installment.Summarize(obligations, s.clock.Today(),
		installment.WithDueSoonHorizon(s.config.DueSoonHorizonDays),
		installment.WithDefaultCurrency(s.config.DefaultCurrency),
	)

	snapshots := make([]telemetry.PortfolioSnapshot, 0, len(summaries))
	for _, c := range summaries.Currencies() {
		sum := summaries[c]
		snapshots = append(snapshots, telemetry.PortfolioSnapshot{
			Currency:     c.String(),
			TotalPending: sum.TotalPending,
			TotalOverdue: sum.TotalOverdue,
			TotalDueSoon: sum.TotalDueSoon,
			CountPending: sum.CountPending,
			CountOverdue: sum.CountOverdue,
		})
	}
	return snapshots, nil
}

// SweepStatuses persists the derived status of every open obligation whose
// stored status went stale, typically PENDIENTE rows whose due date has passed.
// Failures on single obligations are logged and counted, not returned.
func (s *Service) SweepStatuses(ctx context.Context) (_ *SweepResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "installment", "sweep_statuses")
	defer telemetry.End(span, &err)

	obligations, err := s.repo.FindOpen(ctx, installment.ObligationFilter{OnlyOpen: true})
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	result := &SweepResult{Checked: len(obligations)}
	for _, o := range obligations {
		previous := o.Status
		if !o.Reclassify(today) {
			continue
		}
		if err := s.repo.Save(ctx, o); err != nil {
			result.Failed++
			s.logger.Warn("Failed to persist reclassified obligation",
				zap.String("obligation_id", o.ID.String()),
				zap.String("status", o.Status.String()),
				zap.Error(err),
			)
			continue
		}
		result.Updated++
		s.logger.Debug("Obligation reclassified",
			zap.String("obligation_id", o.ID.String()),
			zap.String("from", previous.String()),
			zap.String("to", o.Status.String()),
		)
	}

	span.SetAttributes(
		telemetry.AttrObligationCount.Int(result.Checked),
		attribute.Int("sweep.updated", result.Updated),
		attribute.Int("sweep.failed", result.Failed),
	)

	s.logger.Info("Status sweep completed",
		zap.Int("checked", result.Checked),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// checkStatus logs and counts obligations whose stored status disagrees with the derived one.
// The derived status is what callers display.
func (s *Service) checkStatus(ctx context.Context, o *installment.Obligation, today time.Time) {
	report := installment.CompareStatus(o, today)
	if report.Agrees {
		return
	}
	s.logger.Warn("Stored status disagrees with derived status",
		zap.String("obligation_id", o.ID.String()),
		zap.String("server_status", report.Server.String()),
		zap.String("derived_status", report.Derived.String()),
		zap.String("pending", valueobject.FixedAmount(o.PendingAmount)),
		zap.String("due_date", o.DueDate.Format(time.DateOnly)),
	)
	if s.metrics != nil {
		s.metrics.RecordStatusMismatch(ctx, report.Server.String(), report.Derived.String())
	}
}

// recordRejection counts validator rejections by their error code
func (s *Service) recordRejection(ctx context.Context, o *installment.Obligation, err error) {
	de, ok := shared.AsDomainError(err)
	if !ok {
		return
	}
	switch de.Code {
	case installment.CodeZeroAmount, installment.CodeNegativeAmount, installment.CodeExceedsPending:
	default:
		return
	}

	s.logger.Info("Payment rejected",
		zap.String("obligation_id", o.ID.String()),
		zap.String("reason", de.Code),
		zap.String("pending", valueobject.FixedAmount(o.PendingAmount)),
	)
	if s.metrics != nil {
		s.metrics.RecordPaymentRejected(ctx, o.Currency.String(), de.Code)
	}
}

func (s *Service) claimIdempotencyKey(ctx context.Context, obligationID uuid.UUID, key string) (string, error) {
	if key == "" || s.idempotency == nil {
		return "", nil
	}

	scoped := shared.ScopePayment.Key(obligationID.String(), key)
	fresh, err := s.idempotency.Claim(ctx, scoped, s.config.IdempotencyTTL)
	if err != nil {
		return "", fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if !fresh {
		s.logger.Info("Duplicate payment submission rejected",
			zap.String("obligation_id", obligationID.String()),
			zap.String("idempotency_key", key),
		)
		return "", shared.ErrDuplicateRequest
	}
	return scoped, nil
}

func (s *Service) publishEvents(ctx context.Context, o *installment.Obligation) {
	events := o.PullDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		// the state change is already committed
		s.logger.Error("Failed to publish obligation events",
			zap.String("obligation_id", o.ID.String()),
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}

func (s *Service) parseCurrency(code string) (valueobject.Currency, error) {
	c, ok := valueobject.ParseCurrency(code)
	if !ok {
		return "", shared.NewDomainError("INVALID_CURRENCY", fmt.Sprintf("Unknown currency code %q", code))
	}
	return c, nil
}

func (s *Service) toDomainFilter(filter ObligationListFilter) (installment.ObligationFilter, error) {
	out := installment.ObligationFilter{
		Filter: shared.DefaultFilter().
			WithPage(filter.Page, filter.PageSize).
			WithOrder(filter.OrderBy, filter.OrderDir),
		OnlyOpen: filter.OnlyOpen,
	}
	if filter.DocumentID != "" {
		id, err := uuid.Parse(filter.DocumentID)
		if err != nil {
			return out, shared.ErrInvalidInput
		}
		out.DocumentID = &id
	}
	if filter.DocumentKind != "" {
		kind := installment.DocumentKind(filter.DocumentKind)
		out.DocumentKind = &kind
	}
	if filter.Status != "" {
		status := installment.Status(filter.Status)
		out.Status = &status
		out.AsOf = s.clock.Today()
	}
	if filter.Currency != "" {
		c, err := s.parseCurrency(filter.Currency)
		if err != nil {
			return out, err
		}
		out.Currency = &c
	}
	if filter.DueFrom != "" {
		from, err := time.Parse(time.DateOnly, filter.DueFrom)
		if err != nil {
			return out, shared.ErrInvalidInput
		}
		out.DueFrom = &from
	}
	if filter.DueTo != "" {
		to, err := time.Parse(time.DateOnly, filter.DueTo)
		if err != nil {
			return out, shared.ErrInvalidInput
		}
		out.DueTo = &to
	}
	return out, nil
}
