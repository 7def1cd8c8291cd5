package installment

import (
	"context"
	"fmt"

	"github.com/backoffice/installments/internal/domain/installment"
	"github.com/backoffice/installments/internal/domain/shared"
	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// SettlementAuditHandler writes an audit log line whenever an obligation is
// settled or reopened
type SettlementAuditHandler struct {
	logger *zap.Logger
}

// NewSettlementAuditHandler creates a new handler for settlement events
func NewSettlementAuditHandler(logger *zap.Logger) *SettlementAuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementAuditHandler{logger: logger.Named("settlement_audit")}
}

// EventTypes returns the event types this handler is interested in
func (h *SettlementAuditHandler) EventTypes() []string {
	return []string{
		installment.EventTypeObligationSettled,
		installment.EventTypeObligationReopened,
	}
}

// Handle logs the settlement change carried by the event
func (h *SettlementAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *installment.ObligationSettledEvent:
		h.logger.Info("obligation settled",
			zap.String("obligation_id", e.ObligationID.String()),
			zap.String("document_id", e.DocumentID.String()),
			zap.String("principal_amount", valueobject.FixedAmount(e.PrincipalAmount)),
			zap.String("currency", e.Currency.String()),
			zap.Int("payment_count", e.PaymentCount),
			zap.Time("occurred_at", e.OccurredAt()),
		)
	case *installment.ObligationReopenedEvent:
		h.logger.Info("obligation reopened",
			zap.String("obligation_id", e.ObligationID.String()),
			zap.String("document_id", e.DocumentID.String()),
			zap.String("pending_amount", valueobject.FixedAmount(e.PendingAmount)),
			zap.String("currency", e.Currency.String()),
			zap.String("status", e.Status.String()),
			zap.Time("occurred_at", e.OccurredAt()),
		)
	default:
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return nil
}
