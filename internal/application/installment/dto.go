package installment

import (
	"time"

	"github.com/backoffice/installments/internal/domain/installment"
	"github.com/backoffice/installments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Request DTOs ====================

// PaymentAmountsRequest is the split of one payment across the method buckets.
// Omitted buckets count as zero.
type PaymentAmountsRequest struct {
	Cash         decimal.Decimal `json:"cash" binding:"money"`
	Card         decimal.Decimal `json:"card" binding:"money"`
	Yape         decimal.Decimal `json:"yape" binding:"money"`
	Plin         decimal.Decimal `json:"plin" binding:"money"`
	BankDeposit  decimal.Decimal `json:"bank_deposit" binding:"money"`
	BankTransfer decimal.Decimal `json:"bank_transfer" binding:"money"`
	Other        decimal.Decimal `json:"other" binding:"money"`
}

// ToDomain converts the request into domain payment amounts
func (r PaymentAmountsRequest) ToDomain() installment.PaymentAmounts {
	return installment.PaymentAmounts{
		Cash:         r.Cash,
		Card:         r.Card,
		Yape:         r.Yape,
		Plin:         r.Plin,
		BankDeposit:  r.BankDeposit,
		BankTransfer: r.BankTransfer,
		Other:        r.Other,
	}
}

// ValidatePaymentRequest represents a pre-flight check of a payment split
type ValidatePaymentRequest struct {
	Amounts PaymentAmountsRequest `json:"amounts"`
}

// RegisterPaymentRequest represents a request to register a payment against an obligation
type RegisterPaymentRequest struct {
	Amounts     PaymentAmountsRequest `json:"amounts"`
	PaymentDate string                `json:"payment_date" binding:"omitempty,datetime=2006-01-02"` // defaults to today
	Observation string                `json:"observation" binding:"max=500"`
}

// CreateObligationRequest represents a request to create an installment
type CreateObligationRequest struct {
	DocumentID      uuid.UUID       `json:"document_id" binding:"required"`
	DocumentKind    string          `json:"document_kind" binding:"required,oneof=SALE PURCHASE"`
	SequenceNumber  int             `json:"sequence_number" binding:"required,min=1"`
	PrincipalAmount decimal.Decimal `json:"principal_amount" binding:"required,money"`
	Currency        string          `json:"currency" binding:"omitempty,len=3"` // defaults to the configured currency
	DueDate         string          `json:"due_date" binding:"required,datetime=2006-01-02"`
}

// ObligationListFilter represents filter options for the obligation list
type ObligationListFilter struct {
	DocumentID   string `form:"document_id" binding:"omitempty,uuid"`
	DocumentKind string `form:"document_kind" binding:"omitempty,oneof=SALE PURCHASE"`
	Currency     string `form:"currency" binding:"omitempty,len=3"`
	Status       string `form:"status" binding:"omitempty,oneof=PENDIENTE VENCIDO PAGADO"`
	OnlyOpen     bool   `form:"only_open"`
	DueFrom      string `form:"due_from" binding:"omitempty,datetime=2006-01-02"`
	DueTo        string `form:"due_to" binding:"omitempty,datetime=2006-01-02"`
	Page         int    `form:"page" binding:"omitempty,min=1"`
	PageSize     int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy      string `form:"order_by" binding:"omitempty,oneof=due_date sequence_number pending_amount created_at"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// SummaryFilter represents options for the portfolio summary
type SummaryFilter struct {
	HorizonDays  *int   `form:"horizon_days" binding:"omitempty,min=0,max=365"`
	DocumentKind string `form:"document_kind" binding:"omitempty,oneof=SALE PURCHASE"`
	Currency     string `form:"currency" binding:"omitempty,len=3"`
}

// ==================== Response DTOs ====================

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID             uuid.UUID                  `json:"id"`
	ObligationID   uuid.UUID                  `json:"obligation_id"`
	SequenceNumber int                        `json:"sequence_number"`
	PaymentDate    string                     `json:"payment_date"`
	Amounts        installment.PaymentAmounts `json:"amounts"`
	Methods        []installment.Method       `json:"methods"`
	TotalPaid      decimal.Decimal            `json:"total_paid"`
	Observation    string                     `json:"observation,omitempty"`
	CreatedAt      time.Time                  `json:"created_at"`
}

// ObligationResponse represents an obligation in API responses.
// Status is the derived status; ServerStatus is the persisted one.
type ObligationResponse struct {
	ID              uuid.UUID            `json:"id"`
	DocumentID      uuid.UUID            `json:"document_id"`
	DocumentKind    string               `json:"document_kind"`
	SequenceNumber  int                  `json:"sequence_number"`
	PrincipalAmount decimal.Decimal      `json:"principal_amount"`
	PaidAmount      decimal.Decimal      `json:"paid_amount"`
	PendingAmount   decimal.Decimal      `json:"pending_amount"`
	Currency        valueobject.Currency `json:"currency"`
	CurrencySymbol  string               `json:"currency_symbol"`
	DueDate         string               `json:"due_date"`
	Status          string               `json:"status"`
	ServerStatus    string               `json:"server_status"`
	StatusAgrees    bool                 `json:"status_agrees"`
	DaysOverdue     int                  `json:"days_overdue"`
	DaysUntilDue    int                  `json:"days_until_due"`
	PaymentCount    int                  `json:"payment_count"`
	Payments        []PaymentResponse    `json:"payments,omitempty"`
	Version         int                  `json:"version"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// ValidationResponse is the outcome of a successful pre-flight validation
type ValidationResponse struct {
	Valid      bool                   `json:"valid"`
	Total      decimal.Decimal        `json:"total"`
	Remainder  decimal.Decimal        `json:"remainder"`
	Currency   valueobject.Currency   `json:"currency"`
	Projection installment.Projection `json:"projection"`
}

// PaymentResultResponse is returned after a payment is registered.
// Confirmed is false when the refetched obligation disagrees with the projection.
type PaymentResultResponse struct {
	Payment    PaymentResponse        `json:"payment"`
	Obligation ObligationResponse     `json:"obligation"`
	Projection installment.Projection `json:"projection"`
	Drift      installment.Drift      `json:"drift"`
	Confirmed  bool                   `json:"confirmed"`
}

// CurrencySummaryResponse holds the portfolio figures of one currency
type CurrencySummaryResponse struct {
	Currency     valueobject.Currency `json:"currency"`
	Symbol       string               `json:"symbol"`
	TotalPending decimal.Decimal      `json:"total_pending"`
	TotalOverdue decimal.Decimal      `json:"total_overdue"`
	TotalDueSoon decimal.Decimal      `json:"total_due_soon"`
	CountPending int                  `json:"count_pending"`
	CountOverdue int                  `json:"count_overdue"`
	CountDueSoon int                  `json:"count_due_soon"`
}

// SummaryResponse is the portfolio summary, one entry per currency in code order
type SummaryResponse struct {
	Today       string                    `json:"today"`
	HorizonDays int                       `json:"horizon_days"`
	Currencies  []CurrencySummaryResponse `json:"currencies"`
}

// SweepResult reports a status sweep run
type SweepResult struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// ==================== Conversions ====================

// ToPaymentResponse converts a domain payment to a response DTO
func ToPaymentResponse(p *installment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		ObligationID:   p.ObligationID,
		SequenceNumber: p.SequenceNumber,
		PaymentDate:    p.PaymentDate.Format(time.DateOnly),
		Amounts:        p.Amounts,
		Methods:        p.Amounts.UsedMethods(),
		TotalPaid:      p.TotalPaid,
		Observation:    p.Observation,
		CreatedAt:      p.CreatedAt,
	}
}

// ToPaymentResponses converts domain payments to response DTOs
func ToPaymentResponses(payments []*installment.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = ToPaymentResponse(p)
	}
	return out
}

// ToObligationResponse converts an obligation to a response DTO, deriving the status for today
func ToObligationResponse(o *installment.Obligation, today time.Time, withPayments bool) ObligationResponse {
	report := installment.CompareStatus(o, today)
	resp := ObligationResponse{
		ID:              o.ID,
		DocumentID:      o.DocumentID,
		DocumentKind:    o.DocumentKind.String(),
		SequenceNumber:  o.SequenceNumber,
		PrincipalAmount: o.PrincipalAmount,
		PaidAmount:      valueobject.RoundAmount(o.PrincipalAmount.Sub(o.PendingAmount)),
		PendingAmount:   valueobject.RoundAmount(o.PendingAmount),
		Currency:        o.Currency,
		CurrencySymbol:  o.Currency.Symbol(),
		DueDate:         o.DueDate.Format(time.DateOnly),
		Status:          report.Derived.String(),
		ServerStatus:    report.Server.String(),
		StatusAgrees:    report.Agrees,
		DaysOverdue:     installment.DaysOverdue(o, today),
		DaysUntilDue:    installment.DaysUntilDue(o, today),
		PaymentCount:    len(o.Payments),
		Version:         o.GetVersion(),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if withPayments {
		resp.Payments = ToPaymentResponses(o.Payments)
	}
	return resp
}

// ToSummaryResponse converts domain summaries to a response DTO
func ToSummaryResponse(s installment.Summaries, today time.Time, horizonDays int) SummaryResponse {
	resp := SummaryResponse{
		Today:       today.Format(time.DateOnly),
		HorizonDays: horizonDays,
		Currencies:  make([]CurrencySummaryResponse, 0, len(s)),
	}
	for _, c := range s.Currencies() {
		sum := s[c]
		resp.Currencies = append(resp.Currencies, CurrencySummaryResponse{
			Currency:     c,
			Symbol:       c.Symbol(),
			TotalPending: sum.TotalPending,
			TotalOverdue: sum.TotalOverdue,
			TotalDueSoon: sum.TotalDueSoon,
			CountPending: sum.CountPending,
			CountOverdue: sum.CountOverdue,
			CountDueSoon: sum.CountDueSoon,
		})
	}
	return resp
}
