package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appinstallment "github.com/backoffice/installments/internal/application/installment"
	"github.com/backoffice/installments/internal/domain/installment"
	"github.com/backoffice/installments/internal/infrastructure/cache"
	"github.com/backoffice/installments/internal/infrastructure/config"
	"github.com/backoffice/installments/internal/infrastructure/persistence"
	"github.com/backoffice/installments/internal/interfaces/http/dto"
	"github.com/backoffice/installments/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testToday = time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

type installmentTestEnv struct {
	router *gin.Engine
	db     *persistence.Database
}

func newInstallmentTestEnv(t *testing.T) *installmentTestEnv {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver:     persistence.DriverSQLite,
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.AutoMigrate(context.Background()))

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	svc := appinstallment.NewService(
		persistence.NewGormObligationRepository(db.DB),
		installment.FixedClock{Date: testToday},
		appinstallment.DefaultServiceConfig(),
		zaptest.NewLogger(t),
	)
	svc.SetIdempotencyStore(store)
	h := NewInstallmentHandler(svc)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.IdempotencyKey())
	api := router.Group("/api/v1")
	api.GET("/obligations", h.List)
	api.GET("/obligations/summary", h.Summary)
	api.POST("/obligations", h.Create)
	api.GET("/obligations/:id", h.GetByID)
	api.GET("/obligations/:id/payments", h.ListPayments)
	api.POST("/obligations/:id/payments/validate", h.ValidatePayment)
	api.POST("/obligations/:id/payments", h.RegisterPayment)
	api.DELETE("/obligations/:id/payments/:paymentId", h.DeletePayment)
	api.GET("/documents/:documentId/obligations", h.ListByDocument)

	return &installmentTestEnv{router: router, db: db}
}

func (e *installmentTestEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the data field of a success response into T
func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Success bool     `json:"success"`
		Data    T        `json:"data"`
		Meta    dto.Meta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.True(t, resp.Success, w.Body.String())
	return resp.Data
}

func (e *installmentTestEnv) createObligation(t *testing.T, documentID uuid.UUID, seq int, principal string, dueInDays int) appinstallment.ObligationResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/obligations", map[string]any{
		"document_id":      documentID,
		"document_kind":    "SALE",
		"sequence_number":  seq,
		"principal_amount": principal,
		"currency":         "PEN",
		"due_date":         testToday.AddDate(0, 0, dueInDays).Format(time.DateOnly),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[appinstallment.ObligationResponse](t, w)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestInstallmentHandler_Create(t *testing.T) {
	env := newInstallmentTestEnv(t)
	documentID := uuid.New()

	o := env.createObligation(t, documentID, 1, "100.00", 5)
	assert.Equal(t, documentID, o.DocumentID)
	assert.Equal(t, "PENDIENTE", o.Status)
	assert.True(t, o.StatusAgrees)
	assertDecimal(t, "100", o.PendingAmount)
	assert.Equal(t, "S/", o.CurrencySymbol)

	t.Run("duplicate sequence conflicts", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/obligations", map[string]any{
			"document_id":      documentID,
			"document_kind":    "SALE",
			"sequence_number":  1,
			"principal_amount": "50",
			"due_date":         "2026-04-01",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeAlreadyExists, decodeResponse(t, w).Error.Code)
	})

	t.Run("missing fields are listed", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/obligations", map[string]any{
			"document_kind":    "LOAN",
			"principal_amount": "10.001",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		fields := map[string]bool{}
		for _, f := range resp.Error.Fields {
			fields[f.Field] = true
		}
		assert.True(t, fields["document_id"])
		assert.True(t, fields["document_kind"])
		assert.True(t, fields["principal_amount"])
		assert.True(t, fields["due_date"])
	})

	t.Run("unknown currency", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/obligations", map[string]any{
			"document_id":      uuid.New(),
			"document_kind":    "PURCHASE",
			"sequence_number":  1,
			"principal_amount": "50",
			"currency":         "ZZZ",
			"due_date":         "2026-04-01",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidInput, decodeResponse(t, w).Error.Code)
	})
}

func TestInstallmentHandler_ValidatePayment(t *testing.T) {
	env := newInstallmentTestEnv(t)
	o := env.createObligation(t, uuid.New(), 1, "100", 5)
	path := "/api/v1/obligations/" + o.ID.String() + "/payments/validate"

	t.Run("exceeds pending", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, map[string]any{
			"amounts": map[string]string{"cash": "60", "card": "50"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeExceedsPending, resp.Error.Code)
		assert.Equal(t, map[string]any{"total": "110.00", "pending": "100.00", "excess": "10.00"}, resp.Error.Details)
	})

	t.Run("zero amount", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, map[string]any{"amounts": map[string]string{}})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeZeroAmount, decodeResponse(t, w).Error.Code)
	})

	t.Run("negative amount", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, map[string]any{
			"amounts": map[string]string{"cash": "50", "yape": "-5"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeNegativeAmount, resp.Error.Code)
		assert.Equal(t, "YAPE", resp.Error.Details["method"])
	})

	t.Run("accepted split", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, map[string]any{
			"amounts": map[string]string{"cash": "60", "yape": "40"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		v := decodeData[appinstallment.ValidationResponse](t, w)
		assert.True(t, v.Valid)
		assertDecimal(t, "100", v.Total)
		assertDecimal(t, "0", v.Remainder)
	})

	t.Run("unknown obligation", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/obligations/"+uuid.NewString()+"/payments/validate", map[string]any{
			"amounts": map[string]string{"cash": "1"},
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeObligationNotFound, decodeResponse(t, w).Error.Code)
	})
}

func TestInstallmentHandler_PaymentLifecycle(t *testing.T) {
	env := newInstallmentTestEnv(t)
	o := env.createObligation(t, uuid.New(), 1, "100", 5)
	paymentsPath := "/api/v1/obligations/" + o.ID.String() + "/payments"

	w := env.do(t, http.MethodPost, paymentsPath, map[string]any{
		"amounts":     map[string]string{"cash": "60", "yape": "40"},
		"observation": "cuota 1",
	}, middleware.IdempotencyKeyHeader, "click-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decodeData[appinstallment.PaymentResultResponse](t, w)
	assert.True(t, result.Confirmed)
	assert.Equal(t, "PAGADO", result.Obligation.Status)
	assertDecimal(t, "0", result.Obligation.PendingAmount)
	assertDecimal(t, "100", result.Payment.TotalPaid)
	assert.ElementsMatch(t, []installment.Method{installment.MethodCash, installment.MethodYape}, result.Payment.Methods)

	t.Run("repeated idempotency key", func(t *testing.T) {
		w := env.do(t, http.MethodPost, paymentsPath, map[string]any{
			"amounts": map[string]string{"cash": "60", "yape": "40"},
		}, middleware.IdempotencyKeyHeader, "click-1")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeDuplicateRequest, decodeResponse(t, w).Error.Code)
	})

	t.Run("settled obligation rejects more", func(t *testing.T) {
		w := env.do(t, http.MethodPost, paymentsPath, map[string]any{
			"amounts": map[string]string{"cash": "1"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeExceedsPending, decodeResponse(t, w).Error.Code)
	})

	w = env.do(t, http.MethodGet, paymentsPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	payments := decodeData[[]appinstallment.PaymentResponse](t, w)
	require.Len(t, payments, 1)
	assert.Equal(t, result.Payment.ID, payments[0].ID)
	assert.Equal(t, "cuota 1", payments[0].Observation)

	w = env.do(t, http.MethodDelete, paymentsPath+"/"+payments[0].ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reopened := decodeData[appinstallment.ObligationResponse](t, w)
	assert.Equal(t, "PENDIENTE", reopened.Status)
	assertDecimal(t, "100", reopened.PendingAmount)
	assert.Empty(t, reopened.Payments)

	t.Run("unknown payment", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, paymentsPath+"/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodePaymentNotFound, decodeResponse(t, w).Error.Code)
	})

	t.Run("three decimal places", func(t *testing.T) {
		w := env.do(t, http.MethodPost, paymentsPath, map[string]any{
			"amounts": map[string]string{"cash": "10.005"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.Len(t, resp.Error.Fields, 1)
		assert.Equal(t, "amounts.cash", resp.Error.Fields[0].Field)
	})
}

func TestInstallmentHandler_GetByID(t *testing.T) {
	env := newInstallmentTestEnv(t)
	o := env.createObligation(t, uuid.New(), 1, "80", -3)

	w := env.do(t, http.MethodGet, "/api/v1/obligations/"+o.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData[appinstallment.ObligationResponse](t, w)
	assert.Equal(t, "VENCIDO", got.Status)
	assert.Equal(t, 3, got.DaysOverdue)

	w = env.do(t, http.MethodGet, "/api/v1/obligations/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/obligations/123", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInstallmentHandler_ListAndSummary(t *testing.T) {
	env := newInstallmentTestEnv(t)
	documentID := uuid.New()
	env.createObligation(t, documentID, 1, "80", -3)
	env.createObligation(t, documentID, 2, "30", 3)
	env.createObligation(t, documentID, 3, "50", 30)

	t.Run("list with pagination meta", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/obligations?currency=PEN&page_size=2", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(3), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.TotalPages)
		items := decodeData[[]appinstallment.ObligationResponse](t, w)
		assert.Len(t, items, 2)
	})

	t.Run("invalid filter", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/obligations?status=OPEN", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
	})

	t.Run("by document in sequence order", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/documents/"+documentID.String()+"/obligations", nil)
		require.Equal(t, http.StatusOK, w.Code)
		items := decodeData[[]appinstallment.ObligationResponse](t, w)
		require.Len(t, items, 3)
		for i, item := range items {
			assert.Equal(t, i+1, item.SequenceNumber)
		}
	})

	t.Run("summary", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/obligations/summary", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		summary := decodeData[appinstallment.SummaryResponse](t, w)
		assert.Equal(t, 7, summary.HorizonDays)
		require.Len(t, summary.Currencies, 1)
		pen := summary.Currencies[0]
		assertDecimal(t, "160", pen.TotalPending)
		assertDecimal(t, "80", pen.TotalOverdue)
		assertDecimal(t, "30", pen.TotalDueSoon)
		assert.Equal(t, 3, pen.CountPending)
		assert.Equal(t, 1, pen.CountOverdue)
		assert.Equal(t, 1, pen.CountDueSoon)
	})

	t.Run("summary with narrow horizon", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/obligations/summary?horizon_days=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		summary := decodeData[appinstallment.SummaryResponse](t, w)
		require.Len(t, summary.Currencies, 1)
		assert.True(t, summary.Currencies[0].TotalDueSoon.IsZero())
	})

	t.Run("summary horizon out of range", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/obligations/summary?horizon_days=-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
