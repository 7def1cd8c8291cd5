package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/backoffice/installments/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type amountsPayload struct {
	Cash decimal.Decimal `json:"cash" binding:"money"`
	Card decimal.Decimal `json:"card" binding:"money"`
}

type paymentPayload struct {
	Amounts     amountsPayload `json:"amounts"`
	PaymentDate string         `json:"payment_date" binding:"omitempty,datetime=2006-01-02"`
	Observation string         `json:"observation" binding:"max=5"`
}

func newValidate() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	RegisterValidations(v)
	return v
}

func TestMoneyValidation(t *testing.T) {
	v := newValidate()

	tests := []struct {
		name  string
		cash  string
		valid bool
	}{
		{"integer", "100", true},
		{"two decimals", "100.25", true},
		{"zero", "0", true},
		{"negative passes to domain", "-10.50", true},
		{"trailing zeros", "10.500", true},
		{"three decimals", "10.505", false},
		{"seventeen integer digits", "12345678901234567", false},
		{"sixteen integer digits", "1234567890123456.99", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paymentPayload{Amounts: amountsPayload{Cash: decimal.RequireFromString(tt.cash)}}
			err := v.Struct(p)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			errs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			require.Len(t, errs, 1)
			assert.Equal(t, "money", errs[0].Tag())
			assert.Equal(t, "amounts.cash", fieldPath(errs[0]))
		})
	}
}

func TestFormatValidationErrors(t *testing.T) {
	v := newValidate()

	err := v.Struct(paymentPayload{
		Amounts:     amountsPayload{Card: decimal.RequireFromString("1.001")},
		PaymentDate: "17/10/2026",
		Observation: "too long",
	})
	require.Error(t, err)

	resp := FormatValidationErrors(err, "req-1")
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	require.Len(t, resp.Error.Fields, 3)

	byField := map[string]string{}
	for _, f := range resp.Error.Fields {
		byField[f.Field] = f.Message
	}
	assert.Equal(t, "Must be an amount with at most 2 decimal places", byField["amounts.card"])
	assert.Equal(t, "Must be a date in 2006-01-02 format", byField["payment_date"])
	assert.Equal(t, "Must be at most 5 characters", byField["observation"])
}

func TestFormatValidationErrors_NonValidatorError(t *testing.T) {
	resp := FormatValidationErrors(assert.AnError, "")
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Empty(t, resp.Error.Fields)
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/payments", func(c *gin.Context) {
		var req paymentPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, req)
	})

	t.Run("rejects three decimal places", func(t *testing.T) {
		body := []byte(`{"amounts":{"cash":"10.123"}}`)
		req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(RequestIDHeader, "fixed-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "fixed-id", resp.Error.RequestID)
		require.Len(t, resp.Error.Fields, 1)
		assert.Equal(t, "amounts.cash", resp.Error.Fields[0].Field)
	})

	t.Run("accepts numeric and string amounts", func(t *testing.T) {
		body := []byte(`{"amounts":{"cash":10.5,"card":"4.50"}}`)
		req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
