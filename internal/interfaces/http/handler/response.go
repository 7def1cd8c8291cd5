package handler

import "github.com/backoffice/installments/internal/interfaces/http/dto"

// Envelope documents the success body of an endpoint returning T
// @Description Response envelope; data is set on success, error on failure
type Envelope[T any] struct {
	Success bool      `json:"success" example:"true"`
	Data    T         `json:"data"`
	Meta    *dto.Meta `json:"meta,omitempty"`
}

// ErrorEnvelope documents the body of a failed request
// @Description Failure envelope carrying the error code and request id
type ErrorEnvelope struct {
	Success bool          `json:"success" example:"false"`
	Error   dto.ErrorInfo `json:"error"`
}
