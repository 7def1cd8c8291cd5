package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeServiceUnavailable is used when a dependency is down
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
)

// Request error codes
const (
	// ErrCodeValidation is used when request binding fails field validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodePayloadTooLarge is used when the body exceeds the configured limit
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeForbidden is used when the caller may not see a resource
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeObligationNotFound is used when the obligation id is unknown
	ErrCodeObligationNotFound = "ERR_OBLIGATION_NOT_FOUND"
	// ErrCodePaymentNotFound is used when the payment id is unknown on the obligation
	ErrCodePaymentNotFound = "ERR_PAYMENT_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeDuplicateRequest is used when an Idempotency-Key was already used
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
)

// Payment rule error codes
const (
	// ErrCodeZeroAmount is used when no payment method carries a positive amount
	ErrCodeZeroAmount = "ERR_ZERO_AMOUNT"
	// ErrCodeNegativeAmount is used when a payment method amount is negative
	ErrCodeNegativeAmount = "ERR_NEGATIVE_AMOUNT"
	// ErrCodeExceedsPending is used when the payment total is above the pending amount
	ErrCodeExceedsPending = "ERR_EXCEEDS_PENDING"
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeInvariantViolation is used when stored state breaks a consistency rule
	ErrCodeInvariantViolation = "ERR_INVARIANT_VIOLATION"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:            http.StatusInternalServerError,
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	// Request errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeObligationNotFound:  http.StatusNotFound,
	ErrCodePaymentNotFound:     http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,

	// Payment rule errors -> 422 Unprocessable Entity
	ErrCodeZeroAmount:     http.StatusUnprocessableEntity,
	ErrCodeNegativeAmount: http.StatusUnprocessableEntity,
	ErrCodeExceedsPending: http.StatusUnprocessableEntity,
	ErrCodeInvalidState:   http.StatusUnprocessableEntity,

	// stored state is inconsistent, not the caller's fault
	ErrCodeInvariantViolation: http.StatusInternalServerError,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"OBLIGATION_NOT_FOUND":  ErrCodeObligationNotFound,
	"PAYMENT_NOT_FOUND":     ErrCodePaymentNotFound,
	"ALREADY_EXISTS":        ErrCodeAlreadyExists,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_AMOUNT":        ErrCodeInvalidInput,
	"INVALID_CURRENCY":      ErrCodeInvalidInput,
	"INVALID_DOCUMENT":      ErrCodeInvalidInput,
	"INVALID_DOCUMENT_KIND": ErrCodeInvalidInput,
	"INVALID_DUE_DATE":      ErrCodeInvalidInput,
	"INVALID_OBSERVATION":   ErrCodeInvalidInput,
	"INVALID_PAYMENT_DATE":  ErrCodeInvalidInput,
	"INVALID_SEQUENCE":      ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":  ErrCodeConcurrencyConflict,
	"DUPLICATE_REQUEST":     ErrCodeDuplicateRequest,
	"ZERO_AMOUNT":           ErrCodeZeroAmount,
	"NEGATIVE_AMOUNT":       ErrCodeNegativeAmount,
	"EXCEEDS_PENDING":       ErrCodeExceedsPending,
	"INVARIANT_VIOLATION":   ErrCodeInvariantViolation,
	"VALIDATION_ERROR":      ErrCodeValidation,
	"BAD_REQUEST":           ErrCodeBadRequest,
	"INTERNAL_ERROR":        ErrCodeInternal,
	"SCHEDULER_NOT_RUNNING": ErrCodeServiceUnavailable,
	"SWEEP_IN_PROGRESS":     ErrCodeConcurrencyConflict,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
