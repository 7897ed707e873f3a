package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
	CodeTimeout      = "TIMEOUT"

	// Booking-domain codes. These map one-to-one onto the coordinator's
	// failure modes and carry their own HTTP statuses.
	CodeSoldOut               = "SOLD_OUT"
	CodeInvalidPaymentDetails = "INVALID_PAYMENT_DETAILS"
	CodeIntentNotActive       = "INTENT_NOT_ACTIVE"
	CodePaymentFailed         = "PAYMENT_FAILED"
	CodeSettlementTimeout     = "SETTLEMENT_TIMEOUT"
	CodeStorageUnavailable    = "STORAGE_UNAVAILABLE"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func (e *AppError) ToJSON() []byte {
	data, _ := json.Marshal(ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
	return data
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// SoldOut indicates no remaining capacity for the requested listing and dates.
// Not retryable without changing dates or guest count.
func SoldOut(listingID string) *AppError {
	return &AppError{
		Code:       CodeSoldOut,
		Message:    "No availability for the requested dates",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"listing_id": listingID,
		},
	}
}

// InvalidPaymentDetails indicates method-specific validation failed before any
// charge was attempted. The caller should correct the details and resubmit.
func InvalidPaymentDetails(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeInvalidPaymentDetails,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

// IntentNotActive indicates the reservation intent is expired or already
// consumed. The caller must restart checkout.
func IntentNotActive(intentID string) *AppError {
	return &AppError{
		Code:       CodeIntentNotActive,
		Message:    "Reservation intent is no longer active",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"intent_id": intentID,
		},
	}
}

// PaymentFailed indicates the gateway declined or gave up after retries.
// Retryable within the hold window.
func PaymentFailed(message string, err error) *AppError {
	return &AppError{
		Code:       CodePaymentFailed,
		Message:    message,
		HTTPStatus: http.StatusPaymentRequired,
		Err:        err,
	}
}

// SettlementTimeout indicates a bank transfer never settled and the booking
// was auto-cancelled with its capacity released.
func SettlementTimeout(intentID string) *AppError {
	return &AppError{
		Code:       CodeSettlementTimeout,
		Message:    "Bank transfer was not settled in time",
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"intent_id": intentID,
		},
	}
}

// StorageUnavailable wraps any persistent-store I/O failure. These are never
// swallowed: partial occupancy mutations must always surface to the caller.
func StorageUnavailable(operation string, err error) *AppError {
	return &AppError{
		Code:       CodeStorageUnavailable,
		Message:    fmt.Sprintf("Storage operation failed: %s", operation),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}
