package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	CodeInvalidFacility   = "INVALID_FACILITY"
	CodeInvalidWindow     = "INVALID_WINDOW"
	CodeUserAlreadyBooked = "USER_ALREADY_BOOKED"
	CodeSlotConflict      = "SLOT_CONFLICT"
	CodeNoActiveBooking   = "NO_ACTIVE_BOOKING"
	CodeBookingNotFound   = "BOOKING_NOT_FOUND"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"

	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeInvalidInput = "INVALID_INPUT"
)

// AppError is the structured error returned by every service operation.
// Code distinguishes kind, Message is safe to surface to the caller,
// Err carries the underlying cause for logs only.
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
	data, _ := json.Marshal(struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	}{e.Code, e.Message, e.Details})
	return data
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Booking-domain rejections. Client input and business-rule failures are
// terminal: the caller must change the request, not retry it.

func InvalidFacility(facility string) *AppError {
	return &AppError{
		Code:       CodeInvalidFacility,
		Message:    "Invalid facility",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"facility": facility},
	}
}

func InvalidWindow(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidWindow,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func UserAlreadyBooked() *AppError {
	return &AppError{
		Code:       CodeUserAlreadyBooked,
		Message:    "User already has an active booking. Only one booking allowed at a time.",
		HTTPStatus: http.StatusBadRequest,
	}
}

func SlotConflict(message string) *AppError {
	return &AppError{
		Code:       CodeSlotConflict,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NoActiveBooking() *AppError {
	return &AppError{
		Code:       CodeNoActiveBooking,
		Message:    "No active booking found for user",
		HTTPStatus: http.StatusNotFound,
	}
}

func BookingNotFound(id string) *AppError {
	return &AppError{
		Code:       CodeBookingNotFound,
		Message:    "Booking not found",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"booking_id": id},
	}
}

// StoreUnavailable marks a transient storage failure. Unlike the
// business-rule rejections above, the caller may retry with backoff.
func StoreUnavailable(err error) *AppError {
	return &AppError{
		Code:       CodeStoreUnavailable,
		Message:    "Storage is temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// Generic constructors shared with the auth surface.

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
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

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
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

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}
