package shared

import (
	"errors"
	"net/http"
)

type AppError struct {
	StatusCode int         `json:"code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`

	err error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.err
}

func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func NewBadRequestError(err error, message string) *AppError {
	if message == "" {
		message = "Bad Request"
	}
	return &AppError{StatusCode: http.StatusBadRequest, Message: message, err: err}
}

func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "Unauthorized"
	}
	return &AppError{StatusCode: http.StatusUnauthorized, Message: message}
}

func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "Forbidden"
	}
	return &AppError{StatusCode: http.StatusForbidden, Message: message}
}

func NewRateLimitError(message string, data interface{}) *AppError {
	if message == "" {
		message = "Rate limit exceeded. Try again later."
	}
	return &AppError{StatusCode: http.StatusTooManyRequests, Message: message, Data: data}
}

// NewUpstreamError carries a provider-safe message back to the caller.
// The wrapped error keeps full detail for server-side logs only.
func NewUpstreamError(err error, message string) *AppError {
	if message == "" {
		message = "Payment provider error"
	}
	return &AppError{StatusCode: http.StatusBadRequest, Message: message, err: err}
}

func NewInternalError(err error) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Message: "Internal Server Error", err: err}
}
