package shared

import (
	"errors"
	"fmt"
	"testing"
)

func TestGetAppError(t *testing.T) {
	appErr := NewForbiddenError("Invalid origin")

	got, ok := GetAppError(appErr)
	if !ok {
		t.Fatal("GetAppError should recognize an AppError")
	}
	if got.StatusCode != 403 || got.Message != "Invalid origin" {
		t.Errorf("got %d %q", got.StatusCode, got.Message)
	}

	if _, ok := GetAppError(errors.New("plain")); ok {
		t.Error("plain error should not match")
	}
}

func TestGetAppErrorWrapped(t *testing.T) {
	inner := NewRateLimitError("", nil)
	wrapped := fmt.Errorf("gate: %w", inner)

	got, ok := GetAppError(wrapped)
	if !ok {
		t.Fatal("wrapped AppError should still match")
	}
	if got.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", got.StatusCode)
	}
}

func TestAppErrorMessages(t *testing.T) {
	cause := errors.New("connection refused")

	upstream := NewUpstreamError(cause, "Payment failed")
	if upstream.Error() != "connection refused" {
		t.Errorf("Error() = %q, want the cause", upstream.Error())
	}
	if !errors.Is(upstream, cause) {
		t.Error("Unwrap chain should reach the cause")
	}

	// Constructors substitute defaults for empty messages.
	if NewBadRequestError(nil, "").Message != "Bad Request" {
		t.Error("empty bad request message should default")
	}
	if NewInternalError(cause).Message != "Internal Server Error" {
		t.Error("internal error message is fixed")
	}
}
