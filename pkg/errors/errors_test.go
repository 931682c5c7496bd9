package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "studio not found",
			},
			expected: "NOT_FOUND: studio not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("connection refused"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: connection refused)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	if errors.Unwrap(appErr) != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status   int
		message  string
		wantCode string
		wantMsg  string
	}{
		{http.StatusBadRequest, "bad filter", CodeBadRequest, "bad filter"},
		{http.StatusUnauthorized, "", CodeUnauthorized, "Unauthorized"},
		{http.StatusForbidden, "nope", CodeForbidden, "nope"},
		{http.StatusNotFound, "", CodeNotFound, "Not Found"},
		{http.StatusConflict, "class full", CodeConflict, "class full"},
		{http.StatusUnprocessableEntity, "", CodeValidation, "Unprocessable Entity"},
		{http.StatusTooManyRequests, "", CodeRateLimited, "Too Many Requests"},
		{http.StatusGatewayTimeout, "", CodeTimeout, "Gateway Timeout"},
		{http.StatusServiceUnavailable, "", CodeUnavailable, "Service Unavailable"},
		{http.StatusInternalServerError, "boom", CodeUpstream, "boom"},
		{http.StatusBadGateway, "", CodeUpstream, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, tt.message)
			if err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", err.Code, tt.wantCode)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.StatusCode() != tt.status {
				t.Errorf("status = %d, want %d", err.StatusCode(), tt.status)
			}
		})
	}
}

func TestIsCode_ThroughWrapping(t *testing.T) {
	base := Unauthorized("token expired")
	wrapped := fmt.Errorf("fetch profile: %w", base)

	if !IsCode(wrapped, CodeUnauthorized) {
		t.Errorf("IsCode should find UNAUTHORIZED through fmt.Errorf wrapping")
	}
	if IsCode(wrapped, CodeNotFound) {
		t.Errorf("IsCode should not match a different code")
	}
	if IsCode(errors.New("plain"), CodeUnauthorized) {
		t.Errorf("IsCode should be false for non-AppError")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Instructor")
	regularErr := errors.New("regular error")

	if AsAppError(appErr) != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}
	if AsAppError(fmt.Errorf("ctx: %w", appErr)) != appErr {
		t.Errorf("AsAppError() should unwrap to the AppError")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := Validation("validation failed", nil).WithDetails(map[string]any{"field": "quantity"})

	if err.Details["field"] != "quantity" {
		t.Errorf("expected field 'quantity', got %v", err.Details["field"])
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteError(w, Unavailable("Marketplace")); err != nil {
		t.Fatalf("WriteError returned %v", err)
	}

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	body := w.Body.String()
	if !strings.Contains(body, CodeUnavailable) || !strings.Contains(body, "Marketplace is temporarily unavailable") {
		t.Errorf("unexpected body %s", body)
	}
}

func TestWriteError_PlainError(t *testing.T) {
	w := httptest.NewRecorder()
	_ = WriteError(w, errors.New("boom"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
