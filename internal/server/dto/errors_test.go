package dto

import (
	"errors"
	"net/http"
	"testing"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   ErrorCode
		wantMsg    string
	}{
		{"not found", NotFound("Todo"), http.StatusNotFound, ErrorCodeNotFound, "Todo not found"},
		{"method", MethodNotAllowed("PATCH"), http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "Method PATCH not allowed"},
		{"validation", ValidationFailed("bad"), http.StatusUnprocessableEntity, ErrorCodeValidationFailed, "bad"},
		{"missing field", MissingField("title"), http.StatusUnprocessableEntity, ErrorCodeMissingField, "Missing required field: title"},
		{"invalid field", InvalidField("id", "must be an integer"), http.StatusUnprocessableEntity, ErrorCodeInvalidFormat, "Invalid field id: must be an integer"},
		{"internal", Internal("boom"), http.StatusInternalServerError, ErrorCodeInternal, "boom"},
		{"rate limit", RateLimitExceeded(3), http.StatusTooManyRequests, ErrorCodeRateLimitExceeded, "Rate limit exceeded, retry after 3s"},
		{"too large", PayloadTooLarge(10), http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge, "Request body too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.StatusCode(); got != tt.wantStatus {
				t.Errorf("StatusCode() = %d, want %d", got, tt.wantStatus)
			}
			if got := tt.err.Code(); got != tt.wantCode {
				t.Errorf("Code() = %q, want %q", got, tt.wantCode)
			}
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			var ews ErrorWithStatus
			if !errors.As(error(tt.err), &ews) {
				t.Error("APIError should implement ErrorWithStatus")
			}
		})
	}
}

func TestAPIErrorDetails(t *testing.T) {
	err := MissingField("title")
	if got := err.Details()["field"]; got != "title" {
		t.Errorf("details[field] = %v", got)
	}
	err = InvalidField("id", "nope").WithDetail("value", "abc")
	d := err.Details()
	if d["field"] != "id" || d["reason"] != "nope" || d["value"] != "abc" {
		t.Errorf("details = %v", d)
	}
}

func TestAPIErrorWrap(t *testing.T) {
	base := errors.New("disk I/O error")
	err := InternalWithError("Failed to list todos", base)
	if !errors.Is(err, base) {
		t.Error("errors.Is should find the wrapped error")
	}
	if got := err.Error(); got != "Failed to list todos: disk I/O error" {
		t.Errorf("Error() = %q", got)
	}
	if got := err.Message(); got != "Failed to list todos" {
		t.Errorf("Message() = %q", got)
	}
}
