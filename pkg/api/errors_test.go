package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantString string
		wantStatus int
	}{
		{
			name:       "invalid request with param",
			err:        NewInvalidRequestError("code", "Code cannot be empty"),
			wantString: "invalid_request: Code cannot be empty (param: code)",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unauthenticated",
			err:        NewUnauthenticatedError("authentication required"),
			wantString: "invalid_request: authentication required",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not found",
			err:        NewNotFoundError("image not found"),
			wantString: "not_found: image not found",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "saturated",
			err:        NewTooManyRequestsError("worker pool saturated"),
			wantString: "too_many_requests: worker pool saturated",
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "server error",
			err:        NewServerError("internal failure"),
			wantString: "server_error: internal failure",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "unknown type",
			err:        &APIError{Type: "teapot", Message: "short and stout"},
			wantString: "teapot: short and stout",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "explicit status",
			err:        NewInvalidRequestError("content_type", "Content-Type must be application/json").WithStatus(http.StatusUnsupportedMediaType),
			wantString: "invalid_request: Content-Type must be application/json (param: content_type)",
			wantStatus: http.StatusUnsupportedMediaType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error = tt.err
			if got := err.Error(); got != tt.wantString {
				t.Errorf("Error() = %q, want %q", got, tt.wantString)
			}
			if got := tt.err.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestErrorResponseEnvelope(t *testing.T) {
	data, err := json.Marshal(ErrorResponse{Error: NewServerError("fail").WithStatus(http.StatusBadGateway)})
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if got != `{"error":{"type":"server_error","message":"fail"}}` {
		t.Errorf("json = %s", got)
	}
	for _, absent := range []string{"code", "param", "Status"} {
		if strings.Contains(got, absent) {
			t.Errorf("json contains %q: %s", absent, got)
		}
	}
}
