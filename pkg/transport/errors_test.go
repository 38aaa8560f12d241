package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/codeinterp/pkg/api"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   api.ErrorType
		wantMsg    string
	}{
		{"invalid request", api.NewInvalidRequestError("code", "is required"), http.StatusBadRequest, api.ErrorTypeInvalidRequest, "is required"},
		{"wrapped not found", fmt.Errorf("lookup: %w", api.NewNotFoundError("image not found")), http.StatusNotFound, api.ErrorTypeNotFound, "image not found"},
		{"saturated", api.NewTooManyRequestsError("busy"), http.StatusTooManyRequests, api.ErrorTypeTooManyRequests, "busy"},
		{"explicit status", api.NewInvalidRequestError("body", "too large").WithStatus(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge, api.ErrorTypeInvalidRequest, "too large"},
		{"plain error", errors.New("disk full"), http.StatusInternalServerError, api.ErrorTypeServerError, "disk full"},
		{"cancelled", context.Canceled, http.StatusInternalServerError, api.ErrorTypeServerError, "request cancelled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var resp api.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Type != tt.wantType || resp.Error.Message != tt.wantMsg {
				t.Errorf("error = %+v", resp.Error)
			}
		})
	}
}
