package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/codeinterp/pkg/api"
)

// mapHTTPError converts a non-200 response into an APIError. The server's
// error envelope is used when present; otherwise the type is derived from
// the status code.
func mapHTTPError(resp *http.Response) *api.APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var envelope api.ErrorResponse
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return envelope.Error.WithStatus(resp.StatusCode)
	}

	var apiErr *api.APIError
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		apiErr = api.NewUnauthenticatedError("authentication required")
	case resp.StatusCode == http.StatusNotFound:
		apiErr = api.NewNotFoundError(fmt.Sprintf("not found (HTTP %d)", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr = api.NewTooManyRequestsError("server busy")
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		apiErr = api.NewInvalidRequestError("", fmt.Sprintf("request rejected (HTTP %d)", resp.StatusCode))
	default:
		apiErr = api.NewServerError(fmt.Sprintf("unexpected server error (HTTP %d)", resp.StatusCode))
	}
	return apiErr.WithStatus(resp.StatusCode)
}

func mapNetworkError(err error) *api.APIError {
	return api.NewServerError(fmt.Sprintf("connection error: %s", err.Error()))
}
