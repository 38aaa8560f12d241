package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhuss/codeinterp/pkg/api"
)

// AsAPIError converts a runner error into the error served to clients.
// Errors that are not *api.APIError become server errors; a cancelled
// context means the client went away.
func AsAPIError(err error) *api.APIError {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, context.Canceled):
		return api.NewServerError("request cancelled")
	default:
		return api.NewServerError(err.Error())
	}
}

// WriteError writes err as a JSON error envelope with the matching status.
func WriteError(w http.ResponseWriter, err error) {
	apiErr := AsAPIError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus())
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}
