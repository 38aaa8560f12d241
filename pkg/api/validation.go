package api

import (
	"fmt"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxCodeSize   int
	RequireTarget bool
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxCodeSize:   1 << 20, // 1MB
		RequireTarget: true,
	}
}

// ValidateRunRequest checks a RunRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request
// is valid. Validation happens before any execution is scheduled.
func ValidateRunRequest(req *RunRequest, cfg ValidationConfig) *APIError {
	if strings.TrimSpace(req.Code) == "" {
		return NewInvalidRequestError("code", "Code cannot be empty")
	}

	if cfg.MaxCodeSize > 0 && len(req.Code) > cfg.MaxCodeSize {
		return NewInvalidRequestError("code",
			fmt.Sprintf("code exceeds maximum size of %d bytes", cfg.MaxCodeSize))
	}

	if req.Database != "" && req.QueryTarget != "" && req.Database != req.QueryTarget {
		return NewInvalidRequestError("query_target", "database and query_target disagree")
	}

	if cfg.RequireTarget && strings.TrimSpace(req.Target()) == "" {
		return NewInvalidRequestError("database", "database is required")
	}

	return nil
}
