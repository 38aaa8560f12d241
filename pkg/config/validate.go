package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	if c.Engine.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("engine.timeout must be > 0, got %v", c.Engine.Timeout))
	}
	if c.Engine.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_concurrent must be > 0, got %d", c.Engine.MaxConcurrent))
	}
	if c.Engine.CaptureTimeout < 0 {
		errs = append(errs, fmt.Errorf("engine.capture_timeout must not be negative, got %v", c.Engine.CaptureTimeout))
	}
	if c.Engine.QueueTimeout < 0 {
		errs = append(errs, fmt.Errorf("engine.queue_timeout must not be negative, got %v", c.Engine.QueueTimeout))
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Engine.Timeout {
		errs = append(errs, fmt.Errorf("server.write_timeout (%v) must exceed engine.timeout (%v)", c.Server.WriteTimeout, c.Engine.Timeout))
	}

	switch c.Artifacts.Type {
	case "dir":
		if c.Artifacts.Dir == "" {
			errs = append(errs, fmt.Errorf("artifacts.dir is required when artifacts.type is \"dir\""))
		}
	case "bucket":
		if c.Artifacts.Bucket.Endpoint == "" || c.Artifacts.Bucket.Name == "" {
			errs = append(errs, fmt.Errorf("artifacts.bucket.endpoint and artifacts.bucket.name are required when artifacts.type is \"bucket\""))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("artifacts.type must be \"dir\", \"bucket\" or \"memory\", got %q", c.Artifacts.Type))
	}

	switch c.Warehouse.Type {
	case "none":
	case "http":
		if c.Warehouse.HTTP.URL == "" {
			errs = append(errs, fmt.Errorf("warehouse.http.url is required when warehouse.type is \"http\""))
		}
	case "postgres":
		if c.Warehouse.Postgres.DSN == "" && c.Warehouse.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("warehouse.postgres.dsn or warehouse.postgres.dsn_file is required when warehouse.type is \"postgres\""))
		}
	case "sqlite":
		if c.Warehouse.SQLite.Dir == "" {
			errs = append(errs, fmt.Errorf("warehouse.sqlite.dir is required when warehouse.type is \"sqlite\""))
		}
	default:
		errs = append(errs, fmt.Errorf("warehouse.type must be \"none\", \"http\", \"postgres\" or \"sqlite\", got %q", c.Warehouse.Type))
	}

	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
	case "jwt":
		if c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" && c.Auth.JWT.JWKSURL == "" {
			errs = append(errs, fmt.Errorf("auth.jwt.secret or auth.jwt.jwks_url is required when auth.type is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}
	if c.Auth.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("auth.rate_limit.requests_per_minute must not be negative"))
	}

	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.path must start with \"/\", got %q", c.MCP.Path))
	}
	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "TRACE", "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be TRACE, DEBUG, INFO, WARN or ERROR, got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
