// Package config provides unified configuration for the code interpreter
// service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (CODEINTERP_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the code interpreter service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Engine        EngineConfig        `yaml:"engine"`
	Artifacts     ArtifactsConfig     `yaml:"artifacts"`
	Warehouse     WarehouseConfig     `yaml:"warehouse"`
	Auth          AuthConfig          `yaml:"auth"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 120s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MiB
}

// EngineConfig holds execution settings.
type EngineConfig struct {
	Timeout        time.Duration `yaml:"timeout"`         // default: 60s
	MaxConcurrent  int           `yaml:"max_concurrent"`  // default: 4
	QueueTimeout   time.Duration `yaml:"queue_timeout"`   // default: 30s
	GracePeriod    time.Duration `yaml:"grace_period"`    // default: 2s
	CaptureTimeout time.Duration `yaml:"capture_timeout"` // default: 10s
	RequireTarget  bool          `yaml:"require_target"`  // default: false
	MaxCodeSize    int           `yaml:"max_code_size"`   // default: 1 MiB
}

// ArtifactsConfig selects where figures and datasets are persisted.
type ArtifactsConfig struct {
	Type    string       `yaml:"type"`     // "dir", "bucket" or "memory", default: "dir"
	Dir     string       `yaml:"dir"`      // default: "/tmp"
	MaxSize int          `yaml:"max_size"` // memory store entry limit, 0 = unlimited
	Bucket  BucketConfig `yaml:"bucket"`
}

// BucketConfig holds S3-compatible bucket settings.
type BucketConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	AccessKeyFile string `yaml:"access_key_file"` // _file variant for access_key
	SecretKey     string `yaml:"secret_key"`
	SecretKeyFile string `yaml:"secret_key_file"` // _file variant for secret_key
	Region        string `yaml:"region"`
	UseSSL        bool   `yaml:"use_ssl"`
	Name          string `yaml:"name"`
}

// WarehouseConfig selects the backend the query capability runs against.
type WarehouseConfig struct {
	Type     string                `yaml:"type"` // "none", "http", "postgres" or "sqlite", default: "none"
	HTTP     HTTPWarehouseConfig   `yaml:"http"`
	Postgres PostgresConfig        `yaml:"postgres"`
	SQLite   SQLiteWarehouseConfig `yaml:"sqlite"`
}

// HTTPWarehouseConfig holds settings for the HTTP query API backend.
type HTTPWarehouseConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"` // default: 60s
	Headers map[string]string `yaml:"headers"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	DSNFile  string `yaml:"dsn_file"`  // _file variant for dsn
	MaxConns int32  `yaml:"max_conns"` // per target, default: 5
}

// SQLiteWarehouseConfig holds settings for the SQLite file backend.
type SQLiteWarehouseConfig struct {
	Dir string `yaml:"dir"` // directory holding <target>.db files
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type"`     // "none", "apikey" or "jwt", default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"` // API key entries for type=apikey
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key" json:"key"`
	KeyFile     string `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject     string `yaml:"subject" json:"subject"`
	ServiceTier string `yaml:"service_tier" json:"service_tier"`
}

// JWTConfig holds bearer token validation settings. Either Secret (HMAC)
// or JWKSURL (RSA) must be set.
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	SecretFile string `yaml:"secret_file"` // _file variant for secret
	JWKSURL    string `yaml:"jwks_url"`
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
}

// RateLimitConfig bounds submissions per authenticated subject.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"` // 0 disables rate limiting
}

// MCPConfig holds the MCP tool endpoint settings.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/mcp"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // DEBUG, INFO, WARN, ERROR or TRACE, default: INFO
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     10 << 20,
		},
		Engine: EngineConfig{
			Timeout:        60 * time.Second,
			MaxConcurrent:  4,
			QueueTimeout:   30 * time.Second,
			GracePeriod:    2 * time.Second,
			CaptureTimeout: 10 * time.Second,
			MaxCodeSize:    1 << 20,
		},
		Artifacts: ArtifactsConfig{
			Type: "dir",
			Dir:  "/tmp",
		},
		Warehouse: WarehouseConfig{
			Type: "none",
			HTTP: HTTPWarehouseConfig{
				Timeout: 60 * time.Second,
			},
			Postgres: PostgresConfig{
				MaxConns: 5,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		MCP: MCPConfig{
			Enabled: true,
			Path:    "/mcp",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
