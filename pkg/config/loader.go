package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, CODEINTERP_CONFIG env, ./config.yaml, /etc/codeinterp/config.yaml)
//  3. CODEINTERP_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. CODEINTERP_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/codeinterp/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("CODEINTERP_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/codeinterp/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps CODEINTERP_* environment variables to config
// fields. Malformed numbers and durations are reported, not ignored.
func applyEnvOverrides(cfg *Config) error {
	e := envReader{}

	e.int("CODEINTERP_PORT", &cfg.Server.Port)
	e.duration("CODEINTERP_TIMEOUT", &cfg.Engine.Timeout)
	e.int("CODEINTERP_MAX_CONCURRENT", &cfg.Engine.MaxConcurrent)
	e.duration("CODEINTERP_QUEUE_TIMEOUT", &cfg.Engine.QueueTimeout)
	e.duration("CODEINTERP_CAPTURE_TIMEOUT", &cfg.Engine.CaptureTimeout)
	e.bool("CODEINTERP_REQUIRE_TARGET", &cfg.Engine.RequireTarget)

	e.str("CODEINTERP_ARTIFACTS", &cfg.Artifacts.Type)
	e.str("CODEINTERP_ARTIFACTS_DIR", &cfg.Artifacts.Dir)
	e.str("CODEINTERP_BUCKET_ENDPOINT", &cfg.Artifacts.Bucket.Endpoint)
	e.str("CODEINTERP_BUCKET_NAME", &cfg.Artifacts.Bucket.Name)
	e.str("CODEINTERP_BUCKET_ACCESS_KEY", &cfg.Artifacts.Bucket.AccessKey)
	e.str("CODEINTERP_BUCKET_SECRET_KEY", &cfg.Artifacts.Bucket.SecretKey)

	e.str("CODEINTERP_WAREHOUSE", &cfg.Warehouse.Type)
	e.str("CODEINTERP_WAREHOUSE_URL", &cfg.Warehouse.HTTP.URL)
	e.str("CODEINTERP_POSTGRES_DSN", &cfg.Warehouse.Postgres.DSN)
	e.str("CODEINTERP_SQLITE_DIR", &cfg.Warehouse.SQLite.Dir)

	e.str("CODEINTERP_AUTH_TYPE", &cfg.Auth.Type)
	e.str("CODEINTERP_JWT_SECRET", &cfg.Auth.JWT.Secret)
	e.str("CODEINTERP_JWKS_URL", &cfg.Auth.JWT.JWKSURL)

	e.str("CODEINTERP_LOG_LEVEL", &cfg.Logging.Level)
	e.str("CODEINTERP_LOG_FORMAT", &cfg.Logging.Format)
	e.str("CODEINTERP_DEBUG", &cfg.Logging.Debug)

	// CODEINTERP_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("CODEINTERP_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("CODEINTERP_API_KEYS: %w", err))
		} else if len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	return e.err()
}

// envReader collects parse errors while overriding fields from the
// environment. Unset or empty variables leave the field untouched.
type envReader struct {
	errs []error
}

func (e *envReader) str(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func (e *envReader) int(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) bool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(name string, dst *time.Duration) {
	if v := os.Getenv(name); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = d
	}
}

func (e *envReader) err() error {
	return errors.Join(e.errs...)
}

// parseDuration accepts Go duration strings and bare seconds.
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	refs := []struct {
		path  string
		file  string
		value *string
	}{
		{"artifacts.bucket.access_key_file", cfg.Artifacts.Bucket.AccessKeyFile, &cfg.Artifacts.Bucket.AccessKey},
		{"artifacts.bucket.secret_key_file", cfg.Artifacts.Bucket.SecretKeyFile, &cfg.Artifacts.Bucket.SecretKey},
		{"warehouse.postgres.dsn_file", cfg.Warehouse.Postgres.DSNFile, &cfg.Warehouse.Postgres.DSN},
		{"auth.jwt.secret_file", cfg.Auth.JWT.SecretFile, &cfg.Auth.JWT.Secret},
	}
	for _, r := range refs {
		if r.file == "" || *r.value != "" {
			continue
		}
		val, err := readSecretFile(r.file)
		if err != nil {
			return fmt.Errorf("%s: %w", r.path, err)
		}
		*r.value = val
	}

	// auth.api_keys[*].key_file -> auth.api_keys[*].key
	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
