// Command server runs the code interpreter service.
//
// Configuration is loaded by pkg/config: defaults, then a YAML file
// (CODEINTERP_CONFIG, ./config.yaml or /etc/codeinterp/config.yaml), then
// CODEINTERP_* environment overrides. Common variables:
//
//	CODEINTERP_PORT       - Listen port (default: 8080)
//	CODEINTERP_WAREHOUSE  - Warehouse type: "none", "http", "postgres" or "sqlite"
//	CODEINTERP_ARTIFACTS  - Artifact store: "dir", "bucket" or "memory" (default: "dir")
//	CODEINTERP_TIMEOUT    - Per-submission timeout (default: 60s)
//	CODEINTERP_AUTH_TYPE  - "none", "apikey" or "jwt" (default: "none")
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/codeinterp/pkg/artifact"
	"github.com/rhuss/codeinterp/pkg/artifact/bucket"
	"github.com/rhuss/codeinterp/pkg/artifact/filestore"
	"github.com/rhuss/codeinterp/pkg/artifact/memstore"
	"github.com/rhuss/codeinterp/pkg/auth"
	"github.com/rhuss/codeinterp/pkg/auth/apikey"
	"github.com/rhuss/codeinterp/pkg/auth/jwt"
	"github.com/rhuss/codeinterp/pkg/auth/noop"
	"github.com/rhuss/codeinterp/pkg/config"
	"github.com/rhuss/codeinterp/pkg/debug"
	"github.com/rhuss/codeinterp/pkg/engine"
	"github.com/rhuss/codeinterp/pkg/mcpserver"
	"github.com/rhuss/codeinterp/pkg/observability"
	"github.com/rhuss/codeinterp/pkg/transport"
	transporthttp "github.com/rhuss/codeinterp/pkg/transport/http"
	"github.com/rhuss/codeinterp/pkg/warehouse"
	"github.com/rhuss/codeinterp/pkg/warehouse/httpapi"
	"github.com/rhuss/codeinterp/pkg/warehouse/postgres"
	"github.com/rhuss/codeinterp/pkg/warehouse/sqlite"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	debug.Init(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})
	logger := slog.Default()

	ctx := context.Background()
	store, err := buildArtifactStore(ctx, cfg.Artifacts)
	if err != nil {
		return fmt.Errorf("creating artifact store: %w", err)
	}

	backend, err := buildWarehouse(cfg.Warehouse)
	if err != nil {
		return fmt.Errorf("creating warehouse: %w", err)
	}

	eng, err := engine.New(store, backend, engine.Config{
		Timeout:        cfg.Engine.Timeout,
		MaxConcurrent:  cfg.Engine.MaxConcurrent,
		QueueTimeout:   cfg.Engine.QueueTimeout,
		GracePeriod:    cfg.Engine.GracePeriod,
		CaptureTimeout: cfg.Engine.CaptureTimeout,
		RequireTarget:  cfg.Engine.RequireTarget,
		MaxCodeSize:    cfg.Engine.MaxCodeSize,
	}, engine.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
	}

	if cfg.Observability.Metrics.Enabled {
		opts = append(opts,
			transporthttp.WithRoute("GET "+cfg.Observability.Metrics.Path, promhttp.Handler()),
			transporthttp.WithHTTPMiddleware(observability.HTTPMetrics),
		)
	}

	authMW, err := buildAuth(cfg)
	if err != nil {
		return fmt.Errorf("configuring auth: %w", err)
	}
	if authMW != nil {
		opts = append(opts, transporthttp.WithHTTPMiddleware(authMW))
	}

	if cfg.MCP.Enabled {
		mcpSrv := mcpserver.New(eng, store, version,
			transport.Recovery(),
			transport.RequestID(),
			transport.Logging(logger),
		)
		opts = append(opts,
			transporthttp.WithRoute(cfg.MCP.Path, mcpSrv.Handler()),
			transporthttp.WithShutdownHook(mcpSrv.Close),
		)
	}

	// The engine closes last so warehouse pools outlive running queries.
	opts = append(opts, transporthttp.WithShutdownHook(func(context.Context) error {
		return eng.Close()
	}))

	srv := transporthttp.NewServer(eng, store, eng, opts...)

	logger.Info("code interpreter configured",
		"version", version,
		"artifacts", cfg.Artifacts.Type,
		"warehouse", cfg.Warehouse.Type,
		"auth", cfg.Auth.Type,
		"max_concurrent", cfg.Engine.MaxConcurrent,
		"timeout", cfg.Engine.Timeout,
		"capabilities", eng.Capabilities().Version,
	)

	return srv.ListenAndServe()
}

func buildArtifactStore(ctx context.Context, cfg config.ArtifactsConfig) (artifact.Store, error) {
	switch cfg.Type {
	case "memory":
		return memstore.New(cfg.MaxSize), nil
	case "bucket":
		return bucket.New(ctx, bucket.Config{
			Endpoint:  cfg.Bucket.Endpoint,
			AccessKey: cfg.Bucket.AccessKey,
			SecretKey: cfg.Bucket.SecretKey,
			Region:    cfg.Bucket.Region,
			UseSSL:    cfg.Bucket.UseSSL,
			Name:      cfg.Bucket.Name,
		})
	case "dir", "":
		return filestore.New(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown artifact store type %q", cfg.Type)
	}
}

// buildWarehouse returns nil for type "none"; queries then fail inside the
// script.
func buildWarehouse(cfg config.WarehouseConfig) (warehouse.Backend, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "http":
		return httpapi.New(httpapi.Config{
			URL:     cfg.HTTP.URL,
			Timeout: cfg.HTTP.Timeout,
			Headers: cfg.HTTP.Headers,
		})
	case "postgres":
		return postgres.New(postgres.Config{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
		})
	case "sqlite":
		return sqlite.New(cfg.SQLite.Dir)
	default:
		return nil, fmt.Errorf("unknown warehouse type %q", cfg.Type)
	}
}

// buildAuth returns the authentication middleware, or nil when neither
// authentication nor rate limiting is configured.
func buildAuth(cfg *config.Config) (func(http.Handler) http.Handler, error) {
	var limiter auth.RateLimiter
	if rpm := cfg.Auth.RateLimit.RequestsPerMinute; rpm > 0 {
		limiter = auth.NewInProcessLimiter(nil, rpm)
	}

	var authn auth.Authenticator
	switch cfg.Auth.Type {
	case "none", "":
		if limiter == nil {
			return nil, nil
		}
		authn = noop.New(auth.Identity{})
	case "apikey":
		keys := make([]apikey.Key, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			keys = append(keys, apikey.Key{
				Secret:   k.Key,
				Identity: auth.Identity{Subject: k.Subject, ServiceTier: k.ServiceTier},
			})
		}
		authn = apikey.New(keys...)
	case "jwt":
		authn = jwt.New(jwt.Config{
			Issuer:   cfg.Auth.JWT.Issuer,
			Audience: cfg.Auth.JWT.Audience,
			Secret:   []byte(cfg.Auth.JWT.Secret),
			JWKSURL:  cfg.Auth.JWT.JWKSURL,
		})
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}

	bypass := slices.Clone(auth.DefaultBypassEndpoints)
	if p := cfg.Observability.Metrics.Path; p != "" && !slices.Contains(bypass, p) {
		bypass = append(bypass, p)
	}
	return auth.NewGuard(auth.NewChain(authn), limiter, bypass...).Wrap, nil
}
