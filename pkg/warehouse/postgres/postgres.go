// Package postgres provides a PostgreSQL warehouse backend. Each query
// target is a database on the configured server; one pgx pool is kept per
// target, and every session runs with default_transaction_read_only so
// scripts cannot modify data.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/codeinterp/pkg/frame"
	"github.com/rhuss/codeinterp/pkg/warehouse"
)

// invalidCatalogName is the SQLSTATE for a database that does not exist.
const invalidCatalogName = "3D000"

// Backend is a PostgreSQL-backed warehouse.
type Backend struct {
	cfg  Config
	base *pgxpool.Config

	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

// Ensure Backend implements warehouse.Backend at compile time.
var _ warehouse.Backend = (*Backend)(nil)

// New parses the DSN. Pools are opened lazily on the first query of each
// target.
func New(cfg Config) (*Backend, error) {
	cfg.defaults()

	base, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	base.MaxConns = cfg.MaxConns
	base.MinConns = cfg.MinConns
	base.MaxConnLifetime = cfg.MaxConnLifetime
	base.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	return &Backend{cfg: cfg, base: base, pools: map[string]*pgxpool.Pool{}}, nil
}

// Name returns "postgres".
func (b *Backend) Name() string { return "postgres" }

// Query runs sql on the target database and collects every row.
func (b *Backend) Query(ctx context.Context, target, sql string) (*frame.Table, error) {
	pool, err := b.pool(ctx, target)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, sql)
	if err != nil {
		return nil, mapError(target, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	var data [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		row := make([]any, len(vals))
		for i, v := range vals {
			row[i] = normalize(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(target, err)
	}
	return frame.New(columns, data), nil
}

// HealthCheck pings the database named in the DSN.
func (b *Backend) HealthCheck(ctx context.Context) error {
	pool, err := b.pool(ctx, b.base.ConnConfig.Database)
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

// Close closes every target pool.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, p := range b.pools {
		p.Close()
		delete(b.pools, name)
	}
	return nil
}

func (b *Backend) pool(ctx context.Context, target string) (*pgxpool.Pool, error) {
	if err := warehouse.ValidateTarget(target); err != nil {
		return nil, err
	}
	if len(b.cfg.Targets) > 0 && !slices.Contains(b.cfg.Targets, target) && target != b.base.ConnConfig.Database {
		return nil, fmt.Errorf("%w: %q", warehouse.ErrUnknownTarget, target)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.pools[target]; ok {
		return p, nil
	}

	cfg := b.base.Copy()
	cfg.ConnConfig.Database = target

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool for %q: %w", target, err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, mapError(target, err)
	}
	b.pools[target] = p
	return p, nil
}

func mapError(target string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidCatalogName {
		return fmt.Errorf("%w: %q", warehouse.ErrUnknownTarget, target)
	}
	return err
}
