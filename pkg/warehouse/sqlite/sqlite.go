// Package sqlite provides a warehouse backend over a directory of SQLite
// database files. Target "sales" maps to <dir>/sales.db, opened read-only.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/rhuss/codeinterp/pkg/frame"
	"github.com/rhuss/codeinterp/pkg/warehouse"
)

// Backend is a SQLite file warehouse.
type Backend struct {
	dir string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

var _ warehouse.Backend = (*Backend)(nil)

// New returns a backend serving the database files in dir.
func New(dir string) (*Backend, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening warehouse directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return &Backend{dir: dir, dbs: map[string]*sql.DB{}}, nil
}

// Name returns "sqlite".
func (b *Backend) Name() string { return "sqlite" }

// Query runs sql against the target file.
func (b *Backend) Query(ctx context.Context, target, query string) (*frame.Table, error) {
	db, err := b.open(target)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var data [][]any
	for rows.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		for i, v := range vals {
			vals[i] = warehouse.NormalizeValue(v)
		}
		data = append(data, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return frame.New(columns, data), nil
}

// HealthCheck verifies the directory is readable.
func (b *Backend) HealthCheck(_ context.Context) error {
	_, err := os.ReadDir(b.dir)
	return err
}

// Targets lists the database names available in the directory.
func (b *Backend) Targets() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(b.dir, "*.db"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m[:len(m)-len(".db")]))
	}
	return names, nil
}

// Close closes every open database handle.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for name, db := range b.dbs {
		errs = append(errs, db.Close())
		delete(b.dbs, name)
	}
	return errors.Join(errs...)
}

func (b *Backend) open(target string) (*sql.DB, error) {
	if err := warehouse.ValidateTarget(target); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if db, ok := b.dbs[target]; ok {
		return db, nil
	}

	path := filepath.Join(b.dir, target+".db")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", warehouse.ErrUnknownTarget, target)
	}

	dsn := "file:" + path + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", target, err)
	}
	b.dbs[target] = db
	return db, nil
}
