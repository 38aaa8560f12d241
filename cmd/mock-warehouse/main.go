// Command mock-warehouse runs a query service speaking the warehouse HTTP
// protocol (POST {"sql", "database"} returning a JSON array of rows), for
// local development and conformance testing of the code interpreter.
//
// With MOCK_WAREHOUSE_DIR set, statements run against the SQLite files in
// that directory (<database>.db). Otherwise a deterministic canned table is
// returned for every statement, except that statements containing FAIL are
// rejected with 400 and statements containing EMPTY return no rows.
//
// Configuration:
//
//	MOCK_PORT           - Listen port (default: 9091)
//	MOCK_WAREHOUSE_DIR  - Directory of SQLite databases (optional)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/frame"
	"github.com/rhuss/codeinterp/pkg/warehouse"
	"github.com/rhuss/codeinterp/pkg/warehouse/sqlite"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9091"
	}

	var backend warehouse.Backend
	if dir := os.Getenv("MOCK_WAREHOUSE_DIR"); dir != "" {
		b, err := sqlite.New(dir)
		if err != nil {
			slog.Error("opening warehouse directory", "error", err)
			os.Exit(1)
		}
		defer b.Close()
		backend = b
	}

	srv := &http.Server{Addr: ":" + port, Handler: newMux(backend)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock warehouse starting", "port", port, "sqlite", backend != nil)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock warehouse failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock warehouse shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

func newMux(backend warehouse.Backend) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", handleQuery(backend))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

type queryRequest struct {
	SQL      string `json:"sql"`
	Database string `json:"database"`
}

func handleQuery(backend warehouse.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if err := warehouse.ValidateTarget(req.Database); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var (
			table *frame.Table
			err   error
		)
		if backend != nil {
			table, err = backend.Query(r.Context(), req.Database, req.SQL)
		} else {
			table, err = cannedTable(req.SQL)
		}
		if err != nil {
			slog.Debug("query rejected", "database", req.Database, "error", err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rowObjects(table))
	}
}

// cannedTable returns the deterministic answer for statement.
func cannedTable(statement string) (*frame.Table, error) {
	upper := strings.ToUpper(statement)
	switch {
	case strings.Contains(upper, "FAIL"):
		return nil, errors.New("relation \"fail\" does not exist")
	case strings.Contains(upper, "EMPTY"):
		return frame.Empty(), nil
	}
	return frame.New(
		[]string{"region", "month", "revenue"},
		[][]any{
			{"north", "2024-01", 1200.5},
			{"north", "2024-02", 1350.0},
			{"south", "2024-01", 980.25},
			{"south", "2024-02", 1010.75},
		},
	), nil
}

// rowObjects converts a table to JSON objects keeping column order.
func rowObjects(t *frame.Table) []api.Object {
	out := make([]api.Object, 0, t.Len())
	for _, rec := range t.Records() {
		obj := make(api.Object, len(rec.Keys))
		for i, k := range rec.Keys {
			obj[i] = api.Pair{Key: k, Value: rec.Values[i]}
		}
		out = append(out, obj)
	}
	return out
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
