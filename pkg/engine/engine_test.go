package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/artifact/memstore"
	"github.com/rhuss/codeinterp/pkg/frame"
	"github.com/rhuss/codeinterp/pkg/runtime"
)

type fakeBackend struct {
	healthErr error
	closed    bool
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Query(_ context.Context, _, _ string) (*frame.Table, error) {
	return frame.New([]string{"one"}, [][]any{{int64(1)}}), nil
}

func (f *fakeBackend) HealthCheck(context.Context) error { return f.healthErr }

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *memstore.Store) {
	t.Helper()
	store := memstore.New(100)
	e, err := New(store, &fakeBackend{}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, store
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := New(nil, nil, Config{}); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestRunStatuses(t *testing.T) {
	e, _ := newTestEngine(t, Config{Timeout: time.Second, GracePeriod: 200 * time.Millisecond})

	tests := []struct {
		name       string
		code       string
		wantStatus api.Status
		wantErrors string
	}{
		{"success", `print("ok")`, api.StatusSuccess, ""},
		{"thrown error", `throw new Error("x")`, api.StatusError, "Error: x"},
		{"timeout", `while (true) {}`, api.StatusTimeout, "Code execution timed out after 1 seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := e.Run(context.Background(), &api.RunRequest{Code: tt.code})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if report.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q (errors %q)", report.Status, tt.wantStatus, report.Errors)
			}
			if !strings.Contains(report.Errors, tt.wantErrors) {
				t.Errorf("Errors = %q, want it to contain %q", report.Errors, tt.wantErrors)
			}
			if report.Status != api.StatusSuccess && (len(report.Images) != 0 || len(report.Objects) != 0 || len(report.Files) != 0) {
				t.Errorf("failed run captured artifacts: %+v", report)
			}
			if report.ExecutionTime <= 0 {
				t.Errorf("ExecutionTime = %v, want > 0", report.ExecutionTime)
			}
		})
	}
}

func TestRunCapturesFigures(t *testing.T) {
	e, store := newTestEngine(t, Config{})

	report, err := e.Run(context.Background(), &api.RunRequest{Code: `plt.plot([1,2],[3,4]); print("done")`})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != api.StatusSuccess {
		t.Fatalf("Status = %q, errors %q", report.Status, report.Errors)
	}
	if report.Output != "done\n" {
		t.Errorf("Output = %q, want %q", report.Output, "done\n")
	}
	if len(report.Images) != 1 {
		t.Fatalf("Images = %d, want 1", len(report.Images))
	}
	img := report.Images[0]
	if !strings.HasPrefix(img.URL, "/images/temp/") || !strings.HasSuffix(img.URL, ".png") {
		t.Errorf("URL = %q", img.URL)
	}
	png, err := store.Get(context.Background(), api.ArtifactImage, img.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.HasPrefix(string(png), "\x89PNG") {
		t.Error("stored image is not a PNG")
	}
}

func TestRunUnboundQuery(t *testing.T) {
	e, _ := newTestEngine(t, Config{})

	report, err := e.Run(context.Background(), &api.RunRequest{Code: `query("SELECT 1")`})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != api.StatusError {
		t.Errorf("Status = %q, want error", report.Status)
	}
	if !strings.Contains(report.Errors, "QueryError") {
		t.Errorf("Errors = %q, want a QueryError", report.Errors)
	}
	if len(report.Objects) != 0 || len(report.Files) != 0 {
		t.Errorf("objects=%v files=%v, want none", report.Objects, report.Files)
	}
}

func TestRunQueryTablePersistsDataset(t *testing.T) {
	e, store := newTestEngine(t, Config{})

	report, err := e.Run(context.Background(), &api.RunRequest{Code: `df = query("SELECT 1")`, Database: "sales"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != api.StatusSuccess {
		t.Fatalf("Status = %q, errors %q", report.Status, report.Errors)
	}

	p, ok := report.Objects["df"]
	if !ok {
		t.Fatalf("objects = %v, want df", report.Objects)
	}
	if p.Kind != api.PreviewTable || p.Table.Rows != 1 {
		t.Fatalf("preview = %+v", p)
	}
	if len(report.Files) != 1 {
		t.Fatalf("Files = %d, want 1", len(report.Files))
	}
	if p.Table.File != report.Files[0].URL {
		t.Errorf("File = %q, want %q", p.Table.File, report.Files[0].URL)
	}
	data, err := store.Get(context.Background(), api.ArtifactDataset, report.Files[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "one\n1\n" {
		t.Errorf("csv = %q", data)
	}
}

func TestRunRejectsInvalidRequests(t *testing.T) {
	e, _ := newTestEngine(t, Config{RequireTarget: true})

	tests := []struct {
		name string
		req  *api.RunRequest
	}{
		{"blank code", &api.RunRequest{Code: "  ", Database: "sales"}},
		{"missing target", &api.RunRequest{Code: "1"}},
		{"bad target", &api.RunRequest{Code: "1", Database: "../etc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Run(context.Background(), tt.req)
			var apiErr *api.APIError
			if !errors.As(err, &apiErr) || apiErr.Type != api.ErrorTypeInvalidRequest {
				t.Errorf("err = %v, want invalid_request", err)
			}
		})
	}
}

func TestRunSaturated(t *testing.T) {
	e, _ := newTestEngine(t, Config{MaxConcurrent: 1, QueueTimeout: 50 * time.Millisecond})

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := e.Execute(context.Background(), Submission{
			Code:    `query("SELECT 1")`,
			Timeout: 10 * time.Second,
			Query: func(context.Context, string) (*frame.Table, error) {
				close(started)
				<-release
				return frame.Empty(), nil
			},
		})
		done <- err
	}()
	<-started

	_, err := e.Run(context.Background(), &api.RunRequest{Code: "1"})
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != api.ErrorTypeTooManyRequests {
		t.Errorf("err = %v, want too_many_requests", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first submission: %v", err)
	}
}

func TestExecuteIgnoresCancellationOnceRunning(t *testing.T) {
	e, _ := newTestEngine(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	report, err := e.Execute(ctx, Submission{
		Code: `query("SELECT 1"); print("after")`,
		Query: func(context.Context, string) (*frame.Table, error) {
			cancel()
			return frame.Empty(), nil
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Status != api.StatusSuccess || report.Output != "after\n" {
		t.Errorf("report = %+v", report)
	}
}

func TestExecuteCancelledWhileQueued(t *testing.T) {
	e, _ := newTestEngine(t, Config{MaxConcurrent: 1})
	if err := e.acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer e.release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := e.Execute(ctx, Submission{Code: "1"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestHealthCheckAndClose(t *testing.T) {
	b := &fakeBackend{healthErr: errors.New("down")}
	e, err := New(memstore.New(10), b, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.HealthCheck(context.Background()); err == nil || !strings.Contains(err.Error(), "warehouse fake") {
		t.Errorf("HealthCheck = %v", err)
	}
	if err := e.Close(); err != nil || !b.closed {
		t.Errorf("Close = %v, closed = %v", err, b.closed)
	}
}

func TestAssembleCollectionsNonNil(t *testing.T) {
	raw := &runtime.RawRunResult{Status: api.StatusError, Stdout: "a", Stderr: "Error: b\n"}
	report := Assemble(raw, nil, nil, nil, 1500*time.Millisecond)

	if report.Images == nil || report.Objects == nil || report.Files == nil {
		t.Fatalf("nil collection in %+v", report)
	}
	if report.Status != api.StatusError || report.Output != "a" || report.Errors != "Error: b\n" {
		t.Errorf("report = %+v", report)
	}
	if report.ExecutionTime != 1.5 {
		t.Errorf("ExecutionTime = %v, want 1.5", report.ExecutionTime)
	}
}

func TestRunThrowingGetterDegradesToPlaceholder(t *testing.T) {
	e, _ := newTestEngine(t, Config{})

	report, err := e.Run(context.Background(), &api.RunRequest{Code: `
Object.defineProperty(globalThis, "boom", {enumerable: true, get() { throw new Error("nope") }});
x = 1;
`})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != api.StatusSuccess {
		t.Fatalf("Status = %q, errors %q", report.Status, report.Errors)
	}
	if got := report.Objects["boom"].JSONValue(); got != "<Error capturing object: Error: nope>" {
		t.Errorf("boom = %v", got)
	}
	if report.Objects["x"].Value != int64(1) {
		t.Errorf("x = %+v", report.Objects["x"])
	}
}

func TestRunCaptureIsBounded(t *testing.T) {
	e, _ := newTestEngine(t, Config{Timeout: time.Second, CaptureTimeout: 200 * time.Millisecond})

	done := make(chan *api.ExecutionReport, 1)
	go func() {
		report, err := e.Run(context.Background(), &api.RunRequest{Code: `var x = { get a() { while (true) {} } }; var y = 2;`})
		if err != nil {
			t.Errorf("Run: %v", err)
		}
		done <- report
	}()

	select {
	case report := <-done:
		if report == nil {
			return
		}
		if report.Status != api.StatusSuccess {
			t.Fatalf("Status = %q", report.Status)
		}
		got, _ := report.Objects["x"].JSONValue().(string)
		if !strings.HasPrefix(got, "<Error capturing object: ") {
			t.Errorf("x = %v, want an error placeholder", report.Objects["x"].JSONValue())
		}
		if report.Objects["y"].Value != int64(2) {
			t.Errorf("y = %+v", report.Objects["y"])
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish after its capture deadline")
	}
}

func TestRunHugeHistogramIsCapped(t *testing.T) {
	e, _ := newTestEngine(t, Config{Timeout: time.Second})

	start := time.Now()
	report, err := e.Run(context.Background(), &api.RunRequest{Code: `plt.hist([1, 2, 3], 20000000)`})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != api.StatusSuccess || len(report.Images) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if elapsed := time.Since(start); elapsed > 15*time.Second {
		t.Errorf("run took %v", elapsed)
	}
}
