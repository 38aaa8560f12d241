package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/artifact/memstore"
	"github.com/rhuss/codeinterp/pkg/transport"
	transporthttp "github.com/rhuss/codeinterp/pkg/transport/http"
)

const datasetID = "5f2a4c61-3b7d-4e8a-9c0f-1d2e3f4a5b6c"

// Compile-time check that Client can replace an in-process runner.
var _ transport.Runner = (*Client)(nil)

func newTestServer(t *testing.T, runner transport.RunnerFunc) (*httptest.Server, *memstore.Store) {
	t.Helper()
	store := memstore.New(0)
	adapter := transporthttp.NewAdapter(runner, store, nil, transporthttp.DefaultConfig())
	srv := httptest.NewServer(adapter.Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func TestRun(t *testing.T) {
	var gotAuth string
	srv, _ := newTestServer(t, func(_ context.Context, req *api.RunRequest) (*api.ExecutionReport, error) {
		if req.Code != "print(1)" || req.Database != "sales" {
			return nil, api.NewInvalidRequestError("code", "unexpected request")
		}
		return &api.ExecutionReport{
			Status:        api.StatusSuccess,
			Output:        "1\n",
			Files:         []api.Artifact{api.NewArtifact(api.ArtifactDataset, datasetID)},
			ExecutionTime: 0.25,
		}, nil
	})

	// Capture the Authorization header on the way through.
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotAuth = r.Header.Get("Authorization")
		return http.DefaultTransport.RoundTrip(r)
	})}

	c := New(srv.URL+"/", WithAPIKey("sk-1"), WithHTTPClient(hc))
	report, err := c.Run(context.Background(), &api.RunRequest{Code: "print(1)", Database: "sales"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != api.StatusSuccess || report.Output != "1\n" || report.ExecutionTime != 0.25 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Files) != 1 || report.Files[0].ID != datasetID {
		t.Errorf("files = %+v", report.Files)
	}
	if gotAuth != "Bearer sk-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestRunReturnsAPIErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType api.ErrorType
		status   int
	}{
		{"invalid", api.NewInvalidRequestError("code", "code must not be empty"), api.ErrorTypeInvalidRequest, http.StatusBadRequest},
		{"saturated", api.NewTooManyRequestsError("execution pool saturated"), api.ErrorTypeTooManyRequests, http.StatusTooManyRequests},
		{"server", errors.New("disk full"), api.ErrorTypeServerError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(context.Context, *api.RunRequest) (*api.ExecutionReport, error) {
				return nil, tt.err
			})

			_, err := New(srv.URL).Run(context.Background(), &api.RunRequest{Code: "x"})
			var apiErr *api.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *api.APIError", err)
			}
			if apiErr.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", apiErr.Type, tt.wantType)
			}
			if apiErr.HTTPStatus() != tt.status {
				t.Errorf("HTTPStatus() = %d, want %d", apiErr.HTTPStatus(), tt.status)
			}
		})
	}
}

func TestDownload(t *testing.T) {
	srv, store := newTestServer(t, nil)
	if err := store.Put(context.Background(), api.ArtifactDataset, datasetID, []byte("a\n1\n")); err != nil {
		t.Fatal(err)
	}
	c := New(srv.URL)

	data, err := c.Download(context.Background(), api.ArtifactURL(api.ArtifactDataset, datasetID))
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "a\n1\n" {
		t.Errorf("data = %q", data)
	}

	_, err = c.Download(context.Background(), "files/temp/"+datasetID[:8]+".csv")
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != api.ErrorTypeNotFound {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	if err := New(srv.URL).Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
}

func TestMapHTTPErrorWithoutEnvelope(t *testing.T) {
	tests := []struct {
		status   int
		wantType api.ErrorType
	}{
		{http.StatusUnauthorized, api.ErrorTypeInvalidRequest},
		{http.StatusNotFound, api.ErrorTypeNotFound},
		{http.StatusTooManyRequests, api.ErrorTypeTooManyRequests},
		{http.StatusUnsupportedMediaType, api.ErrorTypeInvalidRequest},
		{http.StatusBadGateway, api.ErrorTypeServerError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			rec := httptest.NewRecorder()
			rec.WriteHeader(tt.status)
			rec.WriteString("plain text body")

			apiErr := mapHTTPError(rec.Result())
			if apiErr.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", apiErr.Type, tt.wantType)
			}
			if apiErr.HTTPStatus() != tt.status {
				t.Errorf("HTTPStatus() = %d, want %d", apiErr.HTTPStatus(), tt.status)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Run(context.Background(), &api.RunRequest{Code: "1"})
	if err == nil || !strings.Contains(err.Error(), "connection error") {
		t.Errorf("err = %v, want connection error", err)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
