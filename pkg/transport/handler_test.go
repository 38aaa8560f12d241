package transport

import (
	"context"
	"testing"

	"github.com/rhuss/codeinterp/pkg/api"
)

func TestRunnerFuncAdapter(t *testing.T) {
	var received *api.RunRequest
	fn := RunnerFunc(func(ctx context.Context, req *api.RunRequest) (*api.ExecutionReport, error) {
		received = req
		return &api.ExecutionReport{Status: api.StatusSuccess}, nil
	})

	var _ Runner = fn

	report, err := fn.Run(context.Background(), &api.RunRequest{Code: "1", Database: "sales"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != api.StatusSuccess {
		t.Errorf("Status = %q", report.Status)
	}
	if received.Target() != "sales" {
		t.Errorf("target = %q", received.Target())
	}
}

func TestRunnerFuncReturnsError(t *testing.T) {
	fn := RunnerFunc(func(context.Context, *api.RunRequest) (*api.ExecutionReport, error) {
		return nil, api.NewServerError("test error")
	})

	_, err := fn.Run(context.Background(), &api.RunRequest{})
	apiErr, ok := err.(*api.APIError)
	if !ok {
		t.Fatalf("expected *api.APIError, got %T", err)
	}
	if apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("expected error type %q, got %q", api.ErrorTypeServerError, apiErr.Type)
	}
}
