// Package mcpserver exposes the code interpreter as a Model Context Protocol
// tool named "code_interpreter", served over streamable HTTP.
//
// The tool takes the same arguments as POST /run. Its result carries the
// JSON execution report as text content followed by every captured figure
// as PNG image content, so a calling model sees the plots without a second
// round trip.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/debug"
	"github.com/rhuss/codeinterp/pkg/transport"
)

// ToolName is the name the interpreter is registered under.
const ToolName = "code_interpreter"

const toolDescription = `Execute a JavaScript snippet against the data warehouse.
Use query(sql) (alias execute_sql) to load a table, pd/np/stats for analysis,
and plt to draw charts. Top-level tables, arrays and numbers are returned as
previews; every table is also saved as a downloadable CSV.`

// RunInput is the argument object of the code_interpreter tool.
type RunInput struct {
	Code     string `json:"code" jsonschema:"the snippet to execute"`
	Database string `json:"database,omitempty" jsonschema:"warehouse target the query capability runs against"`
}

// Server wraps an MCP server with the code_interpreter tool registered.
type Server struct {
	runner    transport.Runner
	artifacts transport.ArtifactReader
	server    *mcp.Server
}

// New creates the MCP server. The artifact reader is optional; without it
// figures are only referenced by URL in the report. Middleware is applied to
// the runner in the given order.
func New(runner transport.Runner, artifacts transport.ArtifactReader, version string, middlewares ...transport.Middleware) *Server {
	if len(middlewares) > 0 {
		runner = transport.Chain(middlewares...)(runner)
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		runner:    runner,
		artifacts: artifacts,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "codeinterp", Version: version},
			nil,
		),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolName,
		Description: toolDescription,
	}, s.run)

	return s
}

// MCP returns the underlying SDK server, for in-process transports.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Handler returns the streamable HTTP handler to mount on the API mux.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// Close ends every open client session.
func (s *Server) Close(context.Context) error {
	var errs []error
	for session := range s.server.Sessions() {
		if err := session.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) run(ctx context.Context, req *mcp.CallToolRequest, in RunInput) (*mcp.CallToolResult, struct{}, error) {
	if req != nil && req.Extra != nil && req.Extra.Header != nil {
		if id := req.Extra.Header.Get("X-Request-ID"); id != "" {
			ctx = transport.ContextWithRequestID(ctx, id)
		}
	}

	debug.Log(debug.MCP, "tool called", "tool", ToolName, "target", in.Database, "code_bytes", len(in.Code))
	report, err := s.runner.Run(ctx, &api.RunRequest{Code: in.Code, Database: in.Database})
	if err != nil {
		return toolError(err), struct{}{}, nil
	}

	body, err := json.Marshal(report)
	if err != nil {
		return toolError(fmt.Errorf("encoding report: %w", err)), struct{}{}, nil
	}

	content := []mcp.Content{&mcp.TextContent{Text: string(body)}}
	if s.artifacts != nil {
		for _, img := range report.Images {
			data, err := s.artifacts.Get(ctx, api.ArtifactImage, img.ID)
			if err != nil {
				slog.Warn("figure not attached", "id", img.ID, "error", err)
				continue
			}
			content = append(content, &mcp.ImageContent{Data: data, MIMEType: api.ArtifactImage.ContentType()})
		}
	}

	return &mcp.CallToolResult{
		Content: content,
		IsError: report.Status != api.StatusSuccess,
	}, struct{}{}, nil
}

// toolError reports a rejected submission to the caller. API errors keep
// their type so the model can tell a bad request from a saturated pool.
func toolError(err error) *mcp.CallToolResult {
	msg := err.Error()
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		msg = fmt.Sprintf("%s: %s", apiErr.Type, apiErr.Message)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
