package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/siteqa/siteqa/internal/api"
	"github.com/siteqa/siteqa/internal/engine"
	"github.com/siteqa/siteqa/internal/stats"
	"github.com/siteqa/siteqa/internal/store"
)

// Server wraps the siteqa data layer and exposes it as MCP tools.
type Server struct {
	store  store.Store
	runner api.TestRunner
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store, r api.TestRunner) *Server {
	return &Server{store: s, runner: r}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("siteqa", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.runTestTool())
	srv.AddTool(s.getResultTool())
	srv.AddTool(s.listResultsTool())
	srv.AddTool(s.deleteResultTool())
	srv.AddTool(s.statsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// siteqa_run_test
func (s *Server) runTestTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("siteqa_run_test",
		mcp.WithDescription("Run an AI-generated browser test against a website URL. Blocks until the run finishes and returns the persisted test result as JSON."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Website URL to test")),
		mcp.WithString("username", mcp.Description("Optional login username for the site")),
		mcp.WithString("password", mcp.Description("Optional login password for the site")),
		mcp.WithString("requirements", mcp.Description("Optional free-form testing requirements")),
	)
	return tool, s.handleRunTest
}

func (s *Server) handleRunTest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: url"), nil
	}

	req := engine.TestRequest{URL: url}
	username := request.GetString("username", "")
	password := request.GetString("password", "")
	if username != "" || password != "" {
		req.Credentials = &engine.Credentials{Username: username, Password: password}
	}
	if reqs := request.GetString("requirements", ""); reqs != "" {
		req.TestRequirements = map[string]any{"notes": reqs}
	}

	result, err := s.runner.Run(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("test run failed: %v", err)), nil
	}

	return marshalResult(result)
}

// siteqa_get_result
func (s *Server) getResultTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("siteqa_get_result",
		mcp.WithDescription("Get a stored test result by id, including logs, bugs, recommendations, and screenshot URLs."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Test result id")),
	)
	return tool, s.handleGetResult
}

func (s *Server) handleGetResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	result, err := s.store.GetResult(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("test result not found: %s", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to load test result: %v", err)), nil
	}

	return marshalResult(result)
}

// siteqa_list_results
func (s *Server) listResultsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("siteqa_list_results",
		mcp.WithDescription("List all stored test results, newest first. Returns a JSON array of result summaries with id, websiteUrl, status, and counts."),
	)
	return tool, s.handleListResults
}

func (s *Server) handleListResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := s.store.ListResults(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list test results: %v", err)), nil
	}

	type resultOut struct {
		ID              string `json:"id"`
		WebsiteURL      string `json:"websiteUrl"`
		Status          string `json:"status"`
		Duration        string `json:"duration"`
		Bugs            int    `json:"bugs"`
		Recommendations int    `json:"recommendations"`
		Screenshots     int    `json:"screenshots"`
		CreatedAt       string `json:"createdAt"`
	}

	out := make([]resultOut, len(results))
	for i, r := range results {
		out[i] = resultOut{
			ID:              r.ID,
			WebsiteURL:      r.WebsiteURL,
			Status:          string(r.Status),
			Duration:        r.Duration,
			Bugs:            len(r.Bugs),
			Recommendations: len(r.Recommendations),
			Screenshots:     len(r.Screenshots),
			CreatedAt:       r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// siteqa_delete_result
func (s *Server) deleteResultTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("siteqa_delete_result",
		mcp.WithDescription("Delete a stored test result by id. Returns deleted=true, or deleted=false when no such result exists."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Test result id")),
	)
	return tool, s.handleDeleteResult
}

func (s *Server) handleDeleteResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	deleted := true
	if err := s.store.DeleteResult(ctx, id); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("failed to delete test result: %v", err)), nil
		}
		deleted = false
	}

	data, _ := json.Marshal(map[string]any{"id": id, "deleted": deleted})
	return mcp.NewToolResultText(string(data)), nil
}

// siteqa_stats
func (s *Server) statsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("siteqa_stats",
		mcp.WithDescription("Aggregate statistics over all stored test results: totals by status, pass rate, bug and recommendation counts."),
	)
	return tool, s.handleStats
}

func (s *Server) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	results, err := s.store.ListResults(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list test results: %v", err)), nil
	}

	data, err := json.Marshal(stats.Summarize(results))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
