package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/popular/internal/pipeline"
	"github.com/kalambet/popular/internal/storage"
)

// Previewer runs the selection without publishing.
type Previewer interface {
	Run(ctx context.Context, opts pipeline.Options) (pipeline.Result, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store   RunReader
	Preview Previewer // nil when the replica is unreachable
}

// NewMCPServer creates an MCP server with the run history tools and the
// latest-run resource registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"popular",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("popular selects trending Wikidata items for the main page and keeps a history of its runs."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_runs",
			mcp.WithDescription("List recent selection runs, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 10)")),
		),
		mcpListRuns(deps),
	)

	s.AddTool(
		mcp.NewTool("get_run",
			mcp.WithDescription("Show one selection run with its selected items and rendered wikitext."),
			mcp.WithString("id", mcp.Description("Run ID"), mcp.Required()),
		),
		mcpGetRun(deps),
	)

	s.AddTool(
		mcp.NewTool("preview_selection",
			mcp.WithDescription("Compute the current selection and its wikitext without publishing it. Takes a few seconds per candidate because the query service is rate limited."),
		),
		mcpPreviewSelection(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"popular://latest",
			"Latest Run",
			mcp.WithResourceDescription("Most recent selection run as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceLatest(deps),
	)

	return s
}

func mcpListRuns(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		runs, err := deps.Store.ListRuns(limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list runs: %v", err)), nil
		}
		if runs == nil {
			runs = []storage.Run{}
		}

		b, err := json.Marshal(runs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal runs: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetRun(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		run, err := deps.Store.GetRun(id)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("run %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get run: %v", err)), nil
		}

		b, err := json.Marshal(run)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal run: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpPreviewSelection(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Preview == nil {
			return mcpError("preview not available: replica unreachable"), nil
		}

		res, err := deps.Preview.Run(ctx, pipeline.Options{DryRun: true})
		if err != nil {
			return mcpError(fmt.Sprintf("preview failed: %v", err)), nil
		}

		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal preview: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceLatest(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		run, err := deps.Store.LatestRun()
		if err != nil {
			return nil, fmt.Errorf("failed to get latest run: %w", err)
		}

		b, err := json.Marshal(run)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal run: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
