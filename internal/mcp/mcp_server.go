// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/perfwatch/core"
	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the perfwatch MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, env *core.Env) *server.MCPServer {
	s := server.NewMCPServer(
		"Perfwatch Performance Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		env:     env,
	}

	// --- 1. Tool: collect_metrics ---
	s.AddTool(mcp.NewTool("collect_metrics",
		mcp.WithDescription("Run the enabled collectors against a Go project and store the measurements."),
		mcp.WithString("project_path", mcp.Description("Path to the project (defaults to the configured project).")),
		mcp.WithString("collectors", mcp.Description("Comma-separated collector IDs to enable (e.g., 'build,tests').")),
	), h.handleCollectMetrics)

	// --- 2. Tool: generate_report ---
	s.AddTool(mcp.NewTool("generate_report",
		mcp.WithDescription("Summarize stored metrics for a time window, optionally compared against a baseline commit."),
		mcp.WithString("project", mcp.Description("Project name (defaults to the configured project).")),
		mcp.WithString("lookback", mcp.Description("Time window ending now (e.g., '7 days', '2 weeks').")),
		mcp.WithString("baseline", mcp.Description("Baseline commit hash to compare against.")),
	), h.handleGenerateReport)

	// --- 3. Tool: get_latest_metrics ---
	s.AddTool(mcp.NewTool("get_latest_metrics",
		mcp.WithDescription("List the newest stored measurements for a project."),
		mcp.WithString("project", mcp.Description("Project name (defaults to the configured project).")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of records to return.")),
	), h.handleGetLatestMetrics)

	// --- 4. Tool: check_regressions ---
	s.AddTool(mcp.NewTool("check_regressions",
		mcp.WithDescription("Decide whether the metrics in a window regressed against a baseline commit."),
		mcp.WithString("baseline", mcp.Description("Baseline commit hash to compare against."), mcp.Required()),
		mcp.WithString("project", mcp.Description("Project name (defaults to the configured project).")),
		mcp.WithString("lookback", mcp.Description("Time window ending now (e.g., '7 days').")),
		mcp.WithNumber("max_regressions", mcp.Description("Number of regressions tolerated before the check fails.")),
	), h.handleCheckRegressions)

	// --- 5. Tool: list_collectors ---
	s.AddTool(mcp.NewTool("list_collectors",
		mcp.WithDescription("List the known collectors with their metric types, availability and enablement."),
	), h.handleListCollectors)

	return s
}

// StartMCPServer starts the perfwatch MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, env *core.Env) error {
	s := NewMCPServer(baseCfg, env)
	return server.ServeStdio(s)
}
