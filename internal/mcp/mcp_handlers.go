package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/perfwatch/core"
	"github.com/huangsam/perfwatch/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	env     *core.Env
}

// jsonResult renders v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// applyProject overrides the project name when the request carries one.
func applyProject(cfg *contract.Config, request mcp.CallToolRequest) {
	if p := strings.TrimSpace(request.GetString("project", "")); p != "" {
		cfg.ProjectName = p
	}
}

// applyLookback replaces the window with one ending now.
func applyLookback(cfg *contract.Config, request mcp.CallToolRequest, now time.Time) error {
	lookback := request.GetString("lookback", "")
	if lookback == "" {
		return nil
	}
	d, err := contract.ParseLookbackDuration(lookback)
	if err != nil {
		return fmt.Errorf("invalid lookback: %w", err)
	}
	cfg.EndTime = now
	cfg.StartTime = now.Add(-d)
	return nil
}

func (h *toolHandler) handleCollectMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if p := request.GetString("project_path", ""); p != "" {
		abs, err := filepath.Abs(p)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid project path: %v", err)), nil
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			return mcp.NewToolResultError(fmt.Sprintf("invalid project path: %s is not a directory", p)), nil
		}
		cfg.ProjectPath = abs
		if h.baseCfg.ProjectPath != abs {
			cfg.ProjectName = filepath.Base(abs)
		}
	}
	if c := request.GetString("collectors", ""); c != "" {
		cfg.EnabledCollectors = contract.SplitList(c)
	}

	round, err := core.GetCollectionRound(ctx, cfg, h.env)
	if err != nil {
		if round == nil {
			return mcp.NewToolResultError(fmt.Sprintf("collection failed: %v", err)), nil
		}
		res, _ := jsonResult(round)
		res.IsError = true
		res.Content = append(res.Content, mcp.NewTextContent(fmt.Sprintf("collection failed: %v", err)))
		return res, nil
	}
	return jsonResult(round)
}

func (h *toolHandler) handleGenerateReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	applyProject(cfg, request)
	if b := request.GetString("baseline", ""); b != "" {
		cfg.BaselineCommit = contract.ResolveCommit(ctx, h.env.Git, cfg.ProjectPath, b)
	}
	if err := applyLookback(cfg, request, time.Now()); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := core.GetReport(ctx, cfg, h.env)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("report failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleGetLatestMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	applyProject(cfg, request)
	if l := request.GetInt("limit", 0); l != 0 {
		if l < 0 || l > contract.MaxResultLimit {
			return mcp.NewToolResultError(fmt.Sprintf("limit must be between 1 and %d", contract.MaxResultLimit)), nil
		}
		cfg.ResultLimit = l
	}

	records, err := core.GetLatestMetrics(ctx, cfg, h.env)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return jsonResult(records)
}

func (h *toolHandler) handleCheckRegressions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	applyProject(cfg, request)
	baseline := strings.TrimSpace(request.GetString("baseline", ""))
	if baseline == "" {
		return mcp.NewToolResultError("baseline is required"), nil
	}
	cfg.BaselineCommit = contract.ResolveCommit(ctx, h.env.Git, cfg.ProjectPath, baseline)
	cfg.MaxRegressions = request.GetInt("max_regressions", cfg.MaxRegressions)
	if err := applyLookback(cfg, request, time.Now()); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := core.RunCheck(ctx, cfg, h.env.Store, h.env.Logger)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("check failed: %v", err)), nil
	}
	return jsonResult(result)
}

func (h *toolHandler) handleListCollectors(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(core.GetCollectorInfos(h.baseCfg, h.env))
}
