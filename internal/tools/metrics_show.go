package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/metrics"
)

// MetricsShowTool handles the metrics_show MCP tool.
type MetricsShowTool struct {
	layout ledger.Layout
}

// NewMetricsShowTool creates a MetricsShowTool.
func NewMetricsShowTool(layout ledger.Layout) *MetricsShowTool {
	return &MetricsShowTool{layout: layout}
}

// Definition returns the MCP tool definition for registration.
func (t *MetricsShowTool) Definition() mcp.Tool {
	return mcp.NewTool("metrics_show",
		mcp.WithDescription(
			"Show delivery metrics. Without an id, returns the project aggregate "+
				"(done/todo totals, average cycle time, phase durations). With an id, returns that feature's snapshot.",
		),
		mcp.WithString("id",
			mcp.Description("Optional feature id"),
		),
	)
}

// Handle processes the metrics_show tool call.
func (t *MetricsShowTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if id := strings.TrimSpace(req.GetString("id", "")); id != "" {
		m, err := metrics.LoadFeature(t.layout, id)
		if errors.Is(err, fs.ErrNotExist) {
			return mcp.NewToolResultError(fmt.Sprintf(
				"No metrics snapshot for %q. Run `phasegate metrics rebuild` if the feature exists.", id)), nil
		}
		if err != nil {
			return nil, fmt.Errorf("loading metrics for %s: %w", id, err)
		}
		return jsonResult(fmt.Sprintf("# Metrics: %s\n\n", id), m)
	}

	agg, err := metrics.LoadAggregated(t.layout)
	if errors.Is(err, fs.ErrNotExist) {
		return mcp.NewToolResultError("No aggregate found. Run `phasegate init` or `phasegate metrics rebuild`."), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading aggregate: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Project Metrics\n\n")
	fmt.Fprintf(&b, "**Done:** %d  **Todo:** %d\n", agg.Totals.Done, agg.Totals.Todo)
	fmt.Fprintf(&b, "**Average cycle time:** %.2fh\n", agg.Averages.CycleTimeHours)
	fmt.Fprintf(&b, "**Average task completion:** %.0f%%\n\n", agg.Averages.TaskCompletion*100)
	return jsonResult(b.String(), agg)
}

// jsonResult renders a heading followed by v as an indented JSON block.
func jsonResult(heading string, v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling metrics: %w", err)
	}
	return mcp.NewToolResultText(heading + "```json\n" + string(data) + "\n```"), nil
}
