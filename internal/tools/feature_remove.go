package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/phasegate/internal/features"
	"github.com/HendryAvila/phasegate/internal/ledger"
)

// FeatureRemoveTool handles the feature_remove MCP tool.
type FeatureRemoveTool struct {
	svc    *features.Service
	layout ledger.Layout
}

// NewFeatureRemoveTool creates a FeatureRemoveTool.
func NewFeatureRemoveTool(svc *features.Service, layout ledger.Layout) *FeatureRemoveTool {
	return &FeatureRemoveTool{svc: svc, layout: layout}
}

// Definition returns the MCP tool definition for registration.
func (t *FeatureRemoveTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_remove",
		mcp.WithDescription(
			"Withdraw a feature: its folder moves verbatim to the removed root and the ledger entry is dropped. "+
				"The id is never reused.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Feature id, e.g. task-003"),
		),
	)
}

// Handle processes the feature_remove tool call.
func (t *FeatureRemoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required: pass the feature id, e.g. task-003"), nil
	}
	res, err := t.svc.Withdraw(ctx, t.layout, id)
	if err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"# Feature Removed\n\n**ID:** `%s`\n**Title:** %s\n**Folder moved to:** `%s`",
		res.Feature.ID, res.Feature.Title, res.Path,
	)), nil
}
