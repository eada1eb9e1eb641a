package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/phasegate/internal/features"
	"github.com/HendryAvila/phasegate/internal/ledger"
)

// FeatureListTool handles the feature_list MCP tool.
type FeatureListTool struct {
	svc    *features.Service
	layout ledger.Layout
}

// NewFeatureListTool creates a FeatureListTool.
func NewFeatureListTool(svc *features.Service, layout ledger.Layout) *FeatureListTool {
	return &FeatureListTool{svc: svc, layout: layout}
}

// Definition returns the MCP tool definition for registration.
func (t *FeatureListTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_list",
		mcp.WithDescription("List tracked features with their type and current phase."),
		mcp.WithString("type",
			mcp.Description("Only list this kind"),
			mcp.Enum("feature", "bug", "task"),
		),
		mcp.WithString("phase",
			mcp.Description("Only list features in this phase"),
			mcp.Enum("planning", "refinement", "implementation", "testing", "complete"),
		),
	)
}

// Handle processes the feature_list tool call.
func (t *FeatureListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := features.ListFilter{
		Type:  ledger.FeatureType(req.GetString("type", "")),
		Phase: ledger.Phase(req.GetString("phase", "")),
	}
	list, err := t.svc.List(ctx, t.layout, filter)
	if err != nil {
		return failure(err)
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No features found. Open one with `feature_add`."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Features (%d)\n\n", len(list))
	b.WriteString("| ID | Type | Phase | Title |\n")
	b.WriteString("|----|------|-------|-------|\n")
	for _, f := range list {
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", f.ID, f.Type, f.Phase, strings.ReplaceAll(f.Title, "|", `\|`))
	}
	return mcp.NewToolResultText(b.String()), nil
}
