package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/phasegate/internal/features"
	"github.com/HendryAvila/phasegate/internal/ledger"
)

// FeatureAddTool handles the feature_add MCP tool.
type FeatureAddTool struct {
	svc    *features.Service
	layout ledger.Layout
}

// NewFeatureAddTool creates a FeatureAddTool.
func NewFeatureAddTool(svc *features.Service, layout ledger.Layout) *FeatureAddTool {
	return &FeatureAddTool{svc: svc, layout: layout}
}

// Definition returns the MCP tool definition for registration.
func (t *FeatureAddTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_add",
		mcp.WithDescription(
			"Open a new feature, bug or task. Creates the ledger entry in the planning phase "+
				"and scaffolds its folder with feature.yaml and a planning.md skeleton.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short human title, e.g. 'Login fails on Safari'"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Kind of work item. Decides which gates apply."),
			mcp.Enum("feature", "bug", "task"),
		),
		mcp.WithString("external_id",
			mcp.Description("Optional tracker reference such as GH-123"),
		),
		mcp.WithString("description",
			mcp.Description("Optional longer description"),
		),
		mcp.WithBoolean("rollback",
			mcp.Description("If true, drop the ledger entry again when the folder cannot be created (default: false)"),
		),
	)
}

// Handle processes the feature_add tool call.
func (t *FeatureAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := ledger.AddParams{
		Title:       req.GetString("title", ""),
		Type:        ledger.FeatureType(req.GetString("type", "")),
		ExternalID:  req.GetString("external_id", ""),
		Description: req.GetString("description", ""),
	}

	res, err := t.svc.Open(ctx, t.layout, params, boolArg(req, "rollback", false))
	if err != nil {
		return failure(err)
	}

	var b strings.Builder
	b.WriteString("# Feature Opened\n\n")
	writeFeature(&b, res.Feature)
	fmt.Fprintf(&b, "**Folder:** `%s`\n\n", res.Path)
	fmt.Fprintf(&b, "Fill in `%s`, then call `feature_advance` with id `%s`.",
		ledger.ArtifactFilename(res.Feature.Phase), res.Feature.ID)
	return mcp.NewToolResultText(b.String()), nil
}
