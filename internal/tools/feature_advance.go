package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/phasegate/internal/features"
	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/transition"
)

// FeatureAdvanceTool handles the feature_advance MCP tool.
// A rejected gate is a normal result, not a tool error: the model is
// expected to fix the document and call again.
type FeatureAdvanceTool struct {
	svc    *features.Service
	layout ledger.Layout
}

// NewFeatureAdvanceTool creates a FeatureAdvanceTool.
func NewFeatureAdvanceTool(svc *features.Service, layout ledger.Layout) *FeatureAdvanceTool {
	return &FeatureAdvanceTool{svc: svc, layout: layout}
}

// Definition returns the MCP tool definition for registration.
func (t *FeatureAdvanceTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_advance",
		mcp.WithDescription(
			"Run the phase gate for a feature and, if it passes, move it to the next (or a later) phase. "+
				"The gate for the target phase reads the document of the phase before it (planning.md, refinement.md, "+
				"implementation.md or testing.md). Use dry_run to see the verdict without moving.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Feature id, e.g. bug-001"),
		),
		mcp.WithString("to",
			mcp.Description("Target phase. Defaults to the next phase; any later phase is accepted and its gate decides."),
			mcp.Enum("refinement", "implementation", "testing", "complete"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("If true, only run the gate (default: false)"),
		),
	)
}

// Handle processes the feature_advance tool call.
func (t *FeatureAdvanceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required: pass the feature id, e.g. bug-001"), nil
	}
	target := ledger.Phase(req.GetString("to", ""))

	if boolArg(req, "dry_run", false) {
		out, err := t.svc.Check(ctx, t.layout, id, target)
		if err != nil {
			return failure(err)
		}
		return mcp.NewToolResultText(renderOutcome(out, "", true)), nil
	}

	res, err := t.svc.Advance(ctx, t.layout, id, target)
	if err != nil {
		return failure(err)
	}
	return mcp.NewToolResultText(renderOutcome(res.Outcome, res.Document, false)), nil
}

func renderOutcome(out *transition.Outcome, document string, dryRun bool) string {
	var b strings.Builder
	arrow := fmt.Sprintf("%s → %s", out.From, out.To)
	switch {
	case dryRun && out.Result.Valid():
		fmt.Fprintf(&b, "# Gate Would Pass: %s %s\n", out.Feature.ID, arrow)
	case dryRun:
		fmt.Fprintf(&b, "# Gate Would Fail: %s %s\n", out.Feature.ID, arrow)
	case out.Advanced:
		fmt.Fprintf(&b, "# Advanced: %s %s\n", out.Feature.ID, arrow)
	default:
		fmt.Fprintf(&b, "# Gate Failed: %s %s\n", out.Feature.ID, arrow)
	}
	if !out.Gated {
		b.WriteString("\nNo gate applies to this move.\n")
	}
	writeResult(&b, out.Result)

	switch {
	case out.Advanced && document != "":
		fmt.Fprintf(&b, "\n## Next Step\n\nFill in `%s` before advancing again.\n", document)
	case out.Advanced && out.To.IsTerminal():
		b.WriteString("\n✅ **Feature completed.**\n")
	case !out.Advanced && !dryRun:
		b.WriteString("\n## Next Step\n\nFix the errors above and call `feature_advance` again. Nothing was changed.\n")
	}
	return b.String()
}
