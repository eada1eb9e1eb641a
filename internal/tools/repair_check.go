package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/repair"
)

// RepairCheckTool handles the repair_check MCP tool. It only reports;
// fixes are applied from the CLI where a human chooses the action.
type RepairCheckTool struct {
	repairer *repair.Repairer
	layout   ledger.Layout
}

// NewRepairCheckTool creates a RepairCheckTool.
func NewRepairCheckTool(r *repair.Repairer, layout ledger.Layout) *RepairCheckTool {
	return &RepairCheckTool{repairer: r, layout: layout}
}

// Definition returns the MCP tool definition for registration.
func (t *RepairCheckTool) Definition() mcp.Tool {
	return mcp.NewTool("repair_check",
		mcp.WithDescription(
			"Compare the ledger with the feature folders on disk and report every divergence "+
				"with the actions that can resolve it. Never changes anything.",
		),
	)
}

// Handle processes the repair_check tool call.
func (t *RepairCheckTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := t.repairer.Check(ctx, t.layout)
	if err != nil {
		return failure(err)
	}

	var b strings.Builder
	b.WriteString("# Consistency Check\n\n")
	fmt.Fprintf(&b, "**Ledger entries:** %d  **Active folders:** %d  **Removed folders:** %d\n\n",
		rep.LedgerCount, rep.ActiveCount, rep.RemovedCount)
	if rep.Consistent() {
		b.WriteString("✅ Ledger and folders agree.")
		return mcp.NewToolResultText(b.String()), nil
	}

	b.WriteString("| ID | Kind | Actions | Hint |\n")
	b.WriteString("|----|------|---------|------|\n")
	for _, d := range rep.Divergences {
		actions := make([]string, 0, len(d.Actions))
		for _, a := range d.Actions {
			actions = append(actions, "`"+string(a)+"`")
		}
		if len(actions) == 0 {
			actions = append(actions, "manual")
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", d.ID, d.Kind, strings.Join(actions, ", "), d.Hint)
	}
	b.WriteString("\nAsk the user which action to apply, then run `phasegate repair fix <id> --action <action>`.")
	return mcp.NewToolResultText(b.String()), nil
}
