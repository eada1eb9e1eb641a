package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/phasegate/internal/history"
)

// FeatureHistoryTool handles the feature_history MCP tool. store may be
// nil when the journal is disabled.
type FeatureHistoryTool struct {
	store *history.Store
}

// NewFeatureHistoryTool creates a FeatureHistoryTool.
func NewFeatureHistoryTool(store *history.Store) *FeatureHistoryTool {
	return &FeatureHistoryTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *FeatureHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("feature_history",
		mcp.WithDescription("Show the journal of lifecycle events (opened, advanced, completed, removed), oldest first."),
		mcp.WithString("id",
			mcp.Description("Only events for this feature id"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of most recent events to return (default: 50)"),
		),
	)
}

// Handle processes the feature_history tool call.
func (t *FeatureHistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.store == nil {
		return mcp.NewToolResultError("The history journal is disabled (history.enabled: false)."), nil
	}
	q := history.Query{
		FeatureID: strings.TrimSpace(req.GetString("id", "")),
		Limit:     intArg(req, "limit", history.DefaultLimit),
	}
	entries, err := t.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No events recorded."), nil
	}

	var b strings.Builder
	b.WriteString("# History\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s `%s` %s", e.At.Format(time.RFC3339), e.FeatureID, e.Type)
		switch {
		case e.From != "" && e.To != "":
			fmt.Fprintf(&b, " (%s → %s)", e.From, e.To)
		case e.To != "":
			fmt.Fprintf(&b, " (→ %s)", e.To)
		case e.From != "":
			fmt.Fprintf(&b, " (from %s)", e.From)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
