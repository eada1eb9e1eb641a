// Package tools implements the MCP tool handlers.
//
// Each file holds one tool: a struct carrying its dependencies, a
// Definition for registration and a Handle for calls. Tools parse
// arguments, call the feature service or repair, and render markdown for
// the host. Expected failures (unknown id, bad input, uninitialized
// project) come back as tool errors the model can read; anything else is
// returned as a Go error.
package tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/phasegate/internal/features"
	"github.com/HendryAvila/phasegate/internal/gates"
	"github.com/HendryAvila/phasegate/internal/ledger"
)

// intArg extracts an integer argument from a tool request. Returns
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// failure turns expected core errors into a tool error result with a
// remediation hint. Unexpected errors pass through.
func failure(err error) (*mcp.CallToolResult, error) {
	if !features.IsUserError(err) {
		return nil, err
	}
	msg := err.Error()
	if hint := features.Hint(err); hint != "" {
		msg += "\n\nHint: " + hint
	}
	return mcp.NewToolResultError(msg), nil
}

// writeFeature renders the identifying fields of f.
func writeFeature(b *strings.Builder, f *ledger.Feature) {
	fmt.Fprintf(b, "**ID:** `%s`\n", f.ID)
	fmt.Fprintf(b, "**Title:** %s\n", f.Title)
	fmt.Fprintf(b, "**Type:** %s\n", f.Type)
	fmt.Fprintf(b, "**Phase:** %s\n", f.Phase)
	if f.ExternalID != "" {
		fmt.Fprintf(b, "**External ID:** %s\n", f.ExternalID)
	}
}

// writeResult renders a gate verdict as two bullet lists.
func writeResult(b *strings.Builder, res *gates.Result) {
	if errs := res.Errors(); len(errs) > 0 {
		b.WriteString("\n## Errors\n\n")
		for _, is := range errs {
			writeIssue(b, is)
		}
	}
	if warns := res.Warnings(); len(warns) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, is := range warns {
			writeIssue(b, is)
		}
	}
}

func writeIssue(b *strings.Builder, is gates.Issue) {
	fmt.Fprintf(b, "- %s", is.Message)
	if is.Expected != "" {
		fmt.Fprintf(b, " (expected: %s", is.Expected)
		if is.Actual != "" {
			fmt.Fprintf(b, "; actual: %s", is.Actual)
		}
		b.WriteString(")")
	}
	b.WriteString("\n")
}
