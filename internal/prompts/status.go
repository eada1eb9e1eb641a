// Package prompts implements the MCP prompt handlers.
//
// Prompts are user-triggered workflows (like slash commands) that tell the
// model which tools to call and how to present the result.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the phasegate-status MCP prompt.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("phasegate-status",
		mcp.WithPromptDescription(
			"Summarize delivery status: features per phase, what is blocked at a gate, "+
				"and whether the ledger and folders agree.",
		),
	)
}

// Handle processes the phasegate-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Phasegate Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please check the state of my phasegate project.\n\n" +
						"1. Call `feature_list` and group the features by phase\n" +
						"2. For every feature not yet complete, call `feature_advance` with `dry_run: true` " +
						"and list the gate errors that block it\n" +
						"3. Call `metrics_show` and report done/todo and the average cycle time\n" +
						"4. Call `repair_check`; if anything diverges, show the table and ask me which action to take\n" +
						"5. End with the single most useful next step",
				),
			},
		},
	}, nil
}
