package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// OpenPrompt handles the phasegate-open MCP prompt. It walks the model
// through opening a work item and writing its first document.
type OpenPrompt struct{}

// NewOpenPrompt creates an OpenPrompt.
func NewOpenPrompt() *OpenPrompt {
	return &OpenPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *OpenPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("phasegate-open",
		mcp.WithPromptDescription("Open a new feature, bug or task and draft its planning document."),
		mcp.WithArgument("title",
			mcp.ArgumentDescription("Short title of the work item"),
		),
		mcp.WithArgument("type",
			mcp.ArgumentDescription("feature, bug or task. Default: feature"),
		),
	)
}

// Handle processes the phasegate-open prompt request.
func (p *OpenPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	title := req.Params.Arguments["title"]
	typ := req.Params.Arguments["type"]
	if typ == "" {
		typ = "feature"
	}

	titleLine := "Ask me for a short title first."
	if title != "" {
		titleLine = fmt.Sprintf("The title is %q.", title)
	}

	return &mcp.GetPromptResult{
		Description: "Open a work item",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to open a new %s. %s\n\n"+
						"1. Call `feature_add` with the title and type %q\n"+
						"2. Ask me about the problem and goals (for a bug: the steps to reproduce)\n"+
						"3. Write planning.md in the returned folder, replacing every HTML comment with real content\n"+
						"4. Call `feature_advance` with `dry_run: true` and fix anything it reports\n"+
						"5. Only then advance for real",
					typ, titleLine, typ,
				)),
			},
		},
	}, nil
}
