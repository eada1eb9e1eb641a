// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: Build creates the concrete core and New
// injects it into the tools, prompts and resources. No business logic
// lives here.
package server

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/phasegate/internal/prompts"
	"github.com/HendryAvila/phasegate/internal/resources"
	"github.com/HendryAvila/phasegate/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with all tools, prompts and resources
// registered against st.
func New(st *Stack) *server.MCPServer {
	s := server.NewMCPServer(
		"phasegate",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register tools ---

	addTool := tools.NewFeatureAddTool(st.Features, st.Layout)
	s.AddTool(addTool.Definition(), addTool.Handle)

	listTool := tools.NewFeatureListTool(st.Features, st.Layout)
	s.AddTool(listTool.Definition(), listTool.Handle)

	advanceTool := tools.NewFeatureAdvanceTool(st.Features, st.Layout)
	s.AddTool(advanceTool.Definition(), advanceTool.Handle)

	removeTool := tools.NewFeatureRemoveTool(st.Features, st.Layout)
	s.AddTool(removeTool.Definition(), removeTool.Handle)

	metricsTool := tools.NewMetricsShowTool(st.Layout)
	s.AddTool(metricsTool.Definition(), metricsTool.Handle)

	repairTool := tools.NewRepairCheckTool(st.Repairer, st.Layout)
	s.AddTool(repairTool.Definition(), repairTool.Handle)

	// Registered even without a journal; it answers with a tool error.
	historyTool := tools.NewFeatureHistoryTool(st.History)
	s.AddTool(historyTool.Definition(), historyTool.Handle)

	// --- Register prompts ---

	openPrompt := prompts.NewOpenPrompt()
	s.AddPrompt(openPrompt.Definition(), openPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(st.Store, st.Layout)
	s.AddResource(resourceHandler.LedgerResource(), resourceHandler.HandleLedger)

	return s
}

// Serve runs s over stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// serverInstructions tells the model how to drive the lifecycle.
func serverInstructions() string {
	return `You have access to phasegate, a phase-gated lifecycle tracker for features, bugs and tasks.

## LIFECYCLE

Every work item moves forward through:

  planning → refinement → implementation → testing → complete

Each item lives in its own folder with one markdown document per phase.
A gate checks the documents before a move is allowed.

## GATES

- feature: each phase document must exist with its required sections filled in
- bug: planning.md must describe how to reproduce it; testing must mention regression verification
- task: only the move to complete is checked

HTML comments in the templates are placeholders. A section that only holds
comments counts as empty.

## HOW TO WORK

1. Open work with feature_add and fill in planning.md in the returned folder
2. Call feature_advance with dry_run: true to see what the gate reports
3. Fix every error, then call feature_advance without dry_run
4. Warnings do not block; mention them to the user
5. Use feature_list, metrics_show and feature_history to report progress
6. If repair_check reports divergences, show them and let the user choose a fix
   with the phasegate CLI

Never edit ledger.json by hand.`
}
