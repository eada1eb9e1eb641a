// Package resources implements the MCP resource handlers.
//
// Resources are read-only views the host can pull into context. They use
// phasegate:// URIs.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

// LedgerURI addresses the full ledger document.
const LedgerURI = "phasegate://ledger"

// Handler serves resources for one project.
type Handler struct {
	store  ledger.Store
	layout ledger.Layout
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store ledger.Store, layout ledger.Layout) *Handler {
	return &Handler{store: store, layout: layout}
}

// LedgerResource returns the MCP resource definition for the ledger.
func (h *Handler) LedgerResource() mcp.Resource {
	return mcp.NewResource(
		LedgerURI,
		"Feature Ledger",
		mcp.WithResourceDescription("Every tracked feature with its type, phase and phase history"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleLedger returns the ledger as JSON. Load failures are reported as
// plain-text content rather than a protocol error.
func (h *Handler) HandleLedger(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	l, err := h.store.Load(ctx, h.layout)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling ledger: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
