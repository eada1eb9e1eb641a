package resources

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

func read(t *testing.T, h *Handler) mcp.TextResourceContents {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = LedgerURI
	contents, err := h.HandleLedger(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleLedger: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("content type = %T", contents[0])
	}
	return tc
}

func TestLedgerResource(t *testing.T) {
	ctx := context.Background()
	layout := ledger.NewLayout(t.TempDir())
	store := ledger.NewFileStore()
	if err := store.Init(ctx, layout); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Add(ctx, layout, ledger.AddParams{Title: "Login fails", Type: ledger.TypeBug}); err != nil {
		t.Fatal(err)
	}

	h := NewHandler(store, layout)
	if h.LedgerResource().URI != LedgerURI {
		t.Errorf("URI = %q", h.LedgerResource().URI)
	}

	tc := read(t, h)
	if tc.MIMEType != "application/json" {
		t.Errorf("MIME = %q", tc.MIMEType)
	}
	var l ledger.Ledger
	if err := json.Unmarshal([]byte(tc.Text), &l); err != nil {
		t.Fatalf("ledger JSON: %v", err)
	}
	if len(l.Features) != 1 || l.Features[0].ID != "bug-001" {
		t.Errorf("features = %+v", l.Features)
	}
}

func TestLedgerResource_NotInitialized(t *testing.T) {
	h := NewHandler(ledger.NewFileStore(), ledger.NewLayout(t.TempDir()))
	tc := read(t, h)
	if tc.MIMEType != "text/plain" || !strings.Contains(tc.Text, "not initialized") {
		t.Errorf("got %q (%s)", tc.Text, tc.MIMEType)
	}
}
