package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/phasegate/internal/events"
	"github.com/HendryAvila/phasegate/internal/features"
	"github.com/HendryAvila/phasegate/internal/gates"
	"github.com/HendryAvila/phasegate/internal/history"
	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/metrics"
	"github.com/HendryAvila/phasegate/internal/repair"
	"github.com/HendryAvila/phasegate/internal/scaffold"
	"github.com/HendryAvila/phasegate/internal/templates"
	"github.com/HendryAvila/phasegate/internal/transition"
)

// --- Test helpers ---

type env struct {
	layout  ledger.Layout
	svc     *features.Service
	repair  *repair.Repairer
	history *history.Store
}

// newEnv wires a real project in a temp dir, the same way the server does.
func newEnv(t *testing.T) *env {
	t.Helper()
	layout := ledger.NewLayout(t.TempDir())
	store := ledger.NewFileStore()

	renderer, err := templates.NewRenderer()
	if err != nil {
		t.Fatalf("setup: renderer: %v", err)
	}
	sc := scaffold.NewFolderScaffolder(renderer)

	hs, err := history.Open(layout.HistoryPath())
	if err != nil {
		t.Fatalf("setup: history: %v", err)
	}
	t.Cleanup(func() { hs.Close() })

	bus := events.NewBus(nil)
	bus.Register(metrics.NewCollector(store, nil, 1))
	bus.Register(history.NewJournal(hs, nil))

	svc := features.New(features.Deps{
		Store:      store,
		Scaffolder: sc,
		Docs:       sc,
		Mover:      scaffold.FolderMover{},
		Controller: transition.New(store, gates.Default(), bus, nil),
		Publisher:  bus,
	})
	if err := svc.Init(context.Background(), layout); err != nil {
		t.Fatalf("setup: init: %v", err)
	}
	return &env{
		layout:  layout,
		svc:     svc,
		repair:  repair.New(store, scaffold.FolderMover{}, bus, nil),
		history: hs,
	}
}

func call(t *testing.T, handle func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	return result
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func (e *env) add(t *testing.T, title, typ string) {
	t.Helper()
	result := call(t, NewFeatureAddTool(e.svc, e.layout).Handle, map[string]interface{}{
		"title": title,
		"type":  typ,
	})
	if isErrorResult(result) {
		t.Fatalf("feature_add failed: %s", getResultText(result))
	}
}

func (e *env) write(t *testing.T, id, name, content string) {
	t.Helper()
	path := filepath.Join(e.layout.FeaturePath(id), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// --- Definitions ---

func TestDefinitions(t *testing.T) {
	e := newEnv(t)
	names := map[string]string{
		"feature_add":     NewFeatureAddTool(e.svc, e.layout).Definition().Name,
		"feature_list":    NewFeatureListTool(e.svc, e.layout).Definition().Name,
		"feature_advance": NewFeatureAdvanceTool(e.svc, e.layout).Definition().Name,
		"feature_remove":  NewFeatureRemoveTool(e.svc, e.layout).Definition().Name,
		"metrics_show":    NewMetricsShowTool(e.layout).Definition().Name,
		"repair_check":    NewRepairCheckTool(e.repair, e.layout).Definition().Name,
		"feature_history": NewFeatureHistoryTool(e.history).Definition().Name,
	}
	for want, got := range names {
		if got != want {
			t.Errorf("name = %q, want %q", got, want)
		}
	}
}

// --- feature_add ---

func TestFeatureAdd_Success(t *testing.T) {
	e := newEnv(t)
	result := call(t, NewFeatureAddTool(e.svc, e.layout).Handle, map[string]interface{}{
		"title":       "Login fails on Safari",
		"type":        "bug",
		"external_id": "GH-42",
	})
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	for _, want := range []string{"Feature Opened", "`bug-001`", "GH-42", "planning.md"} {
		if !strings.Contains(text, want) {
			t.Errorf("result should contain %q, got: %s", want, text)
		}
	}
	if _, err := os.Stat(filepath.Join(e.layout.FeaturePath("bug-001"), "planning.md")); err != nil {
		t.Errorf("planning.md should exist: %v", err)
	}
}

func TestFeatureAdd_InvalidType(t *testing.T) {
	e := newEnv(t)
	result := call(t, NewFeatureAddTool(e.svc, e.layout).Handle, map[string]interface{}{
		"title": "x",
		"type":  "epic",
	})
	if !isErrorResult(result) {
		t.Fatal("expected tool error for unknown type")
	}
	if !strings.Contains(getResultText(result), "validation failed") {
		t.Errorf("error should mention validation, got: %s", getResultText(result))
	}
}

func TestFeatureAdd_NotInitialized(t *testing.T) {
	e := newEnv(t)
	if err := os.Remove(e.layout.LedgerPath()); err != nil {
		t.Fatal(err)
	}
	result := call(t, NewFeatureAddTool(e.svc, e.layout).Handle, map[string]interface{}{
		"title": "x",
		"type":  "task",
	})
	if !isErrorResult(result) {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(getResultText(result), "phasegate init") {
		t.Errorf("error should carry the init hint, got: %s", getResultText(result))
	}
}

// --- feature_list ---

func TestFeatureList(t *testing.T) {
	e := newEnv(t)
	tool := NewFeatureListTool(e.svc, e.layout)

	if text := getResultText(call(t, tool.Handle, nil)); !strings.Contains(text, "No features found") {
		t.Errorf("empty list text = %q", text)
	}

	e.add(t, "Crash | on save", "bug")
	e.add(t, "Bump deps", "task")

	text := getResultText(call(t, tool.Handle, map[string]interface{}{"type": "bug"}))
	if !strings.Contains(text, "Features (1)") || !strings.Contains(text, "`bug-001`") {
		t.Errorf("filtered list = %s", text)
	}
	if !strings.Contains(text, `Crash \| on save`) {
		t.Errorf("pipe in title should be escaped: %s", text)
	}
}

// --- feature_advance ---

func TestFeatureAdvance_GateFailureIsNotAToolError(t *testing.T) {
	e := newEnv(t)
	e.add(t, "Checkout flow", "feature")
	tool := NewFeatureAdvanceTool(e.svc, e.layout)

	// The scaffolded planning.md is only a skeleton.
	result := call(t, tool.Handle, map[string]interface{}{"id": "feature-001"})
	if isErrorResult(result) {
		t.Fatalf("gate rejection should be a normal result: %s", getResultText(result))
	}
	text := getResultText(result)
	if !strings.Contains(text, "Gate Failed: feature-001 planning → refinement") {
		t.Errorf("missing failure header: %s", text)
	}
	if !strings.Contains(text, "## Errors") || !strings.Contains(text, "Nothing was changed") {
		t.Errorf("missing error list or guidance: %s", text)
	}
}

func TestFeatureAdvance_DryRunThenAdvance(t *testing.T) {
	e := newEnv(t)
	e.add(t, "Checkout flow", "feature")
	e.write(t, "feature-001", "planning.md",
		"# Plan\n\n## Problem\n\nCarts time out.\n\n## Goals\n\nFaster checkout.\n\n## Non-goals\n\nRedesign.\n")
	tool := NewFeatureAdvanceTool(e.svc, e.layout)

	dry := getResultText(call(t, tool.Handle, map[string]interface{}{"id": "feature-001", "dry_run": true}))
	if !strings.Contains(dry, "Gate Would Pass") {
		t.Errorf("dry run = %s", dry)
	}

	text := getResultText(call(t, tool.Handle, map[string]interface{}{"id": "feature-001", "to": "refinement"}))
	if !strings.Contains(text, "Advanced: feature-001 planning → refinement") {
		t.Errorf("advance = %s", text)
	}
	if !strings.Contains(text, "refinement.md") {
		t.Errorf("should point at the new document: %s", text)
	}
}

func TestFeatureAdvance_Errors(t *testing.T) {
	e := newEnv(t)
	e.add(t, "Tidy", "task")
	tool := NewFeatureAdvanceTool(e.svc, e.layout)

	if !isErrorResult(call(t, tool.Handle, map[string]interface{}{})) {
		t.Error("missing id should be a tool error")
	}
	if !isErrorResult(call(t, tool.Handle, map[string]interface{}{"id": "task-404"})) {
		t.Error("unknown id should be a tool error")
	}
	skip := call(t, tool.Handle, map[string]interface{}{"id": "task-001", "to": "testing"})
	if isErrorResult(skip) || !strings.Contains(getResultText(skip), "Advanced") {
		t.Fatalf("skipping ahead on an ungated task should pass, got: %s", getResultText(skip))
	}
	result := call(t, tool.Handle, map[string]interface{}{"id": "task-001", "to": "planning"})
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "invalid phase transition") {
		t.Errorf("moving back should be rejected, got: %s", getResultText(result))
	}
}

func TestFeatureAdvance_BugToComplete(t *testing.T) {
	e := newEnv(t)
	e.add(t, "Login fails", "bug")
	tool := NewFeatureAdvanceTool(e.svc, e.layout)

	e.write(t, "bug-001", "planning.md", "## Steps to Reproduce\n\n1. Open login\n")
	e.write(t, "bug-001", "implementation.md", "Fixed the cookie flag.\n")
	for range 3 {
		if r := call(t, tool.Handle, map[string]interface{}{"id": "bug-001"}); !strings.Contains(getResultText(r), "Advanced") {
			t.Fatalf("advance failed: %s", getResultText(r))
		}
	}
	e.write(t, "bug-001", "testing.md", "Status: PASS\n")

	text := getResultText(call(t, tool.Handle, map[string]interface{}{"id": "bug-001"}))
	if !strings.Contains(text, "Feature completed") {
		t.Errorf("expected completion: %s", text)
	}
	if !strings.Contains(text, "regression verification") {
		t.Errorf("expected the regression warning: %s", text)
	}
}

// --- feature_remove ---

func TestFeatureRemove(t *testing.T) {
	e := newEnv(t)
	e.add(t, "Old idea", "feature")
	tool := NewFeatureRemoveTool(e.svc, e.layout)

	text := getResultText(call(t, tool.Handle, map[string]interface{}{"id": "feature-001"}))
	if !strings.Contains(text, e.layout.RemovedFeaturePath("feature-001")) {
		t.Errorf("should report the new folder: %s", text)
	}
	if !isErrorResult(call(t, tool.Handle, map[string]interface{}{"id": "feature-001"})) {
		t.Error("second remove should be a tool error")
	}
}

// --- metrics_show ---

func TestMetricsShow(t *testing.T) {
	e := newEnv(t)
	e.add(t, "Tidy", "task")
	tool := NewMetricsShowTool(e.layout)

	agg := getResultText(call(t, tool.Handle, nil))
	if !strings.Contains(agg, "**Todo:** 1") || !strings.Contains(agg, `"by_type"`) {
		t.Errorf("aggregate = %s", agg)
	}

	one := getResultText(call(t, tool.Handle, map[string]interface{}{"id": "task-001"}))
	if !strings.Contains(one, `"feature_id": "task-001"`) {
		t.Errorf("snapshot = %s", one)
	}

	if !isErrorResult(call(t, tool.Handle, map[string]interface{}{"id": "task-404"})) {
		t.Error("missing snapshot should be a tool error")
	}
}

// --- repair_check ---

func TestRepairCheck(t *testing.T) {
	e := newEnv(t)
	e.add(t, "Tidy", "task")
	tool := NewRepairCheckTool(e.repair, e.layout)

	if text := getResultText(call(t, tool.Handle, nil)); !strings.Contains(text, "agree") {
		t.Errorf("consistent project = %s", text)
	}

	if err := os.RemoveAll(e.layout.FeaturePath("task-001")); err != nil {
		t.Fatal(err)
	}
	text := getResultText(call(t, tool.Handle, nil))
	if !strings.Contains(text, "ledger_only") || !strings.Contains(text, "`drop-entry`") {
		t.Errorf("divergence table = %s", text)
	}
}

// --- feature_history ---

func TestFeatureHistory(t *testing.T) {
	e := newEnv(t)
	e.add(t, "Tidy", "task")
	call(t, NewFeatureAdvanceTool(e.svc, e.layout).Handle, map[string]interface{}{"id": "task-001"})

	text := getResultText(call(t, NewFeatureHistoryTool(e.history).Handle, map[string]interface{}{"id": "task-001"}))
	if !strings.Contains(text, "feature.created") || !strings.Contains(text, "planning → refinement") {
		t.Errorf("history = %s", text)
	}
}

func TestFeatureHistory_Disabled(t *testing.T) {
	if !isErrorResult(call(t, NewFeatureHistoryTool(nil).Handle, nil)) {
		t.Error("disabled journal should be a tool error")
	}
}
