package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

// run executes one CLI invocation against root and returns its stdout.
func run(t *testing.T, root string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	a := &app{out: &buf}
	cmd := newRootCmd(a)
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--root", root, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	a.close(context.Background())
	return buf.String(), err
}

func mustRun(t *testing.T, root string, args ...string) string {
	t.Helper()
	out, err := run(t, root, args...)
	require.NoError(t, err, "phasegate %v\n%s", args, out)
	return out
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	mustRun(t, root, "init")
	return root
}

func TestVersion(t *testing.T) {
	root := t.TempDir()
	out := mustRun(t, root, "version")
	assert.Contains(t, out, "phasegate v")
	assert.NoDirExists(t, filepath.Join(root, ledger.DefaultStateDir))
}

func TestInit_Twice(t *testing.T) {
	root := newProject(t)
	assert.FileExists(t, filepath.Join(root, ledger.DefaultStateDir, ledger.LedgerFile))

	_, err := run(t, root, "init")
	assert.ErrorIs(t, err, ledger.ErrAlreadyInitialized)
}

func TestNotInitialized(t *testing.T) {
	root := t.TempDir()
	_, err := run(t, root, "list")
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)
	assert.NoDirExists(t, filepath.Join(root, ledger.DefaultStateDir), "no state is created outside a project")
}

func TestAdd_NotInitializedLeavesNoState(t *testing.T) {
	root := t.TempDir()
	_, err := run(t, root, "add", "Checkout", "flow")
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)
	assert.NoDirExists(t, filepath.Join(root, ledger.DefaultStateDir))

	// A second command still sees an uninitialized project.
	_, err = run(t, root, "list")
	assert.ErrorIs(t, err, ledger.ErrNotInitialized)
	assert.NoDirExists(t, filepath.Join(root, ledger.DefaultStateDir))
}

func TestAddAndList(t *testing.T) {
	root := newProject(t)

	out := mustRun(t, root, "add", "Checkout", "flow")
	assert.Contains(t, out, "Opened feature-001")
	mustRun(t, root, "add", "Login fails", "--type", "bug", "--external-id", "JIRA-42")

	out = mustRun(t, root, "list")
	assert.Contains(t, out, "feature-001")
	assert.Contains(t, out, "Checkout flow")
	assert.Contains(t, out, "bug-001")

	out = mustRun(t, root, "--json", "list", "--type", "bug")
	var list []ledger.Feature
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "JIRA-42", list[0].ExternalID)

	_, err := run(t, root, "list", "--phase", "shipping")
	assert.ErrorIs(t, err, ledger.ErrValidationFailed)
}

func TestCheckThenAdvance(t *testing.T) {
	root := newProject(t)
	mustRun(t, root, "add", "Checkout flow")

	out, err := run(t, root, "check", "feature-001")
	assert.ErrorIs(t, err, errGateBlocked)
	assert.Contains(t, out, "Gate failed for feature-001 planning → refinement")

	planning := filepath.Join(root, ledger.DefaultActiveDir, "feature-001", "planning.md")
	require.NoError(t, os.WriteFile(planning, []byte(
		"# Plan\n\n## Problem\n\nCarts time out.\n\n## Goals\n\nFaster checkout.\n\n## Non-goals\n\nRedesign.\n"), 0o644))

	out = mustRun(t, root, "check", "feature-001")
	assert.Contains(t, out, "Gate passes")

	out = mustRun(t, root, "advance", "feature-001")
	assert.Contains(t, out, "Advanced feature-001 planning → refinement")
	assert.Contains(t, out, "refinement.md")

	out = mustRun(t, root, "--json", "show", "feature-001")
	var detail struct {
		Feature ledger.Feature `json:"feature"`
		Next    ledger.Phase   `json:"next"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &detail))
	assert.Equal(t, ledger.PhaseRefinement, detail.Feature.Phase)
	assert.Equal(t, ledger.PhaseImplementation, detail.Next)

	out = mustRun(t, root, "history", "feature-001")
	assert.Contains(t, out, "feature.created")
	assert.Contains(t, out, "phase.transition")
}

func TestAdvance_SkipAheadAndBackward(t *testing.T) {
	root := newProject(t)
	mustRun(t, root, "add", "Bump deps", "-t", "task")
	mustRun(t, root, "add", "Login fails", "-t", "bug")

	out := mustRun(t, root, "advance", "task-001", "--to", "testing")
	assert.Contains(t, out, "testing")

	_, err := run(t, root, "advance", "task-001", "--to", "planning")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)

	_, err = run(t, root, "advance", "bug-001", "--to", "complete")
	assert.ErrorIs(t, err, errGateBlocked)
}

func TestEdit(t *testing.T) {
	root := newProject(t)
	mustRun(t, root, "add", "Checkout flow")

	_, err := run(t, root, "edit", "feature-001")
	assert.ErrorIs(t, err, ledger.ErrValidationFailed)

	out := mustRun(t, root, "edit", "feature-001", "--title", "One-click checkout")
	assert.Contains(t, out, "One-click checkout")
}

func TestRemoveAndRepair(t *testing.T) {
	root := newProject(t)
	mustRun(t, root, "add", "Checkout flow")
	mustRun(t, root, "add", "Search")

	out := mustRun(t, root, "remove", "feature-001")
	assert.Contains(t, out, "Removed feature-001")
	assert.DirExists(t, filepath.Join(root, ledger.DefaultRemovedDir, "feature-001"))

	require.NoError(t, os.RemoveAll(filepath.Join(root, ledger.DefaultActiveDir, "feature-002")))
	out = mustRun(t, root, "repair")
	assert.Contains(t, out, "feature-002")
	assert.Contains(t, out, "ledger_only")

	_, err := run(t, root, "repair", "fix", "feature-002", "--action", "adopt-folder")
	assert.Error(t, err)

	mustRun(t, root, "repair", "fix", "feature-002", "--action", "drop-entry")
	out = mustRun(t, root, "repair")
	assert.Contains(t, out, "Ledger and folders agree.")
}

func TestMetrics(t *testing.T) {
	root := newProject(t)
	mustRun(t, root, "add", "Checkout flow")

	out := mustRun(t, root, "metrics", "rebuild")
	assert.Contains(t, out, "Rebuilt 1 snapshots")

	out = mustRun(t, root, "metrics", "show")
	assert.Contains(t, out, "done: 0  todo: 1")

	out = mustRun(t, root, "metrics", "show", "feature-001")
	assert.Contains(t, out, `"feature_id": "feature-001"`)

	_, err := run(t, root, "metrics", "show", "feature-999")
	assert.ErrorIs(t, err, ledger.ErrFeatureNotFound)
}
