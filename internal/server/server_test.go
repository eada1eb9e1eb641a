package server

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/phasegate/internal/config"
	"github.com/HendryAvila/phasegate/internal/ledger"
	"github.com/HendryAvila/phasegate/internal/metrics"
)

// initProject creates a ledger with the default layout and returns its root.
func initProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, ledger.NewFileStore().Init(context.Background(), config.Default().Layout(root)))
	return root
}

func TestBuild_WiresHistoryWhenEnabled(t *testing.T) {
	st, err := Build(initProject(t), config.Default(), nil)
	require.NoError(t, err)
	defer st.Close()

	require.NotNil(t, st.History)
	ids := make([]string, 0)
	for _, h := range st.Bus.Handlers() {
		ids = append(ids, h.ID())
	}
	assert.Equal(t, []string{"metrics", "history"}, ids)
}

func TestBuild_HistoryDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.History.Enabled = false

	st, err := Build(initProject(t), cfg, nil)
	require.NoError(t, err)
	defer st.Close()

	assert.Nil(t, st.History)
	assert.Len(t, st.Bus.Handlers(), 1)
}

func TestBuild_UninitializedLeavesNoFiles(t *testing.T) {
	root := t.TempDir()
	st, err := Build(root, config.Default(), nil)
	require.NoError(t, err)
	defer st.Close()

	assert.Nil(t, st.History)
	assert.NoDirExists(t, st.Layout.StatePath())
}

func TestBuild_StateDirWithoutLedgerIsUninitialized(t *testing.T) {
	root := t.TempDir()
	layout := config.Default().Layout(root)
	require.NoError(t, os.MkdirAll(layout.StatePath(), 0o755))

	st, err := Build(root, config.Default(), nil)
	require.NoError(t, err)
	defer st.Close()

	assert.Nil(t, st.History)
	assert.NoFileExists(t, layout.HistoryPath())
}

func TestBuild_EndToEnd(t *testing.T) {
	ctx := context.Background()
	st, err := Build(initProject(t), config.Default(), nil)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, metrics.Init(st.Layout))
	res, err := st.Features.Open(ctx, st.Layout, ledger.AddParams{Title: "Bump deps", Type: ledger.TypeTask}, false)
	require.NoError(t, err)
	assert.DirExists(t, res.Path)

	n, err := st.History.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "creation is journaled")

	st.Close()
	st.Close()
}

func TestNew_Registers(t *testing.T) {
	st, err := Build(t.TempDir(), config.Default(), nil)
	require.NoError(t, err)
	defer st.Close()

	s := New(st)
	require.NotNil(t, s)
	assert.NotEmpty(t, serverInstructions())
}
