package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

func TestWrapStore_DisabledReturnsInner(t *testing.T) {
	require.NoError(t, Init(context.Background(), "phasegate", "test", Options{}))
	inner := ledger.NewFileStore()
	assert.Same(t, inner, WrapStore(inner))
}

func TestWrapStore_EnabledDelegates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(context.Background(), "phasegate", "test", Options{Enabled: true, Stdout: true, Writer: &buf}))
	t.Cleanup(func() { Shutdown(context.Background()) })

	store := WrapStore(ledger.NewFileStore())
	_, ok := store.(*InstrumentedStore)
	require.True(t, ok)

	ctx := context.Background()
	layout := ledger.NewLayout(t.TempDir())
	require.NoError(t, store.Init(ctx, layout))

	f, err := store.Add(ctx, layout, ledger.AddParams{Title: "Traced", Type: ledger.TypeTask})
	require.NoError(t, err)
	assert.Equal(t, "task-001", f.ID)

	_, err = store.Find(ctx, layout, "task-999")
	assert.ErrorIs(t, err, ledger.ErrFeatureNotFound)
}

func TestShutdown_ResetsEnabled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(context.Background(), "phasegate", "test", Options{Enabled: true, Writer: &buf}))
	assert.True(t, Enabled())
	Shutdown(context.Background())
	assert.False(t, Enabled())
}
