package reconciler

import (
	"testing"
	"time"

	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/scheduler"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestReconcileClearsFlushFlagsOnPendingOperations(t *testing.T) {
	store := newTestStore(t)
	op := &types.Operation{ID: ids.MustNew(1, ids.KindNode), State: types.OperationRunning}
	require.NoError(t, store.CreateOperation(op))
	require.NoError(t, scheduler.SetPool(store, op, "research"))

	r := NewReconciler(store)
	require.NoError(t, r.reconcile())

	got, err := store.GetOperation(op.ID)
	require.NoError(t, err)
	assert.False(t, got.RuntimeParams.NeedsFlush)
}

func TestReconcileLeavesUnflaggedOperationsAlone(t *testing.T) {
	store := newTestStore(t)
	op := &types.Operation{ID: ids.MustNew(1, ids.KindNode), State: types.OperationRunning}
	require.NoError(t, store.CreateOperation(op))

	r := NewReconciler(store)
	require.NoError(t, r.reconcile())

	pending, err := scheduler.PendingFlush(store)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReconcilerStopIsIdempotentAcrossInstances(t *testing.T) {
	r := &Reconciler{stopCh: make(chan struct{})}
	r.Stop()

	select {
	case <-r.stopCh:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("stopCh should be closed immediately")
	}
}
