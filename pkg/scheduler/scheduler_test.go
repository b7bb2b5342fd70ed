package scheduler

import (
	"testing"

	"github.com/cuemby/cellar/pkg/ids"
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

// TestOperationAdvancesOneStepPerTick exercises the full happy-path state
// machine, one tick per transition, the same granularity operation.cpp
// logs events at.
func TestOperationAdvancesOneStepPerTick(t *testing.T) {
	store := newTestStore(t)
	sched := NewScheduler(store)

	op := &types.Operation{ID: ids.MustNew(1, ids.KindNode), Type: "merge"}
	require.NoError(t, sched.Submit(op))

	want := []types.OperationState{
		types.OperationWaitingForAgent,
		types.OperationInitializing,
		types.OperationPreparing,
		types.OperationMaterializing,
		types.OperationPending,
		types.OperationRunning,
		types.OperationCompleting,
		types.OperationCompleted,
	}

	for _, state := range want {
		require.NoError(t, sched.tick())
		got, err := store.GetOperation(op.ID)
		require.NoError(t, err)
		assert.Equal(t, state, got.State)
	}

	// A completed operation never advances further.
	require.NoError(t, sched.tick())
	got, err := store.GetOperation(op.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OperationCompleted, got.State)
}

func TestSubmitRejectsDuplicateAlias(t *testing.T) {
	store := newTestStore(t)
	sched := NewScheduler(store)

	first := &types.Operation{ID: ids.MustNew(1, ids.KindNode), Alias: "nightly"}
	require.NoError(t, sched.Submit(first))

	second := &types.Operation{ID: ids.MustNew(1, ids.KindNode), Alias: "nightly"}
	require.Error(t, sched.Submit(second))
}

func TestAbortNonTerminalOperation(t *testing.T) {
	store := newTestStore(t)
	sched := NewScheduler(store)

	op := &types.Operation{ID: ids.MustNew(1, ids.KindNode)}
	require.NoError(t, sched.Submit(op))
	require.NoError(t, sched.tick()) // Starting -> WaitingForAgent

	require.NoError(t, sched.Abort(op.ID))

	got, err := store.GetOperation(op.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OperationAborted, got.State)

	require.Error(t, sched.Abort(op.ID))
}

func TestSuspendedOperationDoesNotAdvance(t *testing.T) {
	store := newTestStore(t)
	sched := NewScheduler(store)

	op := &types.Operation{ID: ids.MustNew(1, ids.KindNode), Suspended: true}
	require.NoError(t, sched.Submit(op))
	require.NoError(t, sched.tick())

	got, err := store.GetOperation(op.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OperationStarting, got.State)
}
