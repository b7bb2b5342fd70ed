package scheduler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceWalksHappyPath(t *testing.T) {
	tests := []struct {
		from, want types.OperationState
	}{
		{types.OperationStarting, types.OperationWaitingForAgent},
		{types.OperationWaitingForAgent, types.OperationInitializing},
		{types.OperationInitializing, types.OperationPreparing},
		{types.OperationPreparing, types.OperationMaterializing},
		{types.OperationMaterializing, types.OperationPending},
		{types.OperationPending, types.OperationRunning},
		{types.OperationRunning, types.OperationCompleting},
		{types.OperationCompleting, types.OperationCompleted},
		{types.OperationReviveInitializing, types.OperationReviving},
		{types.OperationReviving, types.OperationPending},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			got, err := Advance(&types.Operation{State: tt.from})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdvanceIsNoopOnTerminalStates(t *testing.T) {
	for _, state := range []types.OperationState{types.OperationCompleted, types.OperationFailed, types.OperationAborted} {
		got, err := Advance(&types.Operation{State: state})
		require.NoError(t, err)
		assert.Equal(t, state, got)
	}
}

func TestValidateTransitionAllowsFailureFromAnyNonTerminalState(t *testing.T) {
	for _, from := range []types.OperationState{
		types.OperationStarting, types.OperationPreparing, types.OperationRunning, types.OperationPending,
	} {
		assert.NoError(t, ValidateTransition(from, types.OperationFailed))
		assert.NoError(t, ValidateTransition(from, types.OperationAborted))
	}
}

func TestValidateTransitionRejectsFailureFromTerminalState(t *testing.T) {
	assert.Error(t, ValidateTransition(types.OperationCompleted, types.OperationFailed))
	assert.Error(t, ValidateTransition(types.OperationAborted, types.OperationFailed))
}

func TestValidateTransitionRejectsSkippedStates(t *testing.T) {
	assert.Error(t, ValidateTransition(types.OperationStarting, types.OperationRunning))
}

func TestValidateTransitionAllowsLegalEdge(t *testing.T) {
	assert.NoError(t, ValidateTransition(types.OperationPending, types.OperationRunning))
}

func TestDeriveBriefSpec(t *testing.T) {
	spec := []byte(`{"pool":"research","input_table_paths":["//tmp/in"],"output_table_paths":["//tmp/out"],"extra":42}`)
	briefBytes, err := DeriveBriefSpec(spec)
	require.NoError(t, err)

	var brief BriefSpec
	require.NoError(t, json.Unmarshal(briefBytes, &brief))
	assert.Equal(t, "research", brief.Pool)
	assert.Equal(t, []string{"//tmp/in"}, brief.InputPaths)
	assert.Equal(t, []string{"//tmp/out"}, brief.OutputPaths)
}

func TestSplitUnrecognizedKeepsOnlyUnknownKeys(t *testing.T) {
	spec := []byte(`{"pool":"research","title":"nightly merge","custom_field":"xyz"}`)
	unrecognized, err := SplitUnrecognized(spec)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(unrecognized, &raw))
	assert.Equal(t, "xyz", raw["custom_field"])
	_, hasPool := raw["pool"]
	assert.False(t, hasPool)
}

func TestSplitUnrecognizedReturnsNilWhenFullyRecognized(t *testing.T) {
	spec := []byte(`{"pool":"research","title":"nightly merge"}`)
	unrecognized, err := SplitUnrecognized(spec)
	require.NoError(t, err)
	assert.Nil(t, unrecognized)
}

func TestSetPoolFlagsNeedsFlush(t *testing.T) {
	store := newTestStore(t)
	op := &types.Operation{ID: ids.MustNew(1, ids.KindNode)}
	require.NoError(t, store.CreateOperation(op))

	require.NoError(t, SetPool(store, op, "research"))
	assert.Equal(t, "research", op.RuntimeParams.Pool)
	assert.True(t, op.RuntimeParams.NeedsFlush)

	got, err := store.GetOperation(op.ID)
	require.NoError(t, err)
	assert.Equal(t, "research", got.RuntimeParams.Pool)
}

func TestSetACLFlagsBothNeedsFlushBits(t *testing.T) {
	store := newTestStore(t)
	op := &types.Operation{ID: ids.MustNew(2, ids.KindNode)}
	require.NoError(t, store.CreateOperation(op))

	require.NoError(t, SetACL(store, op, types.AccessControlDescriptor{Inherit: true}))
	assert.True(t, op.RuntimeParams.NeedsFlush)
	assert.True(t, op.RuntimeParams.NeedsFlushACL)
}

func TestClearFlushFlags(t *testing.T) {
	store := newTestStore(t)
	op := &types.Operation{ID: ids.MustNew(3, ids.KindNode)}
	require.NoError(t, store.CreateOperation(op))
	require.NoError(t, SetACL(store, op, types.AccessControlDescriptor{}))

	require.NoError(t, ClearFlushFlags(store, op))
	assert.False(t, op.RuntimeParams.NeedsFlush)
	assert.False(t, op.RuntimeParams.NeedsFlushACL)
}

func TestPendingFlushListsOnlyFlaggedOperations(t *testing.T) {
	store := newTestStore(t)
	flagged := &types.Operation{ID: ids.MustNew(4, ids.KindNode)}
	require.NoError(t, store.CreateOperation(flagged))
	require.NoError(t, SetPool(store, flagged, "research"))

	clean := &types.Operation{ID: ids.MustNew(5, ids.KindNode)}
	require.NoError(t, store.CreateOperation(clean))

	pending, err := PendingFlush(store)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, flagged.ID, pending[0].ID)
}

func TestSchedulerStopIsIdempotentAcrossInstances(t *testing.T) {
	sched := &Scheduler{stopCh: make(chan struct{})}
	sched.Stop()

	select {
	case <-sched.stopCh:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("stopCh should be closed immediately")
	}
}
