package cleaner

import (
	"testing"
	"time"

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

func TestBatcherFlushesOnSize(t *testing.T) {
	b := NewBatcher(2, time.Hour)
	assert.False(t, b.Ready())

	b.Enqueue(ids.MustNew(1, ids.KindNode))
	assert.False(t, b.Ready())

	b.Enqueue(ids.MustNew(1, ids.KindNode))
	assert.True(t, b.Ready())

	batch := b.Drain()
	assert.Len(t, batch, 2)
	assert.Equal(t, 0, b.Len())
}

func TestBatcherFlushesOnTimeout(t *testing.T) {
	b := NewBatcher(100, 10*time.Millisecond)
	b.Enqueue(ids.MustNew(1, ids.KindNode))
	assert.False(t, b.Ready())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Ready())
}

func TestRetryBackoffWithinBounds(t *testing.T) {
	for i := 0; i < 20; i++ {
		d := RetryBackoff(100*time.Millisecond, 200*time.Millisecond)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 200*time.Millisecond)
	}
}

func TestRetryBackoffDegenerateRange(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, RetryBackoff(100*time.Millisecond, 100*time.Millisecond))
}

func TestReadyToArchiveSkipsUnfinishedOperations(t *testing.T) {
	op := &types.Operation{State: types.OperationRunning, FinishTime: time.Now().Add(-time.Hour)}
	assert.False(t, readyToArchive(op, time.Now().Unix()))
}

func TestReadyToArchiveSkipsRecentlyFinishedOperations(t *testing.T) {
	op := &types.Operation{State: types.OperationCompleted, FinishTime: time.Now()}
	assert.False(t, readyToArchive(op, time.Now().Add(-time.Hour).Unix()))
}

func TestReadyToArchiveAcceptsAgedFinishedOperation(t *testing.T) {
	op := &types.Operation{State: types.OperationCompleted, FinishTime: time.Now().Add(-time.Hour)}
	assert.True(t, readyToArchive(op, time.Now().Unix()))
}

func TestCanArchiveHardLimit(t *testing.T) {
	op := &types.Operation{State: types.OperationFailed, FinishTime: time.Now(), JobIDs: []ids.ID{ids.MustNew(1, ids.KindNode)}}
	limits := RetentionLimits{HardLimit: 5}
	assert.True(t, canArchive(op, 5, 0, limits, time.Now()))
	assert.False(t, canArchive(op, 4, 0, limits, time.Now()))
}

func TestCanArchiveMaxAge(t *testing.T) {
	op := &types.Operation{State: types.OperationFailed, FinishTime: time.Now().Add(-2 * time.Hour), JobIDs: []ids.ID{ids.MustNew(1, ids.KindNode)}}
	limits := RetentionLimits{MaxAge: time.Hour}
	assert.True(t, canArchive(op, 0, 0, limits, time.Now()))
}

func TestCanArchiveCompletedWithNoJobs(t *testing.T) {
	op := &types.Operation{State: types.OperationCompleted, FinishTime: time.Now()}
	assert.True(t, canArchive(op, 0, 0, RetentionLimits{}, time.Now()))
}

func TestCanArchivePerUserLimit(t *testing.T) {
	op := &types.Operation{State: types.OperationFailed, FinishTime: time.Now(), JobIDs: []ids.ID{ids.MustNew(1, ids.KindNode)}, AuthenticatedUser: "alice"}
	limits := RetentionLimits{PerUserLimit: 3}
	assert.True(t, canArchive(op, 0, 3, limits, time.Now()))
	assert.False(t, canArchive(op, 0, 2, limits, time.Now()))
}

func TestCanArchiveSoftLimitSparesFailed(t *testing.T) {
	failed := &types.Operation{State: types.OperationFailed, FinishTime: time.Now(), JobIDs: []ids.ID{ids.MustNew(1, ids.KindNode)}}
	limits := RetentionLimits{SoftLimit: 2}
	assert.False(t, canArchive(failed, 10, 0, limits, time.Now()))

	aborted := &types.Operation{State: types.OperationAborted, FinishTime: time.Now(), JobIDs: []ids.ID{ids.MustNew(1, ids.KindNode)}}
	assert.True(t, canArchive(aborted, 10, 0, limits, time.Now()))
}

func TestAnalyzeRetentionRetainsNewestWithinBudget(t *testing.T) {
	now := time.Now()
	newest := &types.Operation{ID: ids.MustNew(1, ids.KindNode), State: types.OperationAborted, FinishTime: now, JobIDs: []ids.ID{ids.MustNew(9, ids.KindNode)}}
	oldest := &types.Operation{ID: ids.MustNew(2, ids.KindNode), State: types.OperationAborted, FinishTime: now.Add(-time.Minute), JobIDs: []ids.ID{ids.MustNew(9, ids.KindNode)}}

	limits := RetentionLimits{HardLimit: 1}
	toArchive := analyzeRetention([]*types.Operation{oldest, newest}, limits, now)

	require.Len(t, toArchive, 1)
	assert.Equal(t, oldest.ID, toArchive[0])
}

func TestArchiveBatchMovesOperationToArchive(t *testing.T) {
	store := newTestStore(t)
	op := &types.Operation{
		ID:         ids.MustNew(1, ids.KindNode),
		State:      types.OperationCompleted,
		FinishTime: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.CreateOperation(op))

	archived, err := archiveBatch(store, []ids.ID{op.ID}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []ids.ID{op.ID}, archived)

	archivedReqs, err := store.ListArchiveRequests()
	require.NoError(t, err)
	require.Len(t, archivedReqs, 1)
	assert.Equal(t, op.ID, archivedReqs[0].ID)
	assert.Equal(t, types.CurrentArchiveSchemaVersion, archivedReqs[0].SchemaVersion)
}

func TestArchiveBatchSkipsAlreadyRemovedOperation(t *testing.T) {
	store := newTestStore(t)
	// Nothing created for this ID; archiveBatch must not fail the whole batch.
	archived, err := archiveBatch(store, []ids.ID{ids.MustNew(1, ids.KindNode)}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, archived)
}

func TestArchiveBatchSkipsOversizedRow(t *testing.T) {
	store := newTestStore(t)
	op := &types.Operation{
		ID:         ids.MustNew(1, ids.KindNode),
		State:      types.OperationCompleted,
		FinishTime: time.Now().Add(-time.Hour),
		FullSpec:   []byte("0123456789"),
	}
	require.NoError(t, store.CreateOperation(op))

	var skipped []ids.ID
	archived, err := archiveBatch(store, []ids.ID{op.ID}, 1, func(id ids.ID) { skipped = append(skipped, id) })
	require.NoError(t, err)
	assert.Empty(t, archived)
	assert.Equal(t, []ids.ID{op.ID}, skipped)

	_, err = store.ListArchiveRequests()
	require.NoError(t, err)
}

func TestCleanerTickArchivesEligibleOperations(t *testing.T) {
	store := newTestStore(t)
	c := NewCleaner(store)
	c.retentionDelay = 0
	c.batcher = NewBatcher(1, time.Hour)

	op := &types.Operation{
		ID:         ids.MustNew(1, ids.KindNode),
		State:      types.OperationCompleted,
		FinishTime: time.Now().Add(-time.Millisecond),
	}
	require.NoError(t, store.CreateOperation(op))

	require.NoError(t, c.tick())

	archived, err := store.ListArchiveRequests()
	require.NoError(t, err)
	require.Len(t, archived, 1)

	// The operation record itself is only dropped once the remove batcher
	// drains it, which a single tick with the default large remove batch
	// doesn't force.
	_, err = store.GetOperation(op.ID)
	assert.NoError(t, err)
}

func TestCleanerTickRemovesOperationOnceRemoveBatchReady(t *testing.T) {
	store := newTestStore(t)
	c := NewCleanerWithOptions(store, Options{
		RetentionDelay:  0,
		BatchSize:       1,
		RemoveBatchSize: 1,
	})

	op := &types.Operation{
		ID:         ids.MustNew(1, ids.KindNode),
		State:      types.OperationCompleted,
		FinishTime: time.Now().Add(-time.Millisecond),
	}
	require.NoError(t, store.CreateOperation(op))

	require.NoError(t, c.tick()) // archives and enqueues for removal
	require.NoError(t, c.tick()) // drains the remove batch

	_, err := store.GetOperation(op.ID)
	assert.Error(t, err)
}

func TestCleanerTickRecyclesLockedEntries(t *testing.T) {
	store := newTestStore(t)
	c := NewCleanerWithOptions(store, Options{
		RetentionDelay:  0,
		BatchSize:       1,
		RemoveBatchSize: 1,
		LockCount:       func(id ids.ID) (int, error) { return 1, nil },
	})

	op := &types.Operation{
		ID:         ids.MustNew(1, ids.KindNode),
		State:      types.OperationCompleted,
		FinishTime: time.Now().Add(-time.Millisecond),
	}
	require.NoError(t, store.CreateOperation(op))

	require.NoError(t, c.tick())
	require.NoError(t, c.tick())

	_, err := store.GetOperation(op.ID)
	assert.NoError(t, err, "locked entries must recycle instead of being removed")
	assert.Equal(t, 1, c.removeBatcher.Len())
}

func TestCleanerTickLeavesIneligibleOperationsAlone(t *testing.T) {
	store := newTestStore(t)
	c := NewCleaner(store)

	op := &types.Operation{ID: ids.MustNew(1, ids.KindNode), State: types.OperationRunning}
	require.NoError(t, store.CreateOperation(op))

	require.NoError(t, c.tick())

	got, err := store.GetOperation(op.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OperationRunning, got.State)
}

func TestCleanerTickSuspendsArchivalPastWatermark(t *testing.T) {
	store := newTestStore(t)
	c := NewCleanerWithOptions(store, Options{
		RetentionDelay:  0,
		BatchSize:       100,
		QueueWatermark:  1,
		SuspensionDelay: time.Hour,
	})

	op := &types.Operation{
		ID:         ids.MustNew(1, ids.KindNode),
		State:      types.OperationCompleted,
		FinishTime: time.Now().Add(-time.Millisecond),
	}
	require.NoError(t, store.CreateOperation(op))

	require.NoError(t, c.tick()) // enqueues, crosses watermark, suspends
	require.NoError(t, c.tick()) // would otherwise flush; must stay suspended

	archived, err := store.ListArchiveRequests()
	require.NoError(t, err)
	assert.Empty(t, archived)
	assert.False(t, c.suspendedUntil.IsZero())
}

func TestNewCleanerWithOptionsAppliesOverrides(t *testing.T) {
	store := newTestStore(t)
	c := NewCleanerWithOptions(store, Options{
		RetentionDelay: 2 * time.Minute,
		BatchSize:      7,
		BatchWait:      3 * time.Second,
	})

	assert.Equal(t, 2*time.Minute, c.retentionDelay)
	assert.Equal(t, 7, c.batcher.maxSize)
	assert.Equal(t, 3*time.Second, c.batcher.maxWait)
}

func TestNewCleanerWithOptionsFallsBackToDefaultsOnZeroValue(t *testing.T) {
	store := newTestStore(t)
	c := NewCleanerWithOptions(store, Options{})

	assert.Equal(t, DefaultRetentionDelay, c.retentionDelay)
	assert.Equal(t, defaultBatchSize, c.batcher.maxSize)
	assert.Equal(t, defaultBatchWait, c.batcher.maxWait)
	assert.Equal(t, DefaultRetentionLimits, c.limits)
	assert.Equal(t, defaultMaxValueWeight, c.maxValueWeight)
	assert.Equal(t, defaultQueueWatermark, c.queueWatermark)
	assert.Equal(t, defaultSuspensionDelay, c.suspensionDelay)
}

func TestCleanerStopIsIdempotentAcrossInstances(t *testing.T) {
	c := &Cleaner{stopCh: make(chan struct{})}
	c.Stop()

	select {
	case <-c.stopCh:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("stopCh should be closed immediately")
	}
}
