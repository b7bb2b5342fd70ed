package storage_test

import (
	"testing"

	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *storage.BoltStore {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreNodeCRUD(t *testing.T) {
	store := newTestStore(t)

	id := ids.MustNew(1, ids.KindNode)
	node := &types.Node{ID: id, Kind: types.NodeKindMap}
	require.NoError(t, store.CreateNode(node))

	got, err := store.GetNode(id)
	require.NoError(t, err)
	require.Equal(t, types.NodeKindMap, got.Kind)

	node.Kind = types.NodeKindList
	require.NoError(t, store.UpdateNode(node))

	got, err = store.GetNode(id)
	require.NoError(t, err)
	require.Equal(t, types.NodeKindList, got.Kind)

	nodes, err := store.ListNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	require.NoError(t, store.DeleteNode(id))
	_, err = store.GetNode(id)
	require.Error(t, err)
}

func TestBoltStoreBranches(t *testing.T) {
	store := newTestStore(t)

	nodeID := ids.MustNew(1, ids.KindNode)
	txnID := ids.MustNew(1, ids.KindTransaction)
	branch := &types.Node{ID: nodeID, TransactionID: txnID, Kind: types.NodeKindMap}
	require.NoError(t, store.UpdateNode(branch))

	got, err := store.GetBranch(nodeID, txnID)
	require.NoError(t, err)
	require.Equal(t, txnID, got.TransactionID)

	branches, err := store.ListBranches(txnID)
	require.NoError(t, err)
	require.Len(t, branches, 1)
}

func TestBoltStoreLocks(t *testing.T) {
	store := newTestStore(t)

	nodeID := ids.MustNew(1, ids.KindNode)
	txnID := ids.MustNew(1, ids.KindTransaction)
	lock := &types.Lock{ID: "lock-1", NodeID: nodeID, TransactionID: txnID, Mode: types.LockModeExclusive, State: types.LockStateAcquired}
	require.NoError(t, store.CreateLock(lock))

	byNode, err := store.ListLocksByNode(nodeID)
	require.NoError(t, err)
	require.Len(t, byNode, 1)

	byTxn, err := store.ListLocksByTransaction(txnID)
	require.NoError(t, err)
	require.Len(t, byTxn, 1)

	require.NoError(t, store.DeleteLock(lock.ID))
	byNode, err = store.ListLocksByNode(nodeID)
	require.NoError(t, err)
	require.Empty(t, byNode)
}

func TestBoltStoreTransactionCRUD(t *testing.T) {
	store := newTestStore(t)

	id := ids.MustNew(1, ids.KindTransaction)
	txn := &types.Transaction{ID: id, State: types.TransactionActive}
	require.NoError(t, store.CreateTransaction(txn))

	got, err := store.GetTransaction(id)
	require.NoError(t, err)
	require.Equal(t, types.TransactionActive, got.State)

	got.State = types.TransactionCommitted
	require.NoError(t, store.UpdateTransaction(got))

	got, err = store.GetTransaction(id)
	require.NoError(t, err)
	require.Equal(t, types.TransactionCommitted, got.State)

	require.NoError(t, store.DeleteTransaction(id))
	_, err = store.GetTransaction(id)
	require.Error(t, err)
}

func TestBoltStoreOperationByAlias(t *testing.T) {
	store := newTestStore(t)

	id := ids.MustNew(1, ids.KindNode)
	op := &types.Operation{ID: id, Alias: "nightly-merge", State: types.OperationRunning}
	require.NoError(t, store.CreateOperation(op))

	got, err := store.GetOperationByAlias("nightly-merge")
	require.NoError(t, err)
	require.Equal(t, id, got.ID)

	_, err = store.GetOperationByAlias("no-such-alias")
	require.Error(t, err)
}

func TestBoltStoreArchiveRequests(t *testing.T) {
	store := newTestStore(t)

	id := ids.MustNew(1, ids.KindNode)
	req := &types.ArchiveRequest{ID: id, State: types.OperationCompleted, SchemaVersion: types.CurrentArchiveSchemaVersion}
	require.NoError(t, store.CreateArchiveRequest(req))

	reqs, err := store.ListArchiveRequests()
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	require.NoError(t, store.DeleteArchiveRequest(id))
	reqs, err = store.ListArchiveRequests()
	require.NoError(t, err)
	require.Empty(t, reqs)
}

func TestBoltStoreCA(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetCA()
	require.Error(t, err)

	require.NoError(t, store.SaveCA([]byte("root-cert-der")))
	data, err := store.GetCA()
	require.NoError(t, err)
	require.Equal(t, []byte("root-cert-der"), data)
}
