package cypress_test

import (
	"testing"

	"github.com/cuemby/cellar/pkg/cellarerr"
	"github.com/cuemby/cellar/pkg/cypress"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func cellarerrCode(err error) (cellarerr.Code, bool) {
	return cellarerr.CodeOf(err)
}

func newTestTree(t *testing.T) *cypress.Tree {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return cypress.NewTree(store, 1, zerolog.Nop())
}

func newTestTxn(t *testing.T) *types.Transaction {
	t.Helper()
	return &types.Transaction{
		ID:    ids.MustNew(1, ids.KindTransaction),
		State: types.TransactionActive,
	}
}

func TestTreeCreateAndGet(t *testing.T) {
	tree := newTestTree(t)
	txn := newTestTxn(t)

	node, err := tree.Create("/", "home", types.NodeKindMap, txn, false)
	require.NoError(t, err)
	require.Equal(t, types.NodeKindMap, node.Kind)

	require.True(t, tree.Exists("/home", txn.ID))
	require.False(t, tree.Exists("/home", ids.Nil))
}

func TestTreeGetAttributeVirtualAttributes(t *testing.T) {
	tree := newTestTree(t)
	txn := newTestTxn(t)

	node, err := tree.Create("/", "home", types.NodeKindMap, txn, false)
	require.NoError(t, err)

	kind, err := tree.GetAttribute("/home/@type", txn.ID)
	require.NoError(t, err)
	require.Equal(t, string(types.NodeKindMap), string(kind))

	id, err := tree.GetAttribute("/home/@id", txn.ID)
	require.NoError(t, err)
	require.Equal(t, node.ID.String(), string(id))

	path, err := tree.GetAttribute("/home/@path", txn.ID)
	require.NoError(t, err)
	require.Equal(t, "/home", string(path))
}

func TestTreeGetAttributeUnknownReturnsError(t *testing.T) {
	tree := newTestTree(t)
	txn := newTestTxn(t)

	_, err := tree.Create("/", "home", types.NodeKindMap, txn, false)
	require.NoError(t, err)

	_, err = tree.GetAttribute("/home/@nonexistent", txn.ID)
	require.Error(t, err)
}

func TestTreeCreateAlreadyExists(t *testing.T) {
	tree := newTestTree(t)
	txn := newTestTxn(t)

	_, err := tree.Create("/", "home", types.NodeKindMap, txn, false)
	require.NoError(t, err)

	_, err = tree.Create("/", "home", types.NodeKindMap, txn, false)
	require.Error(t, err)
	code, ok := cellarerrCode(err)
	require.True(t, ok)
	require.Equal(t, "AlreadyExists", string(code))
}

func TestTreeSetAndGet(t *testing.T) {
	tree := newTestTree(t)
	txn := newTestTxn(t)

	_, err := tree.Create("/", "greeting", types.NodeKindString, txn, false)
	require.NoError(t, err)

	require.NoError(t, tree.Set("/greeting", []byte("hello"), txn))

	node, err := tree.Get("/greeting", txn.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), node.Value)
}

func TestTreeRemove(t *testing.T) {
	tree := newTestTree(t)
	txn := newTestTxn(t)

	_, err := tree.Create("/", "tmp", types.NodeKindMap, txn, false)
	require.NoError(t, err)
	require.True(t, tree.Exists("/tmp", txn.ID))

	require.NoError(t, tree.Remove("/tmp", txn))
	require.False(t, tree.Exists("/tmp", txn.ID))
}

func TestTreeLockConflict(t *testing.T) {
	tree := newTestTree(t)
	txnA := newTestTxn(t)
	txnB := newTestTxn(t)

	_, err := tree.Create("/", "shared", types.NodeKindMap, txnA, false)
	require.NoError(t, err)

	_, _, err = tree.Lock("/shared", txnA, types.LockModeExclusive, types.LockKey{}, false)
	require.NoError(t, err)

	_, _, err = tree.Lock("/shared", txnB, types.LockModeExclusive, types.LockKey{}, false)
	require.Error(t, err)
	code, ok := cellarerrCode(err)
	require.True(t, ok)
	require.Equal(t, "ConcurrentTransactionLockConflict", string(code))
}

func TestTreeCopy(t *testing.T) {
	tree := newTestTree(t)
	txn := newTestTxn(t)

	_, err := tree.Create("/", "src", types.NodeKindMap, txn, false)
	require.NoError(t, err)
	_, err = tree.Create("/src", "child", types.NodeKindString, txn, false)
	require.NoError(t, err)
	require.NoError(t, tree.Set("/src/child", []byte("v"), txn))

	_, err = tree.Copy("/src", "/", "dst", txn, false)
	require.NoError(t, err)

	node, err := tree.Get("/dst/child", txn.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("v"), node.Value)
}
