package txn_test

import (
	"testing"
	"time"

	"github.com/cuemby/cellar/pkg/cypress"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/txn"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*txn.Manager, *cypress.Tree) {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	tree := cypress.NewTree(store, 1, zerolog.Nop())
	return txn.NewManager(store, tree, 1, zerolog.Nop()), tree
}

func TestStartAndCommit(t *testing.T) {
	mgr, _ := newTestManager(t)

	tx, err := mgr.Start(txn.StartOptions{Title: "t1", Timeout: time.Minute})
	require.NoError(t, err)
	require.Equal(t, types.TransactionActive, tx.State)

	require.NoError(t, mgr.PrepareCommit(tx.ID))
	require.NoError(t, mgr.Commit(tx.ID, 100))
}

func TestAbortCascadesToNested(t *testing.T) {
	mgr, _ := newTestManager(t)

	parent, err := mgr.Start(txn.StartOptions{Title: "parent", Timeout: time.Minute})
	require.NoError(t, err)

	nested, err := mgr.Start(txn.StartOptions{ParentID: parent.ID, Title: "nested", Timeout: time.Minute})
	require.NoError(t, err)

	require.NoError(t, mgr.Abort(parent.ID))
	_ = nested
}

func TestPrerequisiteCheckFailed(t *testing.T) {
	mgr, _ := newTestManager(t)

	missing := ids.MustNew(1, ids.KindTransaction)
	_, err := mgr.Start(txn.StartOptions{PrerequisiteTransactionIDs: []ids.ID{missing}})
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	mgr, _ := newTestManager(t)

	tx, err := mgr.Start(txn.StartOptions{Timeout: time.Minute})
	require.NoError(t, err)

	require.NoError(t, mgr.Ping(tx.ID))
}
