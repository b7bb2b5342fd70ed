package cypress_test

import (
	"testing"

	"github.com/cuemby/cellar/pkg/cypress"
	"github.com/cuemby/cellar/pkg/security"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestTreeWithSecrets(t *testing.T) *cypress.Tree {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sm, err := security.NewSecretsManager(security.DeriveKeyFromClusterID("test-cluster"))
	require.NoError(t, err)

	tree := cypress.NewTree(store, 1, zerolog.Nop())
	tree.SetSecretsManager(sm)
	return tree
}

func TestTreeSetEncryptsSecretNodeValueAtRest(t *testing.T) {
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sm, err := security.NewSecretsManager(security.DeriveKeyFromClusterID("test-cluster"))
	require.NoError(t, err)

	tree := cypress.NewTree(store, 1, zerolog.Nop())
	tree.SetSecretsManager(sm)
	txn := newTestTxn(t)

	node, err := tree.Create("/", "db-password", types.NodeKindSecret, txn, false)
	require.NoError(t, err)

	require.NoError(t, tree.Set("/db-password", []byte("hunter2"), txn))

	stored, err := store.GetNode(node.ID)
	require.NoError(t, err)
	require.NotEqual(t, []byte("hunter2"), stored.Value)
	require.NotEmpty(t, stored.Value)
}

func TestTreeGetDecryptsSecretNodeValue(t *testing.T) {
	tree := newTestTreeWithSecrets(t)
	txn := newTestTxn(t)

	_, err := tree.Create("/", "db-password", types.NodeKindSecret, txn, false)
	require.NoError(t, err)
	require.NoError(t, tree.Set("/db-password", []byte("hunter2"), txn))

	got, err := tree.Get("/db-password", txn.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("hunter2"), got.Value)
}

func TestTreeSetNonSecretNodeStoresValuePlaintext(t *testing.T) {
	tree := newTestTreeWithSecrets(t)
	txn := newTestTxn(t)

	_, err := tree.Create("/", "motd", types.NodeKindString, txn, false)
	require.NoError(t, err)
	require.NoError(t, tree.Set("/motd", []byte("hello"), txn))

	got, err := tree.Get("/motd", txn.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got.Value)
}

func TestTreeWithoutSecretsManagerStoresSecretValuePlaintext(t *testing.T) {
	tree := newTestTree(t)
	txn := newTestTxn(t)

	_, err := tree.Create("/", "db-password", types.NodeKindSecret, txn, false)
	require.NoError(t, err)
	require.NoError(t, tree.Set("/db-password", []byte("hunter2"), txn))

	got, err := tree.Get("/db-password", txn.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("hunter2"), got.Value)
}
