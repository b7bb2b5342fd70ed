// Package cypress implements the cluster's versioned hierarchical metadata
// tree: path resolution, per-node locking, access control evaluation, and
// the inheritable-attribute walk.
//
// A Tree is a thin layer over pkg/storage.Store: it never holds the tree
// in memory, it resolves a path one token at a time, reading trunk nodes
// or, inside a transaction, the transaction's branch if one has been
// created by a prior write in that transaction (spec §4.1 "Branching").
//
// A Tree with an attached *security.SecretsManager (see SetSecretsManager)
// transparently encrypts Set and decrypts Get for NodeKindSecret nodes, so
// a Secret node's Value never touches storage.Store in plaintext.
package cypress
