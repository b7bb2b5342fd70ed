/*
Package storage provides BoltDB-backed persistence for a cell's Cypress
tree, transaction table, and scheduler state.

Every entity -- Node, Lock, Transaction, TimestampHolder, Operation, Job,
ArchiveRequest -- is serialized as JSON into its own bucket, keyed by ID.
pkg/cypress, pkg/txn and pkg/scheduler build hierarchical and transactional
semantics on top of this flat store; the store itself has no notion of a
tree, only of records.

# Architecture

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            BoltStore                        │          │
	│  │  - File: <dataDir>/cellar.db                │          │
	│  │  - Format: B+tree with MVCC                 │          │
	│  │  - Transactions: ACID with fsync             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Bucket Structure                │          │
	│  │  ┌────────────────────────────┐             │          │
	│  │  │ nodes            (Node ID)  │             │          │
	│  │  │ branches      (node+txn key) │             │          │
	│  │  │ locks            (Lock ID)  │             │          │
	│  │  │ transactions     (Txn ID)   │             │          │
	│  │  │ timestamp_holders (ts+cell) │             │          │
	│  │  │ operations       (Op ID)    │             │          │
	│  │  │ jobs             (Job ID)   │             │          │
	│  │  │ archive_requests (Op ID)    │             │          │
	│  │  │ ca               (fixed key)│             │          │
	│  │  └────────────────────────────┘             │          │
	│  └────────────────────────────────────────────┘          │
	└────────────────────────────────────────────────────────────┘

# CRUD operations

Node and branch operations follow the same upsert/idempotent-delete pattern
used throughout: Create/Update both Put, Delete is a no-op on a missing key.
A branch is stored under a composite key (node id + transaction id) in its
own bucket, keeping trunk lookups -- the hot path -- a single-bucket hit.

Locks are listed both by node (conflict checking at acquire time) and by
transaction (unwind at commit/abort); both are full-bucket scans filtered
in memory, a deliberate tradeoff given bucket sizes in practice.

Operations support a secondary GetOperationByAlias lookup, a cursor scan
over the bucket, since aliases are rare enough not to warrant a second
index bucket.

# Usage

	store, err := storage.NewBoltStore("/var/lib/cellar/cell-1")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	node := &types.Node{ID: id, Kind: types.NodeKindMap}
	err = store.CreateNode(node)

	txn := &types.Transaction{ID: txnID, State: types.TransactionActive}
	err = store.CreateTransaction(txn)

	op := &types.Operation{ID: opID, State: types.OperationStarting}
	err = store.CreateOperation(op)

# Integration points

  - pkg/manager: Raft FSM reads/writes all entities through Store
  - pkg/cypress: resolves paths and checks locks against nodes/locks/branches
  - pkg/txn: reads/writes transactions and timestamp holders
  - pkg/scheduler, pkg/scheduler/cleaner: reads/writes operations, jobs,
    and archive requests
  - pkg/security: stores CA material and encrypted Secret-node payloads

# Design patterns

Upsert pattern: Create and Update share the same Put path, no existence
check required. Idempotent deletes: Delete never errors on a missing key,
so cleanup code can always call it unconditionally. Filter pattern: list
operations that need a predicate (ListLocksByNode, ListJobsByOperation)
scan the bucket and filter in memory -- fine at cell scale, revisited only
if a bucket's ForEach cost becomes the bottleneck.

# See also

  - pkg/manager for Raft FSM integration
  - pkg/types for all entity definitions
  - BoltDB documentation: https://github.com/etcd-io/bbolt
*/
package storage
