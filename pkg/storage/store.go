package storage

import (
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/types"
)

// Store is the durable state a cell's Raft FSM applies commands against.
// It is deliberately entity-oriented, not tree-oriented: pkg/cypress builds
// the hierarchical resolve/lock/ACL semantics on top of a flat node table,
// the same way pkg/manager builds cluster semantics on top of
// a flat per-entity BoltStore.
type Store interface {
	// Cypress nodes (trunk and branch; branches are keyed by (ID, TransactionID))
	CreateNode(node *types.Node) error
	GetNode(id ids.ID) (*types.Node, error)
	GetBranch(id, txnID ids.ID) (*types.Node, error)
	ListBranches(txnID ids.ID) ([]*types.Node, error)
	UpdateNode(node *types.Node) error
	DeleteNode(id ids.ID) error
	DeleteBranch(id, txnID ids.ID) error
	ListNodes() ([]*types.Node, error)

	// Locks
	CreateLock(lock *types.Lock) error
	GetLock(id string) (*types.Lock, error)
	ListLocksByNode(nodeID ids.ID) ([]*types.Lock, error)
	ListLocksByTransaction(txnID ids.ID) ([]*types.Lock, error)
	UpdateLock(lock *types.Lock) error
	DeleteLock(id string) error

	// Transactions
	CreateTransaction(txn *types.Transaction) error
	GetTransaction(id ids.ID) (*types.Transaction, error)
	ListTransactions() ([]*types.Transaction, error)
	UpdateTransaction(txn *types.Transaction) error
	DeleteTransaction(id ids.ID) error

	// Timestamp holders
	SaveTimestampHolder(h *types.TimestampHolder) error
	GetTimestampHolder(timestamp uint64, cell ids.CellTag) (*types.TimestampHolder, error)
	ListTimestampHolders() ([]*types.TimestampHolder, error)
	DeleteTimestampHolder(timestamp uint64, cell ids.CellTag) error

	// Operations
	CreateOperation(op *types.Operation) error
	GetOperation(id ids.ID) (*types.Operation, error)
	GetOperationByAlias(alias string) (*types.Operation, error)
	ListOperations() ([]*types.Operation, error)
	UpdateOperation(op *types.Operation) error
	DeleteOperation(id ids.ID) error

	// Jobs
	CreateJob(job *types.Job) error
	GetJob(id ids.ID) (*types.Job, error)
	ListJobsByOperation(opID ids.ID) ([]*types.Job, error)
	UpdateJob(job *types.Job) error
	DeleteJob(id ids.ID) error

	// Archive (cleaner output, spec §4.3)
	CreateArchiveRequest(req *types.ArchiveRequest) error
	ListArchiveRequests() ([]*types.ArchiveRequest, error)
	DeleteArchiveRequest(id ids.ID) error

	// Certificate Authority
	SaveCA(data []byte) error
	GetCA() ([]byte, error)

	// Utility
	Close() error
}
