package types

import (
	"time"

	"github.com/cuemby/cellar/pkg/ids"
)

// TransactionState is the lifecycle state of a Transaction (spec §3
// "Transaction (C2)"), grounded on transaction_manager.cpp's commit/abort
// two-phase state machine.
type TransactionState string

const (
	TransactionActive                   TransactionState = "active"
	TransactionTransientCommitPrepared  TransactionState = "transient_commit_prepared"
	TransactionPersistentCommitPrepared TransactionState = "persistent_commit_prepared"
	TransactionCommitted                TransactionState = "committed"
	TransactionTransientAbortPrepared   TransactionState = "transient_abort_prepared"
	TransactionAborted                  TransactionState = "aborted"
)

// Transaction is a unit of isolation over the Cypress tree (spec §3, §4.2).
type Transaction struct {
	ID       ids.ID
	ParentID ids.ID // zero for a top-level transaction
	State    TransactionState

	// NativeCell is the cell that owns this transaction's write path.
	NativeCell ids.CellTag
	// Coordinator is the cell driving two-phase commit for a replicated or
	// externalized transaction; zero if this cell is the coordinator.
	Coordinator ids.CellTag
	// ReplicatedTo lists the cells this transaction has been replicated or
	// externalized to, in the order StartTransaction requested.
	ReplicatedTo []ids.CellTag

	Title              string
	AuthenticatedUser   string
	StartTime          time.Time
	// Deadline is the lease expiration instant; refreshed by PingTransaction.
	Deadline time.Time
	Timeout  time.Duration

	// PrerequisiteTransactionIDs must all remain Active for this transaction
	// to commit; checked at PrepareCommit.
	PrerequisiteTransactionIDs []ids.ID
	// DependentTransactionIDs is the reverse edge: transactions that name
	// this one as a prerequisite.
	DependentTransactionIDs []ids.ID

	// NestedTransactionIDs are the direct children of this transaction.
	NestedTransactionIDs []ids.ID

	// LockedNodeIDs is the set of trunk nodes this transaction holds any
	// lock on, maintained for fast lookup during commit/abort unwind.
	LockedNodeIDs []ids.ID
	// BranchedNodeIDs is the set of transaction-local branch nodes created
	// under this transaction (spec §4.1 "Branching").
	BranchedNodeIDs []ids.ID

	// CommitTimestamp is assigned when the transaction enters
	// TransactionTransientCommitPrepared and is what snapshot locks under it
	// observe.
	CommitTimestamp uint64
}

// IsFinished reports whether the transaction has reached a terminal state.
func (t *Transaction) IsFinished() bool {
	return t.State == TransactionCommitted || t.State == TransactionAborted
}

// IsExternalized reports whether this transaction object represents a
// foreign transaction mirrored onto a non-native cell.
func (t *Transaction) IsExternalized() bool {
	return t.Coordinator != 0 && t.Coordinator != t.NativeCell
}

// TimestampHolder tracks a cell's outstanding interest in a timestamp, used
// by the boomerang/presence-cache mechanism (spec §4.2) so a cell can tell
// whether it still needs to hold a given commit timestamp's side effects
// resident.
type TimestampHolder struct {
	Timestamp   uint64
	Cell        ids.CellTag
	RefCount    int
	LastPingAt  time.Time
}
