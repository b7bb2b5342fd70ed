package txn

import (
	"time"

	"github.com/cuemby/cellar/pkg/cellarerr"
	"github.com/cuemby/cellar/pkg/cypress"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/metrics"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/rs/zerolog"
)

const DefaultTimeout = 15 * time.Second

// Manager implements the transaction state machine (spec §3, §4.2),
// grounded on transaction_manager.cpp's Start/PrepareCommit/Commit/
// Abort/Finish ordering.
type Manager struct {
	store   storage.Store
	tree    *cypress.Tree
	leases  *LeaseTable
	cell    ids.CellTag
	logger  zerolog.Logger
}

// NewManager builds a Manager for the given cell, backed by store and
// using tree to unwind locks on finish.
func NewManager(store storage.Store, tree *cypress.Tree, cell ids.CellTag, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		tree:   tree,
		leases: NewLeaseTable(),
		cell:   cell,
		logger: logger.With().Str("component", "txn").Logger(),
	}
}

// StartOptions configures Start.
type StartOptions struct {
	ParentID                   ids.ID
	Title                      string
	AuthenticatedUser          string
	Timeout                    time.Duration
	PrerequisiteTransactionIDs []ids.ID
	ReplicateTo                []ids.CellTag
}

// Start begins a new transaction, nested under ParentID if set. Prerequisite
// transactions must already be Active (spec §4.2 "Prerequisite checks").
func (m *Manager) Start(opts StartOptions) (*types.Transaction, error) {
	for _, prereqID := range opts.PrerequisiteTransactionIDs {
		prereq, err := m.store.GetTransaction(prereqID)
		if err != nil || prereq.State != types.TransactionActive {
			return nil, cellarerr.PrerequisiteCheckFailed(prereqID.String())
		}
	}

	kind := ids.KindTransaction
	depth := 0
	if !opts.ParentID.IsZero() {
		parent, err := m.store.GetTransaction(opts.ParentID)
		if err != nil {
			return nil, cellarerr.NoSuchTransaction(opts.ParentID.String())
		}
		if parent.State != types.TransactionActive {
			return nil, cellarerr.TransactionState("parent transaction %s is not active", opts.ParentID)
		}
		kind = ids.KindNestedTransaction
		depth = m.nestingDepth(parent) + 1
	}
	metrics.TransactionNestingDepth.Set(float64(depth))

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	txn := &types.Transaction{
		ID:                         ids.MustNew(m.cell, kind),
		ParentID:                   opts.ParentID,
		State:                      types.TransactionActive,
		NativeCell:                 m.cell,
		Title:                      opts.Title,
		AuthenticatedUser:          opts.AuthenticatedUser,
		StartTime:                  time.Now().UTC(),
		Timeout:                    timeout,
		PrerequisiteTransactionIDs: opts.PrerequisiteTransactionIDs,
		ReplicatedTo:               opts.ReplicateTo,
	}
	txn.Deadline = txn.StartTime.Add(timeout)

	if err := m.store.CreateTransaction(txn); err != nil {
		return nil, err
	}

	if !opts.ParentID.IsZero() {
		parent, err := m.store.GetTransaction(opts.ParentID)
		if err != nil {
			return nil, err
		}
		parent.NestedTransactionIDs = append(parent.NestedTransactionIDs, txn.ID)
		if err := m.store.UpdateTransaction(parent); err != nil {
			return nil, err
		}
	}

	for _, prereqID := range opts.PrerequisiteTransactionIDs {
		prereq, err := m.store.GetTransaction(prereqID)
		if err != nil {
			return nil, err
		}
		prereq.DependentTransactionIDs = append(prereq.DependentTransactionIDs, txn.ID)
		if err := m.store.UpdateTransaction(prereq); err != nil {
			return nil, err
		}
	}

	m.leases.Arm(txn.ID, txn.Deadline, func() { _ = m.expire(txn.ID) })
	m.logger.Debug().Str("transaction_id", txn.ID.String()).Msg("transaction started")
	return txn, nil
}

// nestingDepth walks txn's ParentID chain to compute how deep it sits below
// its topmost ancestor, logging (but not failing on) a cycle or a broken
// link so a missing ancestor never blocks Start.
func (m *Manager) nestingDepth(txn *types.Transaction) int {
	depth := 0
	seen := map[ids.ID]bool{txn.ID: true}
	for !txn.ParentID.IsZero() {
		if seen[txn.ParentID] {
			m.logger.Warn().Str("transaction_id", txn.ID.String()).Msg("cyclic transaction parent chain")
			break
		}
		parent, err := m.store.GetTransaction(txn.ParentID)
		if err != nil {
			break
		}
		seen[txn.ParentID] = true
		txn = parent
		depth++
	}
	return depth
}

// Ping refreshes a transaction's lease, keeping it alive past its original
// timeout (spec §4.2 "Lease").
func (m *Manager) Ping(id ids.ID) error {
	txn, err := m.store.GetTransaction(id)
	if err != nil {
		return cellarerr.NoSuchTransaction(id.String())
	}
	if txn.State != types.TransactionActive {
		return cellarerr.TransactionState("transaction %s is not active", id)
	}
	txn.Deadline = time.Now().UTC().Add(txn.Timeout)
	if err := m.store.UpdateTransaction(txn); err != nil {
		return err
	}
	m.leases.Arm(id, txn.Deadline, func() { _ = m.expire(id) })
	return nil
}

// PrepareCommit moves txn into the first phase of two-phase commit: every
// nested transaction must already be finished, and every prerequisite must
// still be Active (spec §4.2).
func (m *Manager) PrepareCommit(id ids.ID) error {
	txn, err := m.store.GetTransaction(id)
	if err != nil {
		return cellarerr.NoSuchTransaction(id.String())
	}
	if txn.State != types.TransactionActive {
		return cellarerr.TransactionState("transaction %s is not active", id)
	}
	for _, nestedID := range txn.NestedTransactionIDs {
		nested, err := m.store.GetTransaction(nestedID)
		if err == nil && !nested.IsFinished() {
			return cellarerr.TransactionState("nested transaction %s is still active", nestedID)
		}
	}
	for _, prereqID := range txn.PrerequisiteTransactionIDs {
		prereq, err := m.store.GetTransaction(prereqID)
		if err != nil || prereq.State != types.TransactionActive {
			return cellarerr.PrerequisiteCheckFailed(prereqID.String())
		}
	}

	txn.State = types.TransactionTransientCommitPrepared
	if len(txn.ReplicatedTo) > 0 {
		txn.State = types.TransactionPersistentCommitPrepared
	}
	return m.store.UpdateTransaction(txn)
}

// Commit finalizes txn. A top-level transaction's branches are promoted to
// the trunk; a nested transaction's branches are instead re-keyed into its
// parent's branch scope, so the change stays invisible outside the parent
// until the parent itself commits (spec §8 scenario S2: committing a nested
// transaction must not make its writes visible under trunk). Either way the
// transaction's own branch records are retired, its locks are released, and
// it is marked Committed.
func (m *Manager) Commit(id ids.ID, commitTimestamp uint64) error {
	txn, err := m.store.GetTransaction(id)
	if err != nil {
		return cellarerr.NoSuchTransaction(id.String())
	}
	if txn.State != types.TransactionTransientCommitPrepared && txn.State != types.TransactionPersistentCommitPrepared {
		return cellarerr.TransactionState("transaction %s is not commit-prepared", id)
	}
	txn.CommitTimestamp = commitTimestamp

	branches, err := m.store.ListBranches(id)
	if err != nil {
		return err
	}
	for _, branch := range branches {
		merged := *branch
		merged.ModificationTime = time.Now().UTC()
		if txn.ParentID.IsZero() {
			merged.TransactionID = ids.Nil
			merged.OriginatorID = ids.Nil
		} else {
			merged.TransactionID = txn.ParentID
		}
		if err := m.store.UpdateNode(&merged); err != nil {
			return err
		}
		if err := m.store.DeleteBranch(branch.ID, id); err != nil {
			return err
		}
		if !txn.ParentID.IsZero() {
			if parent, err := m.store.GetTransaction(txn.ParentID); err == nil {
				if !containsID(parent.BranchedNodeIDs, branch.ID) {
					parent.BranchedNodeIDs = append(parent.BranchedNodeIDs, branch.ID)
					_ = m.store.UpdateTransaction(parent)
				}
			}
		}
	}

	if err := m.finish(txn, types.TransactionCommitted); err != nil {
		return err
	}
	m.leases.Cancel(id)
	return nil
}

func containsID(haystack []ids.ID, needle ids.ID) bool {
	for _, x := range haystack {
		if x == needle {
			return true
		}
	}
	return false
}

// Abort discards txn's branches and marks it Aborted.
func (m *Manager) Abort(id ids.ID) error {
	txn, err := m.store.GetTransaction(id)
	if err != nil {
		return cellarerr.NoSuchTransaction(id.String())
	}
	if txn.IsFinished() {
		return cellarerr.TransactionState("transaction %s is already finished", id)
	}

	for _, nestedID := range txn.NestedTransactionIDs {
		_ = m.Abort(nestedID)
	}

	branches, err := m.store.ListBranches(id)
	if err != nil {
		return err
	}
	for _, branch := range branches {
		if err := m.store.DeleteBranch(branch.ID, id); err != nil {
			return err
		}
	}

	if err := m.finish(txn, types.TransactionAborted); err != nil {
		return err
	}
	m.leases.Cancel(id)
	return nil
}

func (m *Manager) finish(txn *types.Transaction, state types.TransactionState) error {
	txn.State = state
	if err := m.store.UpdateTransaction(txn); err != nil {
		return err
	}
	if m.tree != nil {
		if err := m.tree.ReleaseAllLocks(txn.ID); err != nil {
			return err
		}
	}
	for _, dependentID := range txn.DependentTransactionIDs {
		dependent, err := m.store.GetTransaction(dependentID)
		if err != nil {
			continue
		}
		if state == types.TransactionAborted && dependent.State == types.TransactionActive {
			_ = m.Abort(dependentID)
		}
	}
	return nil
}

// expire is the lease callback: aborts a transaction whose client stopped
// pinging it before its deadline.
func (m *Manager) expire(id ids.ID) error {
	txn, err := m.store.GetTransaction(id)
	if err != nil || txn.IsFinished() {
		return nil
	}
	if time.Now().UTC().Before(txn.Deadline) {
		return nil // raced with a Ping; not actually expired
	}
	m.logger.Info().Str("transaction_id", id.String()).Msg("transaction lease expired")
	return m.Abort(id)
}
