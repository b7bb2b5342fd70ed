package cypress

import (
	"fmt"
	"sync"

	"github.com/cuemby/cellar/pkg/cellarerr"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/types"
)

// LockManager acquires and releases locks on trunk nodes on behalf of
// transactions. Conflict checking reads the lock table fresh from storage
// on every call, so a LockManager carries no state of its own beyond a
// mutex serializing acquire attempts against concurrent Raft applies --
// the same pattern the Raft FSM uses to guard Apply.
type LockManager struct {
	mu    sync.Mutex
	store storage.Store
}

func newLockManager(store storage.Store) *LockManager {
	return &LockManager{store: store}
}

// compatible reports whether two lock modes/keys can be held concurrently
// by different transactions on the same node (spec §4.1 conflict matrix,
// plus the Open Question decision on waitable snapshot/shared-attribute
// compatibility: compatible unless both target the same attribute key).
func compatible(a, b types.Lock) bool {
	if a.Mode == types.LockModeExclusive || b.Mode == types.LockModeExclusive {
		return false
	}
	if a.Mode == types.LockModeSnapshot || b.Mode == types.LockModeSnapshot {
		// Snapshot locks never conflict with shared/snapshot locks; they
		// observe a pinned timestamp and never block a concurrent writer.
		return true
	}
	// Both shared: conflict only if both key the same attribute, or both
	// key the same child (spec §4.1 "shared(child=k) when inserting/
	// removing a specific child" -- same serialization rule as the
	// attribute case, just keyed on child name instead of attribute name).
	if a.Key.Kind == types.LockKeyAttribute && b.Key.Kind == types.LockKeyAttribute {
		return a.Key.Name != b.Key.Name
	}
	if a.Key.Kind == types.LockKeyChild && b.Key.Kind == types.LockKeyChild {
		return a.Key.Name != b.Key.Name
	}
	return true
}

// Acquire takes a lock of the given mode/key on nodeID for txnID. If an
// incompatible lock is already held by a different transaction, it returns
// a ConcurrentTransactionLockConflict; if waitable is set the caller may
// instead want a pending lock, but Cellar does not implement queuing --
// the caller retries (spec §9, narrowed from the original's full wait
// queue since no component in scope drives it).
func (m *LockManager) Acquire(txn *types.Transaction, nodeID ids.ID, mode types.LockMode, key types.LockKey, waitable bool) (*types.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.store.ListLocksByNode(nodeID)
	if err != nil {
		return nil, err
	}

	candidate := types.Lock{NodeID: nodeID, TransactionID: txn.ID, Mode: mode, Key: key}
	for _, held := range existing {
		if held.TransactionID == txn.ID {
			continue
		}
		if !compatible(candidate, *held) {
			return nil, cellarerr.LockConflict(nodeID.String(), held.TransactionID.String(), string(held.Mode))
		}
	}

	lock := &types.Lock{
		ID:            fmt.Sprintf("%s/%s", nodeID, txn.ID),
		NodeID:        nodeID,
		TransactionID: txn.ID,
		Mode:          mode,
		Key:           key,
		State:         types.LockStateAcquired,
		Waitable:      waitable,
		CreatedAt:     now(),
	}
	if mode == types.LockModeSnapshot {
		lock.Timestamp = txn.CommitTimestamp
	}
	if err := m.store.CreateLock(lock); err != nil {
		return nil, err
	}
	return lock, nil
}

// ReleaseAll removes every lock held by txnID, called on commit/abort
// unwind (spec §4.2 finish semantics).
func (m *LockManager) ReleaseAll(txnID ids.ID) error {
	locks, err := m.store.ListLocksByTransaction(txnID)
	if err != nil {
		return err
	}
	for _, l := range locks {
		if err := m.store.DeleteLock(l.ID); err != nil {
			return err
		}
	}
	return nil
}

// Lock is the public entry point used by the driver verb surface: resolve
// path, acquire the requested lock, and return the new branch node id if
// this acquisition created one (exclusive/shared locks always branch;
// snapshot locks never do, spec §4.1).
func (t *Tree) Lock(path string, txn *types.Transaction, mode types.LockMode, key types.LockKey, waitable bool) (*types.Lock, ids.ID, error) {
	node, err := t.Resolve(path, txn.ID)
	if err != nil {
		return nil, ids.Nil, err
	}
	lock, err := t.locks.Acquire(txn, node.ID, mode, key, waitable)
	if err != nil {
		return nil, ids.Nil, err
	}
	if mode == types.LockModeSnapshot {
		return lock, ids.Nil, nil
	}
	branch, err := t.branch(node, txn)
	if err != nil {
		return nil, ids.Nil, err
	}
	return lock, branch.ID, nil
}

// ReleaseAllLocks releases every lock held by txnID, called by pkg/txn on
// commit/abort.
func (t *Tree) ReleaseAllLocks(txnID ids.ID) error {
	return t.locks.ReleaseAll(txnID)
}

// Unlock releases lock by id. Only the transaction that holds it may
// release it before commit/abort time; callers pass the authenticated
// transaction to keep that check at this layer, not the driver's.
func (t *Tree) Unlock(lockID string, txn *types.Transaction) error {
	lock, err := t.store.GetLock(lockID)
	if err != nil {
		return err
	}
	if lock.TransactionID != txn.ID {
		return cellarerr.Authorization(txn.AuthenticatedUser, "unlock", lockID)
	}
	return t.store.DeleteLock(lockID)
}

// branch creates (or returns the existing) transaction-local branch of
// node under txn, copying its current trunk value as the branch's
// originator snapshot (spec §4.1 "Branching").
func (t *Tree) branch(node *types.Node, txn *types.Transaction) (*types.Node, error) {
	if existing, err := t.store.GetBranch(node.ID, txn.ID); err == nil {
		return existing, nil
	}
	branch := *node
	branch.TransactionID = txn.ID
	branch.OriginatorID = node.ID
	branch.Revision = node.Revision + 1
	if err := t.store.UpdateNode(&branch); err != nil {
		return nil, err
	}
	txn.BranchedNodeIDs = append(txn.BranchedNodeIDs, node.ID)
	if err := t.store.UpdateTransaction(txn); err != nil {
		return nil, err
	}
	return &branch, nil
}
