package scheduler

import (
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/types"
)

// SetPool updates an operation's pool assignment and flags
// RuntimeParameters for a flush to the archive/heavy-parameters row on the
// next cleaner pass (spec §4.3 "needs-flush"), grounded on operation.cpp's
// TOperationRuntimeParameters mutation path.
func SetPool(store storage.Store, op *types.Operation, pool string) error {
	op.RuntimeParams.Pool = pool
	op.RuntimeParams.NeedsFlush = true
	return store.UpdateOperation(op)
}

// SetACL updates an operation's runtime ACL, flagging both the general and
// ACL-specific needs-flush bits since an ACL change must be persisted
// promptly for authorization checks to observe it (spec §4.3).
func SetACL(store storage.Store, op *types.Operation, acd types.AccessControlDescriptor) error {
	op.RuntimeParams.Acl = acd
	op.RuntimeParams.NeedsFlush = true
	op.RuntimeParams.NeedsFlushACL = true
	return store.UpdateOperation(op)
}

// ClearFlushFlags resets the needs-flush flags once the cleaner (or the
// manager's periodic flush loop) has durably persisted the current
// RuntimeParameters.
func ClearFlushFlags(store storage.Store, op *types.Operation) error {
	op.RuntimeParams.NeedsFlush = false
	op.RuntimeParams.NeedsFlushACL = false
	return store.UpdateOperation(op)
}

// PendingFlush lists operations whose runtime parameters changed since
// their last flush, used by the reconciler-derived flush loop
// (pkg/reconciler) to decide what to persist on its own tick.
func PendingFlush(store storage.Store) ([]*types.Operation, error) {
	ops, err := store.ListOperations()
	if err != nil {
		return nil, err
	}
	var pending []*types.Operation
	for _, op := range ops {
		if op.RuntimeParams.NeedsFlush {
			pending = append(pending, op)
		}
	}
	return pending, nil
}
