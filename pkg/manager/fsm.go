package manager

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cuemby/cellar/pkg/cypress"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/scheduler"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/txn"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/hashicorp/raft"
)

// cellarFSM implements the Raft Finite State Machine for a cell's Cypress
// tree, transaction table, and scheduler state. It applies log entries by
// dispatching into pkg/cypress, pkg/txn, and pkg/scheduler, guarding
// Apply with a single RWMutex shared by all three state owners.
type cellarFSM struct {
	mu    sync.RWMutex
	store storage.Store
	tree  *cypress.Tree
	txns  *txn.Manager
	sched *scheduler.Scheduler
}

// newCellarFSM creates a new FSM instance wired to tree/txns/sched, all of
// which share store as their backing durable state.
func newCellarFSM(store storage.Store, tree *cypress.Tree, txns *txn.Manager, sched *scheduler.Scheduler) *cellarFSM {
	return &cellarFSM{
		store: store,
		tree:  tree,
		txns:  txns,
		sched: sched,
	}
}

// Command represents a state change operation in the Raft log.
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

// Command op types dispatched by Apply.
const (
	OpCreateNode               = "create_node"
	OpSetNode                  = "set_node"
	OpRemoveNode               = "remove_node"
	OpCopyNode                 = "copy_node"
	OpMoveNode                 = "move_node"
	OpLinkNode                 = "link_node"
	OpLockNode                 = "lock_node"
	OpUnlockNode               = "unlock_node"
	OpStartTransaction         = "start_transaction"
	OpPingTransaction          = "ping_transaction"
	OpPrepareCommitTransaction = "prepare_commit_transaction"
	OpCommitTransaction        = "commit_transaction"
	OpAbortTransaction         = "abort_transaction"
	OpSubmitOperation          = "submit_operation"
	OpAbortOperation           = "abort_operation"
	OpSetPool                  = "set_pool"
	OpSetACL                   = "set_acl"
	OpSetAttribute             = "set_attribute"
	OpRemoveAttribute          = "remove_attribute"
)

type createNodeRequest struct {
	ParentPath    string         `json:"parent_path"`
	Name          string         `json:"name"`
	Kind          types.NodeKind `json:"kind"`
	TransactionID ids.ID         `json:"transaction_id"`
	Force         bool           `json:"force"`
}

type setNodeRequest struct {
	Path          string `json:"path"`
	Value         []byte `json:"value"`
	TransactionID ids.ID `json:"transaction_id"`
}

type removeNodeRequest struct {
	Path          string `json:"path"`
	TransactionID ids.ID `json:"transaction_id"`
}

type setAttributeRequest struct {
	Path          string `json:"path"`
	Attribute     string `json:"attribute"`
	Value         []byte `json:"value"`
	TransactionID ids.ID `json:"transaction_id"`
}

type removeAttributeRequest struct {
	Path          string `json:"path"`
	Attribute     string `json:"attribute"`
	TransactionID ids.ID `json:"transaction_id"`
}

type copyNodeRequest struct {
	SrcPath       string `json:"src_path"`
	DstParentPath string `json:"dst_parent_path"`
	Name          string `json:"name"`
	TransactionID ids.ID `json:"transaction_id"`
	Force         bool   `json:"force"`
}

type linkNodeRequest struct {
	ParentPath    string `json:"parent_path"`
	Name          string `json:"name"`
	TargetPath    string `json:"target_path"`
	TransactionID ids.ID `json:"transaction_id"`
}

type lockNodeRequest struct {
	Path          string        `json:"path"`
	TransactionID ids.ID        `json:"transaction_id"`
	Mode          types.LockMode `json:"mode"`
	Key           types.LockKey  `json:"key"`
	Waitable      bool           `json:"waitable"`
}

type unlockNodeRequest struct {
	LockID        string `json:"lock_id"`
	TransactionID ids.ID `json:"transaction_id"`
}

type startTransactionRequest struct {
	ParentID                   ids.ID        `json:"parent_id"`
	Title                      string        `json:"title"`
	AuthenticatedUser          string        `json:"authenticated_user"`
	TimeoutSeconds             int64         `json:"timeout_seconds"`
	PrerequisiteTransactionIDs []ids.ID      `json:"prerequisite_transaction_ids"`
	ReplicateTo                []ids.CellTag `json:"replicate_to"`
}

type transactionIDRequest struct {
	ID ids.ID `json:"id"`
}

type commitTransactionRequest struct {
	ID              ids.ID `json:"id"`
	CommitTimestamp uint64 `json:"commit_timestamp"`
}

type submitOperationRequest struct {
	Operation *types.Operation `json:"operation"`
}

type operationIDRequest struct {
	ID ids.ID `json:"id"`
}

type setPoolRequest struct {
	OperationID ids.ID `json:"operation_id"`
	Pool        string `json:"pool"`
}

type setACLRequest struct {
	OperationID ids.ID                       `json:"operation_id"`
	ACD         types.AccessControlDescriptor `json:"acd"`
}

// attributePath joins a node path and a bare attribute name into the
// "path/@attr" form pkg/cypress's attribute verbs expect.
func attributePath(path, attr string) string {
	if path == "/" || path == "" {
		return "@" + attr
	}
	return path + "/@" + attr
}

// LockResult is the Apply() return value for a successful OpLockNode command.
type LockResult struct {
	Lock   *types.Lock
	LockID ids.ID
}

// applyResult normalizes a (value, error) pair from a pkg/cypress call into
// the single interface{} Apply returns: the error when non-nil, else the
// value, so callers can type-switch on the result without a wrapper type.
func applyResult(v interface{}, err error) interface{} {
	if err != nil {
		return err
	}
	return v
}

// lookupTransaction returns the transaction named by id, or a synthetic
// zero-ID transaction standing in for "no transaction" (a direct trunk
// write), matching pkg/cypress's convention that ids.Nil means trunk.
func (f *cellarFSM) lookupTransaction(id ids.ID) (*types.Transaction, error) {
	if id.IsZero() {
		return &types.Transaction{ID: ids.Nil}, nil
	}
	return f.store.GetTransaction(id)
}

// Apply applies a single committed Raft log entry to the FSM.
func (f *cellarFSM) Apply(l *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(l.Data, &cmd); err != nil {
		return fmt.Errorf("unmarshal command: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Op {
	case OpCreateNode:
		var req createNodeRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		txnObj, err := f.lookupTransaction(req.TransactionID)
		if err != nil {
			return err
		}
		return applyResult(f.tree.Create(req.ParentPath, req.Name, req.Kind, txnObj, req.Force))

	case OpSetNode:
		var req setNodeRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		txnObj, err := f.lookupTransaction(req.TransactionID)
		if err != nil {
			return err
		}
		return f.tree.Set(req.Path, req.Value, txnObj)

	case OpRemoveNode:
		var req removeNodeRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		txnObj, err := f.lookupTransaction(req.TransactionID)
		if err != nil {
			return err
		}
		return f.tree.Remove(req.Path, txnObj)

	case OpSetAttribute:
		var req setAttributeRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		txnObj, err := f.lookupTransaction(req.TransactionID)
		if err != nil {
			return err
		}
		return f.tree.SetAttribute(attributePath(req.Path, req.Attribute), req.Value, txnObj)

	case OpRemoveAttribute:
		var req removeAttributeRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		txnObj, err := f.lookupTransaction(req.TransactionID)
		if err != nil {
			return err
		}
		return f.tree.RemoveAttribute(attributePath(req.Path, req.Attribute), txnObj)

	case OpCopyNode:
		var req copyNodeRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		txnObj, err := f.lookupTransaction(req.TransactionID)
		if err != nil {
			return err
		}
		return applyResult(f.tree.Copy(req.SrcPath, req.DstParentPath, req.Name, txnObj, req.Force))

	case OpMoveNode:
		var req copyNodeRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		txnObj, err := f.lookupTransaction(req.TransactionID)
		if err != nil {
			return err
		}
		return applyResult(f.tree.Move(req.SrcPath, req.DstParentPath, req.Name, txnObj, req.Force))

	case OpLinkNode:
		var req linkNodeRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		txnObj, err := f.lookupTransaction(req.TransactionID)
		if err != nil {
			return err
		}
		return applyResult(f.tree.Link(req.ParentPath, req.Name, req.TargetPath, txnObj))

	case OpLockNode:
		var req lockNodeRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		txnObj, err := f.lookupTransaction(req.TransactionID)
		if err != nil {
			return err
		}
		lock, lockID, err := f.tree.Lock(req.Path, txnObj, req.Mode, req.Key, req.Waitable)
		if err != nil {
			return err
		}
		return &LockResult{Lock: lock, LockID: lockID}

	case OpUnlockNode:
		var req unlockNodeRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		txnObj, err := f.lookupTransaction(req.TransactionID)
		if err != nil {
			return err
		}
		return f.tree.Unlock(req.LockID, txnObj)

	case OpStartTransaction:
		var req startTransactionRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		opts := txn.StartOptions{
			ParentID:                   req.ParentID,
			Title:                      req.Title,
			AuthenticatedUser:          req.AuthenticatedUser,
			PrerequisiteTransactionIDs: req.PrerequisiteTransactionIDs,
			ReplicateTo:                req.ReplicateTo,
		}
		if req.TimeoutSeconds > 0 {
			opts.Timeout = time.Duration(req.TimeoutSeconds) * time.Second
		}
		started, err := f.txns.Start(opts)
		if err != nil {
			return err
		}
		return started

	case OpPingTransaction:
		var req transactionIDRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		return f.txns.Ping(req.ID)

	case OpPrepareCommitTransaction:
		var req transactionIDRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		return f.txns.PrepareCommit(req.ID)

	case OpCommitTransaction:
		var req commitTransactionRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		return f.txns.Commit(req.ID, req.CommitTimestamp)

	case OpAbortTransaction:
		var req transactionIDRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		return f.txns.Abort(req.ID)

	case OpSubmitOperation:
		var req submitOperationRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		if err := f.sched.Submit(req.Operation); err != nil {
			return err
		}
		return req.Operation

	case OpAbortOperation:
		var req operationIDRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		return f.sched.Abort(req.ID)

	case OpSetPool:
		var req setPoolRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		op, err := f.store.GetOperation(req.OperationID)
		if err != nil {
			return err
		}
		return scheduler.SetPool(f.store, op, req.Pool)

	case OpSetACL:
		var req setACLRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			return err
		}
		op, err := f.store.GetOperation(req.OperationID)
		if err != nil {
			return err
		}
		return scheduler.SetACL(f.store, op, req.ACD)

	default:
		return fmt.Errorf("unknown command op %q", cmd.Op)
	}
}

// Snapshot captures the entire cell's durable state for Raft snapshotting.
func (f *cellarFSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	nodes, err := f.store.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	txns, err := f.store.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	holders, err := f.store.ListTimestampHolders()
	if err != nil {
		return nil, fmt.Errorf("list timestamp holders: %w", err)
	}
	ops, err := f.store.ListOperations()
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	archived, err := f.store.ListArchiveRequests()
	if err != nil {
		return nil, fmt.Errorf("list archive requests: %w", err)
	}

	var locks []*types.Lock
	for _, node := range nodes {
		nodeLocks, err := f.store.ListLocksByNode(node.ID)
		if err != nil {
			return nil, fmt.Errorf("list locks for %s: %w", node.ID, err)
		}
		locks = append(locks, nodeLocks...)
	}

	var jobs []*types.Job
	for _, op := range ops {
		opJobs, err := f.store.ListJobsByOperation(op.ID)
		if err != nil {
			return nil, fmt.Errorf("list jobs for %s: %w", op.ID, err)
		}
		jobs = append(jobs, opJobs...)
	}

	return &cellSnapshot{
		Nodes:            nodes,
		Locks:            locks,
		Transactions:     txns,
		TimestampHolders: holders,
		Operations:       ops,
		Jobs:             jobs,
		ArchiveRequests:  archived,
	}, nil
}

// Restore rebuilds the FSM's durable state from a snapshot taken on
// another node, applied when this node falls too far behind the leader's
// log to catch up by replay.
func (f *cellarFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var snap cellSnapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, node := range snap.Nodes {
		if err := f.store.CreateNode(node); err != nil {
			return fmt.Errorf("restore node: %w", err)
		}
	}
	for _, lock := range snap.Locks {
		if err := f.store.CreateLock(lock); err != nil {
			return fmt.Errorf("restore lock: %w", err)
		}
	}
	for _, t := range snap.Transactions {
		if err := f.store.CreateTransaction(t); err != nil {
			return fmt.Errorf("restore transaction: %w", err)
		}
	}
	for _, h := range snap.TimestampHolders {
		if err := f.store.SaveTimestampHolder(h); err != nil {
			return fmt.Errorf("restore timestamp holder: %w", err)
		}
	}
	for _, op := range snap.Operations {
		if err := f.store.CreateOperation(op); err != nil {
			return fmt.Errorf("restore operation: %w", err)
		}
	}
	for _, job := range snap.Jobs {
		if err := f.store.CreateJob(job); err != nil {
			return fmt.Errorf("restore job: %w", err)
		}
	}
	for _, req := range snap.ArchiveRequests {
		if err := f.store.CreateArchiveRequest(req); err != nil {
			return fmt.Errorf("restore archive request: %w", err)
		}
	}

	return nil
}

// cellSnapshot is a point-in-time snapshot of a cell's Cypress tree, lock
// table, transaction table, timestamp holders, operation table, job table,
// and pending archive requests.
type cellSnapshot struct {
	Nodes            []*types.Node
	Locks            []*types.Lock
	Transactions     []*types.Transaction
	TimestampHolders []*types.TimestampHolder
	Operations       []*types.Operation
	Jobs             []*types.Job
	ArchiveRequests  []*types.ArchiveRequest
}

// Persist writes the snapshot to the given SnapshotSink.
func (s *cellSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		if err := json.NewEncoder(sink).Encode(s); err != nil {
			return err
		}
		return sink.Close()
	}()
	if err != nil {
		sink.Cancel()
	}
	return err
}

// Release releases the snapshot's resources. cellSnapshot holds none.
func (s *cellSnapshot) Release() {}
