// Package txn implements transaction lifecycle management: start, nested
// start, two-phase prepare/commit, abort, and finish, plus the lease timer
// that expires a transaction whose client stops pinging it and the
// timestamp-holder bookkeeping used when a transaction is replicated or
// externalized to a foreign cell.
//
// A Manager is driven by pkg/manager's Raft FSM the same way a
// scheduler and reconciler are driven by periodic ticks off
// pkg/manager.Manager: every state-changing call here is expected to run
// inside an Apply, so it talks to pkg/storage.Store directly rather than
// keeping its own copy of transaction state.
package txn
