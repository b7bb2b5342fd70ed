/*
Package reconciler runs a periodic background sweep that confirms every
operation's runtime-parameter writes (pool assignment, ACL changes made
through pkg/scheduler's SetPool/SetACL) have been durably flushed.

# Architecture

The reconciler ticks on a fixed 10-second interval:

	┌──────────────────────────────────────────┐
	│          Reconciliation Loop              │
	│            (Every 10 seconds)             │
	└─────────────────┬──────────────────────────┘
	                  │
	                  ▼
	     scheduler.PendingFlush(store)
	                  │
	                  ▼
	     scheduler.ClearFlushFlags(store, op)
	         (one call per pending operation)

SetPool and SetACL persist an operation's new runtime parameters
synchronously and flag RuntimeParameters.NeedsFlush (and NeedsFlushACL)
so that a concurrent flush sweep — or, for a future heavy-parameters
store that batches large ACL payloads separately from the hot operation
row, an actual write to that store — has something to act on.
Today's storage.Store keeps runtime parameters on the same row as the
rest of the operation, so the reconciler's job reduces to confirming the
write already landed and clearing the flags; the flag/flush split stays
in place so a future heavy-parameters table can be introduced without
changing pkg/scheduler's call sites.

# Core Components

Reconciler: ticks scheduler.PendingFlush/ClearFlushFlags on a fixed
interval.

	r := reconciler.NewReconciler(store)
	r.Start()
	defer r.Stop()

Like the scheduler, the reconciler is stateless - it re-reads pending
operations from the store on every cycle.

# Metrics

Each cycle observes metrics.ReconciliationDuration and increments
metrics.ReconciliationCyclesTotal.

# See Also

  - pkg/scheduler for SetPool/SetACL/PendingFlush/ClearFlushFlags
  - pkg/scheduler/cleaner for the companion archival sweep
*/
package reconciler
