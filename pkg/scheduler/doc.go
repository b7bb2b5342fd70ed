/*
Package scheduler advances submitted operations through their lifecycle
and hands finished operations off to pkg/scheduler/cleaner for archival.

The scheduler is stateless beyond its store reference: every tick reads
every non-finished Operation from pkg/storage.Store and moves each one
exactly one step along its state machine (operation.go), logging an event
on every transition.

# Architecture

	┌────────────────────────────────────────────────────────────┐
	│                    Scheduler Loop                          │
	│                   (Every 2 seconds)                        │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────────────────────────────────────┐
	│  1. List all non-finished operations                        │
	│  2. For each: look up its legal next state (Advance)        │
	│  3. Persist the transition + append an event                │
	└────────────────────────────────────────────────────────────┘

Starting -> WaitingForAgent -> Initializing -> Preparing -> Materializing
-> Pending -> Running -> Completing -> Completed (or Failed/Aborted from
any non-terminal state, via ValidateTransition rather than Advance).

# Core components

Scheduler: ticks operations forward.

	sched := scheduler.NewScheduler(store)
	sched.Start()
	defer sched.Stop()

Submit registers a new operation; Abort forces a non-terminal operation
into OperationAborted. Both write through the same store the ticker reads,
so a submitted operation is visible to the very next tick.

RuntimeParameters (runtime_params.go) carries "needs-flush" flags set by
SetPool/SetACL; PendingFlush lists operations the flush loop
(pkg/reconciler, adapted) still needs to persist.

# Integration points

  - pkg/manager: Raft FSM applies Submit/Abort/transition through this
    package as part of command dispatch
  - pkg/scheduler/cleaner: polls for OperationCompleted/Failed/Aborted
    operations and archives them
  - pkg/reconciler: drains PendingFlush on its own tick

# See also

  - pkg/scheduler/cleaner - archival pipeline
  - pkg/txn - transaction lifecycle, the analogous state machine for C2
*/
package scheduler
