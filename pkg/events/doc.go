/*
Package events provides an in-memory event broker for a cell's pub/sub
messaging.

The events package implements a lightweight event bus for broadcasting
Cypress, transaction, operation, and cluster events to interested
subscribers. It supports non-blocking, buffered fan-out delivery, enabling
loose coupling between the manager's components and anything watching for
state changes (a streaming CLI, the metrics collector, audit logging).

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                   │          │
	│  │  - In-memory message bus                    │          │
	│  │  - Topic-agnostic (all events broadcast)    │          │
	│  │  - Non-blocking publish                     │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Event Distribution                 │          │
	│  │                                              │          │
	│  │  Publisher → Event Channel (buffer: 100)    │          │
	│  │       ↓                                      │          │
	│  │  Broadcast Loop                              │          │
	│  │       ↓                                      │          │
	│  │  Subscriber Channels (buffer: 50 each)      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Event Types                       │          │
	│  │                                              │          │
	│  │  Node Events: created, removed, locked,     │          │
	│  │    unlocked                                  │          │
	│  │  Transaction Events: started, committed,    │          │
	│  │    aborted                                   │          │
	│  │  Operation Events: submitted, state_changed,│          │
	│  │    completed, failed, aborted                │          │
	│  │  Cluster Events: joined, leader_changed      │          │
	│  └────────────────────────────────────────────┘           │
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Subscribers                      │          │
	│  │                                              │          │
	│  │  API Server: stream events to CLI clients   │          │
	│  │  Scheduler/cleaner: react to state changes  │          │
	│  │  Metrics: count events for dashboards       │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Event Broker:
  - Central message bus for event distribution
  - Manages subscriber lifecycle
  - Non-blocking publish (buffered channel)
  - Graceful shutdown via stop channel

Event:
  - ID: unique event identifier
  - Type: event type (node.created, operation.failed, etc.)
  - Timestamp: when the event occurred
  - Message: human-readable description
  - Metadata: key-value pairs for additional context

Subscriber:
  - Channel that receives Event pointers
  - Buffered (50 events) to handle bursts
  - Created via broker.Subscribe(), closed via broker.Unsubscribe()

# Event Types Catalog

Node Events:
  - node.created: a Cypress node was created (metadata: path, kind)
  - node.removed: a Cypress node was removed (metadata: path)
  - node.locked / node.unlocked: a lock was acquired or released
    (metadata: path, mode, transaction_id)

Transaction Events:
  - transaction.started: a new transaction began (metadata: transaction_id,
    parent_id, title)
  - transaction.committed / transaction.aborted: a transaction finished
    (metadata: transaction_id)

Operation Events:
  - operation.submitted: a new operation entered the scheduler
  - operation.state_changed: an operation transitioned state (metadata:
    operation_id, from, to)
  - operation.completed / operation.failed / operation.aborted: an
    operation reached a terminal state

Cluster Events:
  - cluster.joined: a node joined the Raft cluster (metadata: node_id,
    bind_addr)
  - cluster.leader_changed: Raft leadership changed (metadata: leader_addr)

# Usage

Creating and starting a broker:

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

Subscribing to events:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("%s: %s\n", event.Type, event.Message)
		}
	}()

Publishing events:

	broker.Publish(&events.Event{
		Type:    events.EventOperationFailed,
		Message: "operation aborted: resource limit exceeded",
		Metadata: map[string]string{
			"operation_id": op.ID.String(),
		},
	})

# Design Patterns

Non-blocking publish: Publish sends to a buffered channel and returns
immediately; events may be dropped if the buffer is full - throughput over
guaranteed delivery.

Fan-out: a single published event is broadcast to every subscriber's own
channel; slow subscribers with full buffers skip rather than block the
broadcast loop.

Fire-and-forget: no acknowledgment or retry on delivery failure. Suitable
for monitoring and CLI streaming, not for operations that require
guaranteed delivery.

# Limitations

  - In-memory only, no persistence or replay
  - No topic-based filtering - all events are broadcast, subscribers filter
    by Type themselves
  - No ordering guarantees across subscribers

# See Also

  - pkg/manager for the component that publishes most cluster events
  - pkg/api for CLI event streaming
*/
package events
