/*
Package manager implements the Cellar cell manager node with Raft consensus.

The manager package is the control plane of a Cellar cell: it owns the
Cypress metadata tree, the transaction manager, and the scheduler, and
replicates all three through a single Raft log so every manager node in a
cell agrees on the same sequence of state transitions.

# Architecture

	┌─────────────────────── CELL MANAGER NODE ──────────────────────┐
	│                                                                  │
	│  ┌──────────────────────────────────────────────┐              │
	│  │           gRPC API Server                      │              │
	│  │  - node/transaction/operation verbs            │              │
	│  └──────────────────┬───────────────────────────┘              │
	│                     │                                            │
	│  ┌──────────────────▼───────────────────────────┐              │
	│  │              Manager                          │              │
	│  │  - Handles API requests                       │              │
	│  │  - Proposes Raft commands                     │              │
	│  │  - Runs the scheduler and cleaner             │              │
	│  │  - Manages join tokens and secret encryption  │              │
	│  └──────────────────┬───────────────────────────┘              │
	│                     │                                            │
	│  ┌──────────────────▼───────────────────────────┐              │
	│  │          Raft Consensus Layer                 │              │
	│  │  - Leader election                            │              │
	│  │  - Log replication across managers            │              │
	│  │  - FSM applies committed commands             │              │
	│  └──────────────────┬───────────────────────────┘              │
	│                     │                                            │
	│  ┌──────────────────▼───────────────────────────┐              │
	│  │              cellarFSM                        │              │
	│  │  - Apply(): dispatch Cypress/txn/scheduler     │              │
	│  │  - Snapshot(): tree + txn table + op table     │              │
	│  │  - Restore(): recover from snapshot           │              │
	│  └──────────────────┬───────────────────────────┘              │
	│                     │                                            │
	│  ┌──────────────────▼───────────────────────────┐              │
	│  │              BoltDB Store                      │              │
	│  │  - Cypress nodes, locks, transactions         │              │
	│  │  - Operations, archived operations            │              │
	│  │  - Raft log and snapshots                     │              │
	│  └────────────────────────────────────────────────┘             │
	└──────────────────────────────────────────────────────────────────┘

# Core Components

Manager:
  - Main orchestration coordinator
  - Handles gRPC API requests
  - Proposes Raft commands for every Cypress/transaction/scheduler mutation
  - Starts the scheduler, cleaner, reconciler, and metrics collector on
    leadership gain

cellarFSM:
  - Raft finite state machine implementation
  - Applies committed log entries against pkg/cypress, pkg/txn, pkg/scheduler
  - Implements snapshot/restore for fast recovery

TokenManager:
  - Generates and validates cell join tokens
  - Separate tokens for voting managers and non-voting members
  - Time-limited tokens with rotation support

Command:
  - Encapsulates a single state-change operation
  - Types: CreateNode, SetNode, RemoveNode, StartTransaction, CommitTransaction, SubmitOperation, ...
  - Serialized as JSON in the Raft log

# Raft Consensus

Cellar uses HashiCorp's Raft library for distributed consensus, tuned for
fast failover (sub-second heartbeat/election timeouts).

Cluster Sizes:
  - 1 manager: Development only (no HA)
  - 3 managers: Production (tolerates 1 failure)
  - 5 managers: High availability (tolerates 2 failures)

Quorum Requirements:
  - Write operations require majority quorum
  - Read operations served by the leader (linearizable)
  - Network partition: Minority partition becomes read-only

Data Replication:
  - All Cypress/transaction/operation state changes replicated via Raft log
  - Log entries applied to the FSM strictly in order
  - Snapshots created periodically for compaction
  - New managers sync via snapshot + log replay

# Usage

Creating a Manager:

	cfg := &manager.Config{
		NodeID:   "cell-manager-1",
		BindAddr: "192.168.1.10:8080",
		DataDir:  "/var/lib/cellar/manager-1",
	}

	mgr, err := manager.NewManager(cfg)
	if err != nil {
		log.Fatal(err)
	}

Initializing a Cell:

	err := mgr.InitCluster()
	if err != nil {
		log.Fatal(err)
	}

Joining Additional Managers:

	token := "manager-join-token-abc123"
	err := mgr.JoinCluster("192.168.1.10:8080", token)
	if err != nil {
		log.Fatal(err)
	}

Proposing State Changes:

	cmd := manager.Command{
		Op:   manager.OpCreateNode,
		Data: nodeJSON,
	}

	_, err := mgr.Apply(cmd)
	if err != nil {
		log.Fatal(err)
	}

# Leadership

Only the Raft leader:
  - Accepts write operations (Cypress mutations, transaction starts, operation submits)
  - Runs the scheduler tick and cleaner
  - Generates join tokens

Followers:
  - Forward writes to the leader automatically
  - Serve reads (eventually consistent)
  - Participate in leader election
  - Replicate log entries from the leader

# State Machine Commands

The FSM dispatches committed commands into three subsystems:

Cypress Operations (pkg/cypress):
  - CreateNode, SetNode, RemoveNode, CopyNode, MoveNode, LinkNode
  - Lock, Unlock

Transaction Operations (pkg/txn):
  - StartTransaction, PingTransaction, PrepareCommitTransaction,
    CommitTransaction, AbortTransaction

Scheduler Operations (pkg/scheduler, pkg/scheduler/cleaner):
  - SubmitOperation, AbortOperation, SetPoolTree, SetACL, ArchiveOperations

# Failure Scenarios

Manager Failure:
  - If a follower fails: no impact (quorum maintained)
  - If the leader fails: new election, brief write pause
  - Raft handles this transparently

Network Partition:
  - Majority partition: continues operating (elects a leader)
  - Minority partition: read-only mode (no writes accepted)
  - Partition heals: minority syncs from the majority

# Integration Points

This package integrates with:

  - pkg/api: provides the gRPC server implementation
  - pkg/storage: persists cell state to BoltDB
  - pkg/cypress: metadata tree operations
  - pkg/txn: transaction lifecycle
  - pkg/scheduler, pkg/scheduler/cleaner: operation scheduling and archival
  - pkg/reconciler: runtime-parameter flush sweep
  - pkg/security: secret-node encryption and CA
  - pkg/metrics: Raft/Cypress/transaction/operation gauges

# Security

Join Token Security:
  - Tokens generated with cryptographic randomness
  - Time-limited validity
  - Tokens never logged or exposed in API responses

Secret Node Encryption:
  - AES-256-GCM for Secret-kind Cypress node values
  - Encryption key derived from the cell ID
  - Keys never stored on disk unencrypted

# See Also

  - pkg/api for the gRPC server implementation
  - pkg/cypress, pkg/txn, pkg/scheduler for the subsystems the FSM dispatches into
*/
package manager
