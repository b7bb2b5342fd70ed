/*
Package api implements the Cellar gRPC API service and its mTLS transport.

The api package is the gateway to a cell's control plane: Cypress tree
operations, transaction lifecycle, and operation submission, all proposed to
the manager's Raft log and served over gRPC. Cellar ships no generated
protobuf stubs - the request/response types in messages.go are plain Go
structs carried by a hand-registered JSON codec (codec.go), with gRPC
supplying framing, streaming, and mTLS rather than message encoding.

# Architecture

	┌─────────────────────── CLIENT (driver/CLI) ─────────────────────┐
	│                                                                   │
	│  ┌──────────────────────────────────────────────┐               │
	│  │         gRPC client (mTLS, JSON codec)        │               │
	│  └──────────────────┬───────────────────────────┘               │
	└─────────────────────┼─────────────────────────────────────────────┘
	                      │ gRPC (port 8080)
	┌─────────────────────▼──────── CELL MANAGER ─────────────────────┐
	│                                                                   │
	│  ┌──────────────────────────────────────────────┐               │
	│  │          api.Server (pkg/api)                 │               │
	│  │  - Cypress, transaction, operation verbs      │               │
	│  │  - AuthInterceptor: mTLS client cert required │               │
	│  └──────────────────┬───────────────────────────┘               │
	│                     │                                             │
	│  ┌──────────────────▼───────────────────────────┐               │
	│  │              manager.Manager                  │               │
	│  │  - Reads served from local Cypress tree       │               │
	│  │  - Writes proposed as Raft commands           │               │
	│  └────────────────────────────────────────────────┘              │
	└───────────────────────────────────────────────────────────────────┘

# Verb surface

Cypress (served locally, no Raft round-trip for reads):
  - Get, Exists, List

Cypress (proposed via Raft):
  - Create, Set, Remove, Copy, Move, Link, Lock, Unlock

Transactions:
  - StartTransaction, PingTransaction, PrepareCommitTransaction,
    CommitTransaction, AbortTransaction

Scheduler:
  - SubmitOperation, AbortOperation, GetOperation, ListOperations

Cluster management:
  - GenerateJoinToken, JoinCluster, GetClusterInfo, RequestCertificate

# Leadership

Write verbs return an error if the contacted node is not the Raft leader,
naming the current leader's address when known, so a client can retry
against it. Read verbs are served by any node from its local state.

# Security

Every RPC except RequestCertificate and JoinCluster requires a verified
client certificate issued by the cell's CA (see pkg/security). The
ReadOnlyInterceptor variant restricts a listener (e.g. a local Unix socket)
to Get/List/Exists/GetClusterInfo, for unauthenticated local inspection.

# See Also

  - pkg/manager for the Raft-backed state machine this package drives
  - pkg/client for the Go driver built against this service
*/
package api
