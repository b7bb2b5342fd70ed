/*
Package metrics defines and registers every Prometheus metric a Cellar
cell manager exposes, covering the Cypress tree, the transaction
manager, Raft, the gRPC API, the operation scheduler, the archival
cleaner, and the runtime-parameter flush loop. Metrics are exposed via
HTTP for scraping by a Prometheus server.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Cypress: node/lock/branch counts           │          │
	│  │  Transaction: state, commit/abort latency   │          │
	│  │  Raft: leader status, log index, peers      │          │
	│  │  API: request count, duration               │          │
	│  │  Scheduler: latency, operation counts       │          │
	│  │  Cleaner: archival batch duration, retries  │          │
	│  │  Reconciler: flush cycle duration, count    │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics (served by pkg/healthsrv) │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Metric Registry:
  - Global Prometheus DefaultRegistry
  - All metrics registered at package init
  - Thread-safe for concurrent updates

Timer Helper:
  - Convenience wrapper for timing operations
  - Start timer, observe duration to histogram
  - Supports label values for histogram vectors

# Metrics Catalog

Cypress Tree Metrics:

cellar_cypress_nodes_total{kind}:
  - Type: Gauge
  - Description: Total Cypress nodes by kind (map, list, document, ...)
  - Labels: kind

cellar_locks_total{mode}:
  - Type: Gauge
  - Description: Total held locks by mode (shared, exclusive, snapshot)
  - Labels: mode

cellar_branched_nodes_total:
  - Type: Gauge
  - Description: Total transaction-local branched nodes

cellar_node_create_duration_seconds:
  - Type: Histogram
  - Description: Time to create a Cypress node

cellar_node_set_duration_seconds:
  - Type: Histogram
  - Description: Time to set a Cypress node's value

cellar_node_remove_duration_seconds:
  - Type: Histogram
  - Description: Time to remove a Cypress node

Transaction Metrics:

cellar_transactions_total{state}:
  - Type: Gauge
  - Description: Total transactions by state
  - Labels: state

cellar_transaction_commit_duration_seconds:
  - Type: Histogram
  - Description: Time to commit a transaction

cellar_transaction_abort_duration_seconds:
  - Type: Histogram
  - Description: Time to abort a transaction

cellar_transaction_lease_expirations_total:
  - Type: Counter
  - Description: Total transactions aborted by lease expiration

Raft Metrics:

cellar_raft_is_leader:
  - Type: Gauge
  - Description: Whether this node is Raft leader (1=leader, 0=follower)

cellar_raft_peers_total:
  - Type: Gauge
  - Description: Total Raft peers in the cell

cellar_raft_log_index / cellar_raft_applied_index:
  - Type: Gauge
  - Description: Current and last-applied Raft log index

cellar_raft_apply_duration_seconds / cellar_raft_commit_duration_seconds:
  - Type: Histogram
  - Description: Time to apply/commit a Raft log entry

API Metrics:

cellar_api_requests_total{method, status}:
  - Type: Counter
  - Description: Total API requests by method and status
  - Labels: method, status

cellar_api_request_duration_seconds{method}:
  - Type: Histogram
  - Description: API request duration
  - Labels: method
  - Buckets: prometheus.DefBuckets

Scheduler Metrics:

cellar_scheduling_latency_seconds:
  - Type: Histogram
  - Description: Time to advance an operation one state transition

cellar_operations_total{state}:
  - Type: Gauge
  - Description: Total operations by state
  - Labels: state

cellar_operations_completed_total / cellar_operations_failed_total:
  - Type: Counter
  - Description: Total operations that reached Completed/Failed

Cleaner (Archival) Metrics:

cellar_archival_batch_duration_seconds:
  - Type: Histogram
  - Description: Time to archive a batch of operations

cellar_archival_batches_total:
  - Type: Counter
  - Description: Total archive batches flushed

cellar_archival_retries_total:
  - Type: Counter
  - Description: Total archive batch retries after a storage failure

cellar_archive_queue_depth:
  - Type: Gauge
  - Description: Finished operations waiting to be archived

Reconciler (Runtime-Parameter Flush) Metrics:

cellar_flush_cycle_duration_seconds:
  - Type: Histogram
  - Description: Time for one runtime-parameter flush cycle

cellar_flush_cycles_total:
  - Type: Counter
  - Description: Total runtime-parameter flush cycles completed

# Usage

Updating Gauge Metrics:

	import "github.com/cuemby/cellar/pkg/metrics"

	metrics.NodesTotal.WithLabelValues("map").Set(120)
	metrics.TransactionsTotal.WithLabelValues("active").Inc()

Updating Counter Metrics:

	metrics.OperationsCompletedTotal.Inc()
	metrics.APIRequestsTotal.WithLabelValues("Create", "OK").Add(1)

Recording Histogram Observations:

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.NodeCreateDuration)

Using Timer with Labels:

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDurationVec(metrics.APIRequestDuration, "Create")

# Integration Points

This package integrates with:

  - pkg/manager: updates Raft and Cypress gauges
  - pkg/scheduler, pkg/scheduler/cleaner: scheduling latency and archival metrics
  - pkg/reconciler: runtime-parameter flush cycle metrics
  - pkg/api: instruments API request duration
  - pkg/healthsrv: serves /metrics via metrics.Handler()

# Design Patterns

Package Init Registration:
  - All metrics registered in init() function
  - MustRegister panics on duplicate registration

Label Discipline:
  - Use WithLabelValues for cardinality-bounded labels (kind, mode, state)
  - Avoid high-cardinality labels (node IDs, timestamps)

Timer Pattern:
  - Create timer at operation start
  - Defer or explicitly call ObserveDuration

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
*/
package metrics
