package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cypress tree metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cellar_cypress_nodes_total",
			Help: "Total number of Cypress nodes by kind",
		},
		[]string{"kind"},
	)

	LocksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cellar_locks_total",
			Help: "Total number of held locks by mode",
		},
		[]string{"mode"},
	)

	BranchedNodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cellar_branched_nodes_total",
			Help: "Total number of transaction-local branched nodes",
		},
	)

	// Transaction metrics
	TransactionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cellar_transactions_total",
			Help: "Total number of transactions by state",
		},
		[]string{"state"},
	)

	TransactionCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellar_transaction_commit_duration_seconds",
			Help:    "Time taken to commit a transaction in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TransactionAbortDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellar_transaction_abort_duration_seconds",
			Help:    "Time taken to abort a transaction in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TransactionLeaseExpirationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cellar_transaction_lease_expirations_total",
			Help: "Total number of transactions aborted by lease expiration",
		},
	)

	TransactionNestingDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cellar_transaction_nesting_depth",
			Help: "Nesting depth of the most recently started transaction",
		},
	)

	// Raft metrics
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cellar_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cellar_raft_peers_total",
			Help: "Total number of Raft peers in the cell",
		},
	)

	RaftLogIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cellar_raft_log_index",
			Help: "Current Raft log index",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cellar_raft_applied_index",
			Help: "Last applied Raft log index",
		},
	)

	RaftApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellar_raft_apply_duration_seconds",
			Help:    "Time taken to apply a Raft log entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RaftCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellar_raft_commit_duration_seconds",
			Help:    "Time taken to commit a Raft log entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cellar_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cellar_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Cypress verb metrics
	NodeCreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellar_node_create_duration_seconds",
			Help:    "Time taken to create a Cypress node in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	NodeSetDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellar_node_set_duration_seconds",
			Help:    "Time taken to set a Cypress node's value in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	NodeRemoveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellar_node_remove_duration_seconds",
			Help:    "Time taken to remove a Cypress node in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Scheduler (operation lifecycle) metrics
	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellar_scheduling_latency_seconds",
			Help:    "Time taken to advance an operation one state transition in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	OperationsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cellar_operations_total",
			Help: "Total number of operations by state",
		},
		[]string{"state"},
	)

	OperationsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cellar_operations_completed_total",
			Help: "Total number of operations that reached Completed",
		},
	)

	OperationsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cellar_operations_failed_total",
			Help: "Total number of operations that reached Failed",
		},
	)

	// Cleaner (archival pipeline) metrics
	ArchivalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellar_archival_batch_duration_seconds",
			Help:    "Time taken to archive a batch of operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ArchivalBatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cellar_archival_batches_total",
			Help: "Total number of archive batches flushed",
		},
	)

	ArchivalRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cellar_archival_retries_total",
			Help: "Total number of archive batch retries after a storage failure",
		},
	)

	ArchiveQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cellar_archive_queue_depth",
			Help: "Number of finished operations waiting to be archived",
		},
	)

	RemoveQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cellar_remove_queue_depth",
			Help: "Number of archived operations waiting to have their Cypress node removed",
		},
	)

	ArchivalSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cellar_archival_skipped_total",
			Help: "Total number of operations skipped during archival for exceeding the per-value weight limit",
		},
	)

	ArchivalSuspended = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cellar_archival_suspended",
			Help: "1 while the cleaner has suspended archivation after its queue depth crossed the watermark (OperationsArchivation alert), else 0",
		},
	)

	// Runtime-parameter flush loop metrics (adapted reconciler)
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cellar_flush_cycle_duration_seconds",
			Help:    "Time taken for a runtime-parameter flush cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cellar_flush_cycles_total",
			Help: "Total number of runtime-parameter flush cycles completed",
		},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(LocksTotal)
	prometheus.MustRegister(BranchedNodesTotal)
	prometheus.MustRegister(TransactionsTotal)
	prometheus.MustRegister(TransactionCommitDuration)
	prometheus.MustRegister(TransactionAbortDuration)
	prometheus.MustRegister(TransactionLeaseExpirationsTotal)
	prometheus.MustRegister(TransactionNestingDepth)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftPeers)
	prometheus.MustRegister(RaftLogIndex)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(RaftApplyDuration)
	prometheus.MustRegister(RaftCommitDuration)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(NodeCreateDuration)
	prometheus.MustRegister(NodeSetDuration)
	prometheus.MustRegister(NodeRemoveDuration)
	prometheus.MustRegister(SchedulingLatency)
	prometheus.MustRegister(OperationsTotal)
	prometheus.MustRegister(OperationsCompletedTotal)
	prometheus.MustRegister(OperationsFailedTotal)
	prometheus.MustRegister(ArchivalDuration)
	prometheus.MustRegister(ArchivalBatchesTotal)
	prometheus.MustRegister(ArchivalRetriesTotal)
	prometheus.MustRegister(ArchiveQueueDepth)
	prometheus.MustRegister(RemoveQueueDepth)
	prometheus.MustRegister(ArchivalSkippedTotal)
	prometheus.MustRegister(ArchivalSuspended)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
