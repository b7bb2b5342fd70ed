package metrics

import (
	"time"

	"github.com/cuemby/cellar/pkg/types"
)

// ManagerStats is the subset of *manager.Manager the collector samples.
// Declared here rather than imported so pkg/metrics does not depend on
// pkg/manager, which itself depends on pkg/metrics to drive the collector.
type ManagerStats interface {
	ListNodes() ([]*types.Node, error)
	ListTransactions() ([]*types.Transaction, error)
	ListOperations() ([]*types.Operation, error)
	IsLeader() bool
	GetRaftStats() map[string]interface{}
}

// Collector periodically samples manager-owned state into gauges, the same
// poll-and-set shape as any periodic metrics collector.
type Collector struct {
	manager ManagerStats
	stopCh  chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(mgr ManagerStats) *Collector {
	return &Collector{
		manager: mgr,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectNodeMetrics()
	c.collectTransactionMetrics()
	c.collectOperationMetrics()
	c.collectRaftMetrics()
}

func (c *Collector) collectNodeMetrics() {
	nodes, err := c.manager.ListNodes()
	if err != nil {
		return
	}

	kindCounts := make(map[types.NodeKind]int)
	branched := 0
	for _, node := range nodes {
		kindCounts[node.Kind]++
		if node.IsBranch() {
			branched++
		}
	}

	for kind, count := range kindCounts {
		NodesTotal.WithLabelValues(string(kind)).Set(float64(count))
	}
	BranchedNodesTotal.Set(float64(branched))
}

func (c *Collector) collectTransactionMetrics() {
	txns, err := c.manager.ListTransactions()
	if err != nil {
		return
	}

	stateCounts := make(map[types.TransactionState]int)
	for _, txn := range txns {
		stateCounts[txn.State]++
	}

	for state, count := range stateCounts {
		TransactionsTotal.WithLabelValues(string(state)).Set(float64(count))
	}
}

func (c *Collector) collectOperationMetrics() {
	ops, err := c.manager.ListOperations()
	if err != nil {
		return
	}

	stateCounts := make(map[types.OperationState]int)
	for _, op := range ops {
		stateCounts[op.State]++
	}

	for state, count := range stateCounts {
		OperationsTotal.WithLabelValues(string(state)).Set(float64(count))
	}
}

func (c *Collector) collectRaftMetrics() {
	if c.manager.IsLeader() {
		RaftLeader.Set(1)
	} else {
		RaftLeader.Set(0)
	}

	stats := c.manager.GetRaftStats()
	if stats != nil {
		if lastIndex, ok := stats["last_log_index"].(uint64); ok {
			RaftLogIndex.Set(float64(lastIndex))
		}
		if appliedIndex, ok := stats["applied_index"].(uint64); ok {
			RaftAppliedIndex.Set(float64(appliedIndex))
		}
		RaftPeers.Set(1)
	}
}
