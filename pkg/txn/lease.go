package txn

import (
	"sync"
	"time"

	"github.com/cuemby/cellar/pkg/ids"
)

// LeaseTable holds one timer per active transaction, firing its expire
// callback when the transaction's deadline passes without a Ping. Grounded
// on Raft Bootstrap timeout tuning -- same "fast, bounded
// failure detection" idea applied to transactions instead of cluster
// heartbeats.
type LeaseTable struct {
	mu     sync.Mutex
	timers map[ids.ID]*time.Timer
}

// NewLeaseTable builds an empty LeaseTable.
func NewLeaseTable() *LeaseTable {
	return &LeaseTable{timers: make(map[ids.ID]*time.Timer)}
}

// Arm (re)starts the timer for id so it fires fn at deadline, replacing any
// previously armed timer for the same id.
func (l *LeaseTable) Arm(id ids.ID, deadline time.Time, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.timers[id]; ok {
		t.Stop()
	}
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	l.timers[id] = time.AfterFunc(d, fn)
}

// Cancel stops and forgets id's timer, called on commit/abort.
func (l *LeaseTable) Cancel(id ids.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.timers[id]; ok {
		t.Stop()
		delete(l.timers, id)
	}
}
