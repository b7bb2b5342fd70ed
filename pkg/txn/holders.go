package txn

import (
	"time"

	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/types"
)

// HoldTimestamp registers this cell's interest in timestamp on behalf of a
// replicated or externalized transaction, ref-counting repeated holds from
// nested transactions sharing the same commit timestamp (spec §4.2
// "Timestamp holders").
func (m *Manager) HoldTimestamp(timestamp uint64) error {
	holder, err := m.store.GetTimestampHolder(timestamp, m.cell)
	if err != nil {
		holder = &types.TimestampHolder{Timestamp: timestamp, Cell: m.cell}
	}
	holder.RefCount++
	holder.LastPingAt = time.Now().UTC()
	return m.store.SaveTimestampHolder(holder)
}

// ReleaseTimestamp decrements the hold and removes the holder record once
// its ref count reaches zero.
func (m *Manager) ReleaseTimestamp(timestamp uint64) error {
	holder, err := m.store.GetTimestampHolder(timestamp, m.cell)
	if err != nil {
		return nil
	}
	holder.RefCount--
	if holder.RefCount <= 0 {
		return m.store.DeleteTimestampHolder(timestamp, m.cell)
	}
	return m.store.SaveTimestampHolder(holder)
}

// Replicate mirrors txn onto the given foreign cells, recording them in
// ReplicatedTo so Commit knows to wait on their acknowledgement before
// entering TransactionPersistentCommitPrepared (spec §4.2
// "Replication/externalization"). Cellar does not implement the
// replicate-to-all fallback (Open Question, decided against).
func (m *Manager) Replicate(id ids.ID, cells []ids.CellTag) error {
	txn, err := m.store.GetTransaction(id)
	if err != nil {
		return err
	}
	txn.ReplicatedTo = append(txn.ReplicatedTo, cells...)
	return m.store.UpdateTransaction(txn)
}

// Externalize returns the id txn is known by on a foreign coordinator cell,
// creating the mirrored transaction record there if it does not already
// exist.
func (m *Manager) Externalize(id ids.ID, coordinator ids.CellTag) (ids.ID, error) {
	txn, err := m.store.GetTransaction(id)
	if err != nil {
		return ids.Nil, err
	}
	foreignID := id.WithCoordinator(coordinator)
	foreign := *txn
	foreign.ID = foreignID
	foreign.Coordinator = coordinator
	if err := m.store.CreateTransaction(&foreign); err != nil {
		return ids.Nil, err
	}
	return foreignID, nil
}
