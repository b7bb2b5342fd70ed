package cleaner

import (
	"sort"
	"time"

	"github.com/cuemby/cellar/pkg/ids"
)

// ArchiveTimeToOperationIdMap tracks, for each operation the cleaner has
// observed finish, the earliest time it becomes eligible for archival
// (spec §4.3 "ArchiveTimeToOperationIdMap: multimap of
// earliest-archival-time -> id"). Insert is idempotent per operation id so
// re-observing an already-tracked operation on a later tick is a no-op.
type ArchiveTimeToOperationIdMap struct {
	byTime map[int64][]ids.ID
	seen   map[ids.ID]bool
}

// NewArchiveTimeToOperationIdMap creates an empty map.
func NewArchiveTimeToOperationIdMap() *ArchiveTimeToOperationIdMap {
	return &ArchiveTimeToOperationIdMap{
		byTime: make(map[int64][]ids.ID),
		seen:   make(map[ids.ID]bool),
	}
}

// Insert records id as eligible for archival starting at archiveAt, unless
// it is already tracked.
func (m *ArchiveTimeToOperationIdMap) Insert(id ids.ID, archiveAt time.Time) {
	if m.seen[id] {
		return
	}
	m.seen[id] = true
	key := archiveAt.Unix()
	m.byTime[key] = append(m.byTime[key], id)
}

// PopReady removes and returns every id whose earliest-archival-time is at
// or before now, in time order.
func (m *ArchiveTimeToOperationIdMap) PopReady(now time.Time) []ids.ID {
	cutoff := now.Unix()
	var keys []int64
	for k := range m.byTime {
		if k <= cutoff {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var ready []ids.ID
	for _, k := range keys {
		ready = append(ready, m.byTime[k]...)
		delete(m.byTime, k)
	}
	return ready
}

// Forget stops tracking id. Callers must wait until id's live record is
// actually removed before calling this -- forgetting right after archiving
// but before removal would let a locked, recycled id get re-inserted (and
// re-archived) on the next observation, since it's still present in the
// live operation listing.
func (m *ArchiveTimeToOperationIdMap) Forget(id ids.ID) {
	delete(m.seen, id)
}

// Len reports how many operations are currently tracked (pending or
// ready).
func (m *ArchiveTimeToOperationIdMap) Len() int {
	total := 0
	for _, bucket := range m.byTime {
		total += len(bucket)
	}
	return total
}
