package cleaner

import (
	"math/rand"
	"time"

	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/storage"
)

// Batcher coalesces individually enqueued IDs into fixed-size batches,
// flushing early once an item has waited past maxWait -- the same
// size-or-timeout trigger as operations_cleaner.cpp's TNonblockingBatch,
// polled from the cleaner's own ticker rather than driven by a separate
// future-resolution loop.
type Batcher struct {
	maxSize int
	maxWait time.Duration

	items    []ids.ID
	oldestAt time.Time
}

// NewBatcher creates a batcher that flushes once it holds maxSize items or
// its oldest pending item has waited maxWait, whichever comes first.
func NewBatcher(maxSize int, maxWait time.Duration) *Batcher {
	return &Batcher{maxSize: maxSize, maxWait: maxWait}
}

// Enqueue adds id to the pending batch.
func (b *Batcher) Enqueue(id ids.ID) {
	if len(b.items) == 0 {
		b.oldestAt = time.Now()
	}
	b.items = append(b.items, id)
}

// Ready reports whether the pending batch should be flushed now.
func (b *Batcher) Ready() bool {
	if len(b.items) == 0 {
		return false
	}
	if len(b.items) >= b.maxSize {
		return true
	}
	return time.Since(b.oldestAt) >= b.maxWait
}

// Len reports how many items are currently pending.
func (b *Batcher) Len() int {
	return len(b.items)
}

// Drain empties the pending batch and returns its contents.
func (b *Batcher) Drain() []ids.ID {
	batch := b.items
	b.items = nil
	return batch
}

// LockCountFunc reports how many locks are currently held against the
// Cypress node backing an archived operation (its "@lock_count"
// attribute, spec §4.3), so RemoveBatcher can tell a safely-removable
// entry from one that must recycle.
type LockCountFunc func(id ids.ID) (int, error)

// RemoveBatcher batches archived operation ids awaiting removal of their
// live Cypress node, recycling any whose node is still locked back into
// the queue instead of failing the whole sub-batch (spec §4.3 "each id is
// moved to RemoveBatcher which, in sub-batches, issues Get @lock_count
// over the affected Cypress paths and, for unlocked entries, removes
// them. Locked entries recycle back into the queue").
type RemoveBatcher struct {
	batcher   *Batcher
	lockCount LockCountFunc
}

// NewRemoveBatcher creates a remove batcher with the given batching
// parameters, consulting lockCount (nil means "always unlocked") before
// removing each id.
func NewRemoveBatcher(maxSize int, maxWait time.Duration, lockCount LockCountFunc) *RemoveBatcher {
	return &RemoveBatcher{batcher: NewBatcher(maxSize, maxWait), lockCount: lockCount}
}

// Enqueue adds id to the pending removal batch.
func (r *RemoveBatcher) Enqueue(id ids.ID) { r.batcher.Enqueue(id) }

// Ready reports whether the pending batch should be flushed now.
func (r *RemoveBatcher) Ready() bool { return r.batcher.Ready() }

// Len reports how many ids are currently pending removal.
func (r *RemoveBatcher) Len() int { return r.batcher.Len() }

// Drain removes every currently-unlocked id in the pending sub-batch from
// store, recycling locked ones back into the queue, and returns the ids
// that were actually removed.
func (r *RemoveBatcher) Drain(store storage.Store) ([]ids.ID, error) {
	batch := r.batcher.Drain()
	removed := make([]ids.ID, 0, len(batch))
	for _, id := range batch {
		count := 0
		if r.lockCount != nil {
			n, err := r.lockCount(id)
			if err != nil {
				return removed, err
			}
			count = n
		}
		if count > 0 {
			r.batcher.Enqueue(id)
			continue
		}
		if err := store.DeleteOperation(id); err != nil {
			return removed, err
		}
		removed = append(removed, id)
	}
	return removed, nil
}

// RetryBackoff returns a jittered sleep duration between min and max,
// grounded on operations_cleaner.cpp's MinArchivationRetrySleepDelay +
// RandomDuration(MaxArchivationRetrySleepDelay - MinArchivationRetrySleepDelay).
func RetryBackoff(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
