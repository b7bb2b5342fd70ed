package cleaner

import (
	"sync"
	"time"

	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/log"
	"github.com/cuemby/cellar/pkg/metrics"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultRetentionDelay is how long a finished operation stays in the live
// table before the cleaner considers it for archival, giving callers a
// window to read its final state through the live path.
const DefaultRetentionDelay = 30 * time.Second

const (
	defaultBatchSize  = 100
	defaultBatchWait  = 5 * time.Second
	minRetryDelay     = 100 * time.Millisecond
	maxRetryDelay     = 2 * time.Second
	maxRetriesPerTick = 3

	// defaultMaxValueWeight bounds the serialized size of a single archive
	// row's spec/result fields; rows over this are skipped rather than
	// failing the batch (spec §4.3 "row values whose serialized weight
	// exceeds the per-value limit cause the operation to be skipped").
	defaultMaxValueWeight = 16 << 20

	// defaultQueueWatermark is how many pending archive entries trigger
	// suspension, per spec §4.3 "exceeding an in-queue threshold sets
	// OperationsArchivation alert and disables archivation for a
	// configurable delay."
	defaultQueueWatermark = 10000

	// defaultSuspensionDelay is how long archivation stays suspended once
	// the watermark trips, before the next tick re-attempts it.
	defaultSuspensionDelay = 1 * time.Minute
)

// Cleaner periodically sweeps finished operations into the archive, the
// same periodic-ticker-goroutine idiom as pkg/scheduler's reconciler loops,
// retargeted onto operations_cleaner.cpp's retention, batching and
// suspension semantics.
type Cleaner struct {
	store  storage.Store
	logger zerolog.Logger

	retentionDelay  time.Duration
	limits          RetentionLimits
	maxValueWeight  int
	queueWatermark  int
	suspensionDelay time.Duration

	batcher       *Batcher
	removeBatcher *RemoveBatcher
	archiveTimes  *ArchiveTimeToOperationIdMap

	mu             sync.Mutex
	stopCh         chan struct{}
	suspendedUntil time.Time
}

// Options tunes the cleaner's retention window and archive batching, read
// from pkg/config's cluster-wide settings. A zero value for any field falls
// back to the package default.
type Options struct {
	RetentionDelay  time.Duration
	BatchSize       int
	BatchWait       time.Duration
	RemoveBatchSize int
	RemoveBatchWait time.Duration
	Limits          RetentionLimits
	MaxValueWeight  int
	QueueWatermark  int
	SuspensionDelay time.Duration
	LockCount       LockCountFunc
}

// NewCleaner creates a cleaner backed by store, using built-in defaults for
// retention and batching.
func NewCleaner(store storage.Store) *Cleaner {
	return NewCleanerWithOptions(store, Options{})
}

// NewCleanerWithOptions creates a cleaner backed by store, overriding the
// retention delay and/or batch parameters where opts supplies a non-zero
// value.
func NewCleanerWithOptions(store storage.Store, opts Options) *Cleaner {
	retentionDelay := opts.RetentionDelay
	if retentionDelay <= 0 {
		retentionDelay = DefaultRetentionDelay
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	batchWait := opts.BatchWait
	if batchWait <= 0 {
		batchWait = defaultBatchWait
	}
	removeBatchSize := opts.RemoveBatchSize
	if removeBatchSize <= 0 {
		removeBatchSize = batchSize
	}
	removeBatchWait := opts.RemoveBatchWait
	if removeBatchWait <= 0 {
		removeBatchWait = batchWait
	}
	limits := opts.Limits
	if (limits == RetentionLimits{}) {
		limits = DefaultRetentionLimits
	}
	maxValueWeight := opts.MaxValueWeight
	if maxValueWeight <= 0 {
		maxValueWeight = defaultMaxValueWeight
	}
	queueWatermark := opts.QueueWatermark
	if queueWatermark <= 0 {
		queueWatermark = defaultQueueWatermark
	}
	suspensionDelay := opts.SuspensionDelay
	if suspensionDelay <= 0 {
		suspensionDelay = defaultSuspensionDelay
	}

	return &Cleaner{
		store:           store,
		logger:          log.WithComponent("cleaner"),
		retentionDelay:  retentionDelay,
		limits:          limits,
		maxValueWeight:  maxValueWeight,
		queueWatermark:  queueWatermark,
		suspensionDelay: suspensionDelay,
		batcher:         NewBatcher(batchSize, batchWait),
		removeBatcher:   NewRemoveBatcher(removeBatchSize, removeBatchWait, opts.LockCount),
		archiveTimes:    NewArchiveTimeToOperationIdMap(),
		stopCh:          make(chan struct{}),
	}
}

// Start begins the cleaner loop.
func (c *Cleaner) Start() {
	go c.run()
}

// Stop stops the cleaner.
func (c *Cleaner) Stop() {
	close(c.stopCh)
}

func (c *Cleaner) run() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	c.logger.Info().Msg("cleaner started")

	for {
		select {
		case <-ticker.C:
			if err := c.tick(); err != nil {
				c.logger.Error().Err(err).Msg("cleaner cycle failed")
			}
		case <-c.stopCh:
			c.logger.Info().Msg("cleaner stopped")
			return
		}
	}
}

// tick tracks newly-finished operations in archiveTimes, applies the
// retention predicate to the ids that became ready since the last tick,
// flushes the archive batch once it's ready (unless archivation is
// currently suspended), and drains any ready removal sub-batch.
func (c *Cleaner) tick() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	ops, err := c.store.ListOperations()
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.State.IsFinished() && !op.FinishTime.IsZero() {
			c.archiveTimes.Insert(op.ID, op.FinishTime.Add(c.retentionDelay))
		}
	}

	if err := c.enqueueReady(c.archiveTimes.PopReady(now), now); err != nil {
		return err
	}

	metrics.ArchiveQueueDepth.Set(float64(c.batcher.Len()))
	metrics.RemoveQueueDepth.Set(float64(c.removeBatcher.Len()))

	if err := c.flushArchiveBatch(now); err != nil {
		return err
	}
	return c.flushRemoveBatch()
}

// enqueueReady runs the hard/soft/per-user/max-age retention predicate over
// the operations that just became archival-ready and enqueues the ones it
// selects into the archive batcher.
func (c *Cleaner) enqueueReady(readyIDs []ids.ID, now time.Time) error {
	if len(readyIDs) == 0 {
		return nil
	}
	readyOps := make([]*types.Operation, 0, len(readyIDs))
	for _, id := range readyIDs {
		op, err := c.store.GetOperation(id)
		if err != nil {
			continue // removed concurrently between tracking and analysis
		}
		readyOps = append(readyOps, op)
	}
	for _, id := range analyzeRetention(readyOps, c.limits, now) {
		c.batcher.Enqueue(id)
	}
	return nil
}

// flushArchiveBatch writes the pending archive batch, honoring the
// archivation-suspension watermark (spec §4.3 "OperationsArchivation"
// alert): once the batcher's depth crosses queueWatermark, archivation is
// disabled for suspensionDelay and resumed automatically afterward.
func (c *Cleaner) flushArchiveBatch(now time.Time) error {
	if !c.suspendedUntil.IsZero() {
		if now.Before(c.suspendedUntil) {
			return nil
		}
		c.suspendedUntil = time.Time{}
		metrics.ArchivalSuspended.Set(0)
		c.logger.Info().Msg("archivation resumed")
	}

	if c.batcher.Len() >= c.queueWatermark {
		c.suspendedUntil = now.Add(c.suspensionDelay)
		metrics.ArchivalSuspended.Set(1)
		c.logger.Error().Int("queue_depth", c.batcher.Len()).Msg("archive queue depth watermark exceeded, suspending archivation")
		return nil
	}

	if !c.batcher.Ready() {
		return nil
	}

	batch := c.batcher.Drain()
	timer := metrics.NewTimer()

	var archived []ids.ID
	var archiveErr error
	for attempt := 0; attempt <= maxRetriesPerTick; attempt++ {
		archived, archiveErr = archiveBatch(c.store, batch, c.maxValueWeight, func(id ids.ID) {
			metrics.ArchivalSkippedTotal.Inc()
			c.logger.Warn().Str("operation_id", id.String()).Msg("operation skipped during archival: row exceeds per-value weight limit")
		})
		if archiveErr == nil {
			break
		}
		metrics.ArchivalRetriesTotal.Inc()
		c.logger.Warn().Err(archiveErr).Int("attempt", attempt+1).Msg("archive batch failed, retrying")
		time.Sleep(RetryBackoff(minRetryDelay, maxRetryDelay))
	}

	timer.ObserveDuration(metrics.ArchivalDuration)
	metrics.ArchivalBatchesTotal.Inc()

	for _, id := range archived {
		c.removeBatcher.Enqueue(id)
	}

	if archiveErr != nil {
		c.logger.Error().Err(archiveErr).Int("batch_size", len(batch)).Msg("archive batch permanently failed")
		return archiveErr
	}

	c.logger.Info().Int("batch_size", len(archived)).Msg("archived operation batch")
	return nil
}

// flushRemoveBatch drains the remove batcher once it's ready, dropping the
// live record for every entry whose @lock_count is zero and recycling the
// rest back into the queue.
func (c *Cleaner) flushRemoveBatch() error {
	if !c.removeBatcher.Ready() {
		return nil
	}
	removed, err := c.removeBatcher.Drain(c.store)
	if err != nil {
		c.logger.Error().Err(err).Msg("remove batch failed, locked entries recycled")
		return err
	}
	for _, id := range removed {
		c.archiveTimes.Forget(id)
	}
	if len(removed) > 0 {
		c.logger.Info().Int("count", len(removed)).Msg("removed archived operation records")
	}
	return nil
}
