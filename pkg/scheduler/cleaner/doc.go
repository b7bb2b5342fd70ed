/*
Package cleaner moves finished operations out of the live operation table
and into the archive, grounded on operations_cleaner.cpp end to end. An
ArchiveTimeToOperationIdMap tracks each finished operation's earliest
archival time; once ready, the hard/soft/per-user/max-age retention
predicate decides which of them actually get archived; a batcher coalesces
the survivors into fixed-size (or timeout-flushed) archive batches written
with jittered retry backoff; and a second RemoveBatcher later drops each
archived operation's live record once its lock count reads zero, recycling
still-locked entries back into the queue instead of discarding them.

# Architecture

	┌────────────────────────────────────────────────────────────────┐
	│                        Cleaner Loop                             │
	│                      (Every 5 seconds)                           │
	└────────────────┬─────────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────────────────────────────────────────┐
	│  1. Track newly-finished operations in ArchiveTimeToOperationIdMap │
	│  2. Pop ids whose earliest-archival-time has arrived               │
	│  3. Apply the retention predicate (hard/soft/per-user/max-age)     │
	│  4. Enqueue the survivors into the archive batcher                  │
	│  5. Flush the archive batch at capacity/timeout, skipping rows       │
	│     over the per-value weight limit; retry transient failures        │
	│     with jittered backoff; suspend entirely past the queue           │
	│     depth watermark (OperationsArchivation alert)                     │
	│  6. Enqueue archived ids into the remove batcher                      │
	│  7. Flush the remove batch: drop unlocked entries, recycle locked      │
	└────────────────────────────────────────────────────────────────┘

# Integration points

  - pkg/scheduler: supplies the finished operations this package archives
  - pkg/storage: archive rows are persisted through Store.CreateArchiveRequest/
    ListArchiveRequests/DeleteArchiveRequest; live records are dropped
    through Store.DeleteOperation once unlocked
  - pkg/types: ArchiveRequestFromOperation flattens an Operation into its
    archive row
  - pkg/metrics: ArchiveQueueDepth/RemoveQueueDepth/ArchivalSkippedTotal/
    ArchivalSuspended report the pipeline's live state

# See also

  - pkg/scheduler - operation lifecycle this package drains
*/
package cleaner
