package cleaner

import (
	"sort"
	"time"

	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/types"
)

// RetentionLimits bounds how many finished operations the cleaner keeps
// live before archiving them (spec §4.3 "Retention rules (archive vs.
// keep)").
type RetentionLimits struct {
	HardLimit    int
	SoftLimit    int
	PerUserLimit int
	MaxAge       time.Duration
}

// DefaultRetentionLimits mirrors operations_cleaner.cpp's built-in
// defaults when the cluster config doesn't override them.
var DefaultRetentionLimits = RetentionLimits{
	HardLimit:    5000,
	SoftLimit:    2000,
	PerUserLimit: 200,
	MaxAge:       7 * 24 * time.Hour,
}

// readyToArchive reports whether a finished operation has waited past its
// retention delay and is eligible to even be considered by the
// hard/soft/per-user/max-age retention rules, grounded on
// operations_cleaner.cpp's analysis period check before an operation is
// handed to the archive batcher.
func readyToArchive(op *types.Operation, retainAfter int64) bool {
	if !op.State.IsFinished() {
		return false
	}
	if op.FinishTime.IsZero() {
		return false
	}
	return op.FinishTime.Unix() <= retainAfter
}

// canArchive reports whether op must be archived given the running
// retention counts accumulated so far in the newest-first walk (spec
// §4.3): retained ≥ hard-limit; age > max-age; operation has no user jobs
// and state=Completed; per-user retained ≥ per-user cap; retained ≥
// soft-limit and state ≠ Failed.
func canArchive(op *types.Operation, retainedTotal, retainedForUser int, limits RetentionLimits, now time.Time) bool {
	if limits.HardLimit > 0 && retainedTotal >= limits.HardLimit {
		return true
	}
	if limits.MaxAge > 0 && !op.FinishTime.IsZero() && now.Sub(op.FinishTime) > limits.MaxAge {
		return true
	}
	if len(op.JobIDs) == 0 && op.State == types.OperationCompleted {
		return true
	}
	if limits.PerUserLimit > 0 && retainedForUser >= limits.PerUserLimit {
		return true
	}
	if limits.SoftLimit > 0 && retainedTotal >= limits.SoftLimit && op.State != types.OperationFailed {
		return true
	}
	return false
}

// analyzeRetention walks the operations ready to archive newest-first and
// returns the ids that exceed the retention budget, incrementing the
// running total/per-user counts as it retains the rest (spec §4.3: "walks
// the ready-to-archive set newest-first and retains an operation only if
// the retention budget allows").
func analyzeRetention(ready []*types.Operation, limits RetentionLimits, now time.Time) []ids.ID {
	sorted := make([]*types.Operation, len(ready))
	copy(sorted, ready)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FinishTime.After(sorted[j].FinishTime) })

	var toArchive []ids.ID
	retainedTotal := 0
	retainedPerUser := make(map[string]int, len(sorted))
	for _, op := range sorted {
		userCount := retainedPerUser[op.AuthenticatedUser]
		if canArchive(op, retainedTotal, userCount, limits, now) {
			toArchive = append(toArchive, op.ID)
			continue
		}
		retainedTotal++
		retainedPerUser[op.AuthenticatedUser] = userCount + 1
	}
	return toArchive
}

// archiveBatch writes an archive row for each operation ID in batch and
// hands the id to the remove batcher, mirroring
// TOperationsCleaner::TryArchiveOperations followed by RemoveBatcher_
// enqueueing for cleanup. A row whose serialized attributes exceed the
// per-value weight limit is skipped (logged, not failed), per spec §4.3
// "row values whose serialized weight exceeds the per-value limit cause
// the operation to be skipped."
func archiveBatch(store storage.Store, batch []ids.ID, maxValueWeight int, onSkip func(ids.ID)) ([]ids.ID, error) {
	archived := make([]ids.ID, 0, len(batch))
	for _, id := range batch {
		op, err := store.GetOperation(id)
		if err != nil {
			continue // already archived or removed by a concurrent pass
		}
		req := types.ArchiveRequestFromOperation(op)
		if maxValueWeight > 0 && len(req.FullSpec)+len(req.BriefSpec)+len(req.Result) > maxValueWeight {
			if onSkip != nil {
				onSkip(id)
			}
			continue
		}
		if err := store.CreateArchiveRequest(&req); err != nil {
			return archived, err
		}
		archived = append(archived, id)
	}
	return archived, nil
}
