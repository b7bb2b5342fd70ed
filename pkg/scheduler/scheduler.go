package scheduler

import (
	"sync"
	"time"

	"github.com/cuemby/cellar/pkg/cellarerr"
	"github.com/cuemby/cellar/pkg/ids"
	"github.com/cuemby/cellar/pkg/log"
	"github.com/cuemby/cellar/pkg/metrics"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/cuemby/cellar/pkg/types"
	"github.com/rs/zerolog"
)

// Scheduler advances every non-terminal Operation one step through its
// state machine on each tick (spec §3, §4.3), the same periodic-ticker
// shape as a reconcile-loop placement scheduler, retargeted from
// "reconcile container counts" to "advance operation lifecycle".
type Scheduler struct {
	store  storage.Store
	logger zerolog.Logger
	mu     sync.RWMutex
	stopCh chan struct{}
}

// NewScheduler creates a new scheduler backed by store.
func NewScheduler(store storage.Store) *Scheduler {
	return &Scheduler{
		store:  store,
		logger: log.WithComponent("scheduler"),
		stopCh: make(chan struct{}),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.tick(); err != nil {
				s.logger.Error().Err(err).Msg("scheduling cycle failed")
			}
		case <-s.stopCh:
			return
		}
	}
}

// tick advances every non-finished operation by one state transition.
func (s *Scheduler) tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ops, err := s.store.ListOperations()
	if err != nil {
		return err
	}

	for _, op := range ops {
		if op.State.IsFinished() || op.Suspended {
			continue
		}
		timer := metrics.NewTimer()
		next, err := Advance(op)
		if err != nil {
			s.logger.Error().Err(err).Str("operation_id", op.ID.String()).Msg("operation transition rejected")
			continue
		}
		if next == op.State {
			continue
		}
		from := op.State
		if err := s.transition(op, next); err != nil {
			s.logger.Error().Err(err).Str("operation_id", op.ID.String()).Msg("failed to persist operation transition")
			continue
		}
		timer.ObserveDuration(metrics.SchedulingLatency)
		s.logger.Info().
			Str("operation_id", op.ID.String()).
			Str("from", string(from)).
			Str("to", string(next)).
			Msg("operation transitioned")
	}

	return nil
}

// transition applies a validated state change to op and persists it,
// appending an OperationEvent the way operation.cpp logs every transition.
func (s *Scheduler) transition(op *types.Operation, next types.OperationState) error {
	op.State = next
	op.Events = append(op.Events, types.OperationEvent{Time: time.Now().UTC(), State: next})
	if next == types.OperationRunning && op.StartTime.IsZero() {
		op.StartTime = time.Now().UTC()
	}
	if next.IsFinished() {
		op.FinishTime = time.Now().UTC()
	}
	return s.store.UpdateOperation(op)
}

// Submit registers a new operation in the Starting state (spec §4.3
// "Submission").
func (s *Scheduler) Submit(op *types.Operation) error {
	op.State = types.OperationStarting
	op.StartTime = time.Time{}
	op.Events = append(op.Events, types.OperationEvent{Time: time.Now().UTC(), State: op.State})
	if op.Alias != "" {
		if _, err := s.store.GetOperationByAlias(op.Alias); err == nil {
			return cellarerr.AlreadyExists("operation alias " + op.Alias)
		}
	}
	return s.store.CreateOperation(op)
}

// Abort requests cooperative cancellation of a running or pending
// operation (spec §4.3).
func (s *Scheduler) Abort(id ids.ID) error {
	op, err := s.store.GetOperation(id)
	if err != nil {
		return err
	}
	if op.State.IsFinished() {
		return cellarerr.Cancellation("operation %s already finished", id)
	}
	return s.transition(op, types.OperationAborted)
}
