package reconciler

import (
	"time"

	"github.com/cuemby/cellar/pkg/log"
	"github.com/cuemby/cellar/pkg/metrics"
	"github.com/cuemby/cellar/pkg/scheduler"
	"github.com/cuemby/cellar/pkg/storage"
	"github.com/rs/zerolog"
)

// Reconciler periodically drains operations whose runtime parameters
// (pool assignment, ACL) changed since they were last durably flushed,
// on a fixed-interval sweep that catches up runtime-parameter writes the
// apply path flagged but hasn't confirmed.
type Reconciler struct {
	store  storage.Store
	logger zerolog.Logger
	stopCh chan struct{}
}

// NewReconciler creates a reconciler backed by store.
func NewReconciler(store storage.Store) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: log.WithComponent("reconciler"),
		stopCh: make(chan struct{}),
	}
}

// Start begins the reconciliation loop.
func (r *Reconciler) Start() {
	go r.run()
}

// Stop stops the reconciler.
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	r.logger.Info().Msg("reconciler started")

	for {
		select {
		case <-ticker.C:
			if err := r.reconcile(); err != nil {
				r.logger.Error().Err(err).Msg("reconciliation cycle failed")
			}
		case <-r.stopCh:
			r.logger.Info().Msg("reconciler stopped")
			return
		}
	}
}

// reconcile drains every operation scheduler.PendingFlush reports and
// clears its needs-flush bits once re-persisted.
func (r *Reconciler) reconcile() error {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	pending, err := scheduler.PendingFlush(r.store)
	if err != nil {
		return err
	}

	for _, op := range pending {
		// SetPool/SetACL already persisted the new values synchronously;
		// clearing the flags here is what marks them as durably flushed.
		if err := scheduler.ClearFlushFlags(r.store, op); err != nil {
			r.logger.Error().Err(err).Str("operation_id", op.ID.String()).Msg("failed to clear flush flags")
			continue
		}
		r.logger.Debug().Str("operation_id", op.ID.String()).Msg("flushed runtime parameters")
	}

	return nil
}
