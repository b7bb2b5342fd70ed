package scheduler

import (
	"fmt"

	"github.com/cuemby/cellar/pkg/types"
)

// transitions is the operation state machine's adjacency list, grounded on
// operation.cpp's validated state transitions. Advance never skips a
// state: each tick moves an operation exactly one edge forward, the same
// granularity the event log records.
var transitions = map[types.OperationState][]types.OperationState{
	types.OperationStarting:           {types.OperationWaitingForAgent},
	types.OperationWaitingForAgent:    {types.OperationInitializing},
	types.OperationInitializing:       {types.OperationPreparing},
	types.OperationPreparing:          {types.OperationMaterializing},
	types.OperationMaterializing:      {types.OperationPending},
	types.OperationReviveInitializing: {types.OperationReviving},
	types.OperationReviving:           {types.OperationPending},
	types.OperationPending:            {types.OperationRunning},
	types.OperationRunning:            {types.OperationCompleting},
	types.OperationCompleting:         {types.OperationCompleted},
}

// Advance returns the next state op should move to, or its current state
// if op is not ready to advance (e.g. a Running operation still has
// unfinished jobs -- checked by the caller before invoking Advance in a
// real driver loop; here Advance only encodes which edges are legal).
func Advance(op *types.Operation) (types.OperationState, error) {
	next, ok := transitions[op.State]
	if !ok {
		return op.State, nil // terminal or unknown state: nothing to do
	}
	if len(next) != 1 {
		return op.State, fmt.Errorf("operation %s: ambiguous transition from %s", op.ID, op.State)
	}
	return next[0], nil
}

// ValidateTransition reports whether moving op from its current state to
// target is a legal single edge, used by the driver's explicit
// state-change RPCs (e.g. forcing OperationFailed from any non-terminal
// state on a controller-reported error, which Advance's happy-path table
// does not cover).
func ValidateTransition(from, target types.OperationState) error {
	if target == types.OperationFailed || target == types.OperationAborted {
		if from.IsFinished() {
			return fmt.Errorf("operation already finished in state %s", from)
		}
		return nil
	}
	for _, candidate := range transitions[from] {
		if candidate == target {
			return nil
		}
	}
	return fmt.Errorf("illegal operation transition %s -> %s", from, target)
}
