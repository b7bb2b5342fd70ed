package types

import (
	"time"

	"github.com/cuemby/cellar/pkg/ids"
)

// OperationState is the lifecycle state of a scheduler Operation (spec §3
// "Operation (C3)"), grounded on operation.cpp's state enum.
type OperationState string

const (
	OperationStarting           OperationState = "starting"
	OperationWaitingForAgent    OperationState = "waiting_for_agent"
	OperationInitializing       OperationState = "initializing"
	OperationPreparing          OperationState = "preparing"
	OperationMaterializing      OperationState = "materializing"
	OperationReviveInitializing OperationState = "revive_initializing"
	OperationReviving           OperationState = "reviving"
	OperationPending            OperationState = "pending"
	OperationRunning            OperationState = "running"
	OperationCompleting         OperationState = "completing"
	OperationCompleted          OperationState = "completed"
	OperationFailed             OperationState = "failed"
	OperationAborted            OperationState = "aborted"
)

// IsFinished reports whether state is a terminal operation state.
func (s OperationState) IsFinished() bool {
	switch s {
	case OperationCompleted, OperationFailed, OperationAborted:
		return true
	default:
		return false
	}
}

// OperationEvent is one entry of an operation's append-only event log
// (spec §4.3), grounded on operation.cpp's event logging on every state
// transition.
type OperationEvent struct {
	Time  time.Time
	State OperationState
}

// OperationAlert is a non-fatal condition surfaced on a running or finished
// operation (spec §4.3).
type OperationAlert struct {
	Type    string
	Message string
	Time    time.Time
}

// RuntimeParameters are the operation's scheduling knobs (spec §4.3
// "needs-flush"), grounded on operation.cpp's TOperationRuntimeParameters.
// Changing any field after the operation has started sets the matching
// needs-flush flag so the cleaner/runtime-parameter loop persists it.
type RuntimeParameters struct {
	Owners           []string
	Acl              AccessControlDescriptor
	Pool             string
	Weight           float64
	ResourceLimits   map[string]int64
	SchedulingOptionsPerPoolTree map[string]SchedulingOptions

	NeedsFlush    bool
	NeedsFlushACL bool
}

// SchedulingOptions is the per-pool-tree portion of RuntimeParameters.
type SchedulingOptions struct {
	Pool   string
	Weight float64
}

// Operation is a scheduled unit of work tracked end to end from submission
// through archival (spec §3, §4.3).
type Operation struct {
	ID    ids.ID
	Alias string // optional user-chosen unique name, spec §4.3

	Type               string
	State              OperationState
	Suspended          bool
	AuthenticatedUser  string

	Spec       []byte // opaque JSON operation spec, as submitted
	BriefSpec  []byte // summarized spec for listing views
	FullSpec   []byte // spec with all defaults resolved, filled at materialization
	UnrecognizedSpec []byte // spec keys the scheduler did not recognize

	RuntimeParams      RuntimeParameters
	HeavyRuntimeParams []byte // large runtime-parameter payloads kept out of the hot path, spec §4.3

	StartTime  time.Time
	FinishTime time.Time

	Events []OperationEvent
	Alerts []OperationAlert

	Progress      []byte
	BriefProgress []byte
	Result        []byte // terminal result/error summary

	SlotIndexPerPoolTree map[string]int
	TaskNames            []string

	ExperimentAssignments     []string
	ExperimentAssignmentNames []string

	ControllerFeatures []byte

	JobIDs []ids.ID
}

// JobState is the lifecycle state of a Job (spec §3 "Job (C3)").
type JobState string

const (
	JobWaiting  JobState = "waiting"
	JobRunning  JobState = "running"
	JobAborting JobState = "aborting"
	JobAborted  JobState = "aborted"
	JobFailed   JobState = "failed"
	JobCompleted JobState = "completed"
)

// Job is a single scheduled task of an Operation, submitted to an exec node
// (spec §3, §4.3). The exec-node runtime itself is out of scope; Job only
// tracks the scheduling-side record.
type Job struct {
	ID          ids.ID
	OperationID ids.ID
	State       JobState

	// ExecNode is an opaque descriptor of the out-of-scope exec-node runtime
	// this job was submitted to; the scheduler never interprets it.
	ExecNode string

	StartTime  time.Time
	FinishTime time.Time

	Error []byte
}
