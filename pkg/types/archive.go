package types

import (
	"time"

	"github.com/cuemby/cellar/pkg/ids"
)

// ArchiveRequest is the row an operation is flattened into when the cleaner
// moves it out of the live operation table (spec §4.3 "Archival"). The
// field set is grounded directly on operations_cleaner.cpp's
// TArchiveOperationRequest::GetAttributeKeys() column list, so the archive
// schema matches what a consumer reading the original cluster's archive
// table would expect.
type ArchiveRequest struct {
	ID    ids.ID
	Alias string

	StartTime  time.Time
	FinishTime time.Time

	State             OperationState
	AuthenticatedUser string
	OperationType     string

	Progress      []byte
	BriefProgress []byte

	Spec             []byte
	BriefSpec        []byte
	FullSpec         []byte
	UnrecognizedSpec []byte

	Result []byte
	Events []OperationEvent
	Alerts []OperationAlert

	RuntimeParameters      []byte
	HeavyRuntimeParameters []byte

	SlotIndexPerPoolTree map[string]int
	TaskNames            []string

	ExperimentAssignments     []string
	ExperimentAssignmentNames []string

	ControllerFeatures []byte

	// SchemaVersion pins the archive row layout; only the current version is
	// produced and read (spec §9 Open Question: no legacy schema support).
	SchemaVersion int
}

const CurrentArchiveSchemaVersion = 26

// FromOperation flattens a finished Operation into its archive row,
// mirroring TArchiveOperationRequest::InitializeFromOperation.
func ArchiveRequestFromOperation(op *Operation) ArchiveRequest {
	return ArchiveRequest{
		ID:                        op.ID,
		Alias:                     op.Alias,
		StartTime:                 op.StartTime,
		FinishTime:                op.FinishTime,
		State:                     op.State,
		AuthenticatedUser:         op.AuthenticatedUser,
		OperationType:             op.Type,
		Progress:                  op.Progress,
		BriefProgress:             op.BriefProgress,
		Spec:                      op.Spec,
		BriefSpec:                 op.BriefSpec,
		FullSpec:                  op.FullSpec,
		UnrecognizedSpec:          op.UnrecognizedSpec,
		Result:                    op.Result,
		Events:                    op.Events,
		Alerts:                    op.Alerts,
		HeavyRuntimeParameters:    op.HeavyRuntimeParams,
		SlotIndexPerPoolTree:      op.SlotIndexPerPoolTree,
		TaskNames:                 op.TaskNames,
		ExperimentAssignments:     op.ExperimentAssignments,
		ExperimentAssignmentNames: op.ExperimentAssignmentNames,
		ControllerFeatures:        op.ControllerFeatures,
		SchemaVersion:             CurrentArchiveSchemaVersion,
	}
}
