// Package backend defines the narrow storage-engine interface the
// protocol core calls into, and provides a reference in-memory
// implementation for tests and small deployments.
package backend

import (
	"context"
	"errors"
)

// LunError classifies why LUN resolution failed.
type LunError int

const (
	LunErrorNone LunError = iota
	LunErrorNotFound
	LunErrorReservationConflict
	LunErrorUnavailable
)

func (e LunError) Error() string {
	switch e {
	case LunErrorNotFound:
		return "lun not found"
	case LunErrorReservationConflict:
		return "reservation conflict"
	case LunErrorUnavailable:
		return "lun unavailable"
	default:
		return "lun error"
	}
}

// AllocError classifies why task allocation failed.
type AllocError int

const (
	AllocErrorNone AllocError = iota
	AllocErrorOutOfResources
	AllocErrorInvalidCDB
)

func (e AllocError) Error() string {
	switch e {
	case AllocErrorOutOfResources:
		return "out of resources"
	case AllocErrorInvalidCDB:
		return "invalid cdb"
	default:
		return "allocation error"
	}
}

// TMRFunction is the task management function requested (RFC 3720 §10.5).
type TMRFunction int

const (
	TMRAbortTask TMRFunction = iota
	TMRAbortTaskSet
	TMRLogicalUnitReset
	TMRTargetWarmReset
	TMRTargetColdReset
	TMRTaskReassign
)

// Sense carries SCSI sense data plus the iSCSI-level residual/overflow
// flags the bridge folds into the SCSI Response PDU (RFC 3720 §10.4.7).
type Sense struct {
	SCSIStatus byte
	Key        byte
	ASC        byte
	ASCQ       byte
	Data       []byte // raw sense data segment, 2-byte length prefixed by the caller

	ResidualUnderflow bool
	ResidualOverflow  bool
	ResidualCount     uint32
}

// CompletionStatus reports a backend command's terminal outcome.
type CompletionStatus struct {
	Sense      Sense
	ReadData   []byte // populated for read commands
	BytesWritten uint32
}

// BackendCmd is the opaque handle the bridge and the protocol core pass
// back and forth; its fields are only ever touched through Bridge methods.
type BackendCmd struct {
	LUN  uint64
	CDB  [16]byte
	Done chan CompletionStatus

	dataReady chan []byte // fed by Bridge.HandleData for writes
}

// ErrUnsupportedTMR is returned when a Bridge implementation does not
// implement a requested task management function.
var ErrUnsupportedTMR = errors.New("unsupported task management function")

// Bridge adapts iSCSI commands onto a storage engine. Method names mirror
// the core's calls into it one-to-one: ResolveLUN, AllocateTasks,
// HandleCDB, HandleData, HandleTMR, WaitForTasks.
type Bridge interface {
	// ResolveLUN validates lun against cdb's addressing and returns a fresh
	// BackendCmd handle, or a LunError.
	ResolveLUN(ctx context.Context, lun uint64, cdb [16]byte) (*BackendCmd, LunError)

	// AllocateTasks reserves backend-side resources (buffers, task slots)
	// for cmd before execution begins.
	AllocateTasks(ctx context.Context, cmd *BackendCmd) AllocError

	// HandleCDB begins asynchronous execution of cmd. Completion arrives
	// on cmd.Done.
	HandleCDB(ctx context.Context, cmd *BackendCmd) error

	// HandleData signals that a write command's data (in whole or in the
	// placement order required by DataPDUInOrder/DataSequenceInOrder) is
	// ready for the backend to consume.
	HandleData(ctx context.Context, cmd *BackendCmd, offset uint32, data []byte) error

	// HandleTMR executes a task management function against target,
	// optionally scoped to referencedCmd (nil for session/LU-wide
	// functions like LogicalUnitReset).
	HandleTMR(ctx context.Context, fn TMRFunction, target *BackendCmd, referencedCmd *BackendCmd) error

	// WaitForTasks blocks until cmd completes, ctx is cancelled (interrupt),
	// or abort fires, returning the terminal status.
	WaitForTasks(ctx context.Context, cmd *BackendCmd, abort <-chan struct{}) (CompletionStatus, error)
}
