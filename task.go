package mpxfer

import (
	"context"
	"time"

	"github.com/derektruong/mpxfer/source"
	"github.com/derektruong/mpxfer/transaction"
)

// TaskState is the lifecycle state of one upload task.
type TaskState int

const (
	// StateIdle is the state of a task that has been added but not started
	StateIdle TaskState = iota
	// StateInitiating is the state while the remote transaction is being opened
	StateInitiating
	// StateTransferring is the state while parts are moving to the store
	StateTransferring
	// StateFinalizing is the state while the store assembles the object
	StateFinalizing
	// StateCompleted is the terminal state of a successful upload
	StateCompleted
	// StateFailed is the terminal-until-retried state of a failed upload
	StateFailed
	// StateCancelled is the terminal state of a cancelled upload
	StateCancelled
)

func (s TaskState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitiating:
		return "initiating"
	case StateTransferring:
		return "transferring"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transfer activity can occur for a
// task in this state. StateFailed counts as terminal for admission
// bookkeeping even though an explicit retry may revive the task.
func (s TaskState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Active reports whether the task holds an admission slot.
func (s TaskState) Active() bool {
	return s == StateInitiating || s == StateTransferring || s == StateFinalizing
}

// uploadTask is the coordinator-owned record of one file's upload. All
// fields are guarded by the manager mutex except partTransferred, which
// the executor's progress callback updates through recordPartProgress.
type uploadTask struct {
	id   string
	file source.File
	info source.Info

	// objectKey is the destination identifier in the object store,
	// derived once at enqueue time
	objectKey string

	// folderID is the catalog folder the finished object registers under
	folderID string

	// principal is the acting user the upload is scoped to
	principal string

	state     TaskState
	lastError error

	remoteTransactionID string
	remoteObjectID      string
	totalParts          int32
	nextPartNumber      int32
	completedParts      []transaction.CompletedPart

	// completedBytes counts bytes of parts whose transfer settled;
	// partTransferred counts bytes of the single in-flight part
	completedBytes  int64
	partTransferred int64

	startedAt time.Time

	// queued marks a task waiting in the admission queue
	queued bool

	// cancel aborts the task's run loop, set while the task is active
	cancel context.CancelFunc
}

// snapshot derives the read-only view at the given instant. Callers
// hold the manager mutex.
func (t *uploadTask) snapshot(now time.Time) TaskSnapshot {
	snap := TaskSnapshot{
		ID:             t.id,
		Name:           t.info.Name,
		Size:           t.info.Size,
		ContentType:    t.info.ContentType,
		State:          t.state,
		TransactionID:  t.remoteTransactionID,
		ObjectID:       t.remoteObjectID,
		TotalParts:     t.totalParts,
		CompletedParts: int32(len(t.completedParts)),
		Err:            t.lastError,
	}

	transferred := t.completedBytes + t.partTransferred
	switch {
	case t.state == StateCompleted:
		snap.ProgressPercent = 100
	case t.info.Size == 0:
		snap.ProgressPercent = 0
	default:
		percent := int(transferred * 100 / t.info.Size)
		// the final percent is reserved for a finalized object
		if percent > 99 {
			percent = 99
		}
		snap.ProgressPercent = percent
	}

	if t.state.Active() && !t.startedAt.IsZero() {
		elapsed := now.Sub(t.startedAt)
		if elapsed > 0 && transferred > 0 {
			snap.SpeedBytesPerSec = transferred * int64(time.Second) / int64(elapsed)
			remaining := t.info.Size - transferred
			if remaining > 0 && snap.SpeedBytesPerSec > 0 {
				snap.ETA = time.Duration(remaining/snap.SpeedBytesPerSec) * time.Second
			}
		}
	}
	return snap
}

// TaskSnapshot is the read-only view of one upload task exposed by the
// manager's observable surface.
type TaskSnapshot struct {
	// ID is the opaque task identifier assigned at enqueue time
	ID string

	// Name, Size and ContentType mirror the payload captured at enqueue
	Name        string
	Size        int64
	ContentType string

	// State is the task's lifecycle state
	State TaskState

	// TransactionID identifies the remote session, empty until
	// initiation succeeds
	TransactionID string

	// ObjectID identifies the finished object, set on completion
	ObjectID string

	// TotalParts and CompletedParts describe part bookkeeping
	TotalParts     int32
	CompletedParts int32

	// ProgressPercent is in [0, 100]; 100 only after completion
	ProgressPercent int

	// SpeedBytesPerSec and ETA are derived from observed throughput
	SpeedBytesPerSec int64
	ETA              time.Duration

	// Err carries the task-level failure reason, only in StateFailed
	Err error
}

// Snapshot is the manager-wide observable view.
type Snapshot struct {
	// Tasks lists every visible task in enqueue order
	Tasks []TaskSnapshot

	// OverallProgressPercent is the mean progress across visible tasks
	OverallProgressPercent int

	// Derived affordance flags
	HasIdle      bool
	HasActive    bool
	HasCompleted bool
}
