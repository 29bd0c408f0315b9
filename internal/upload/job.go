package upload

import "github.com/google/uuid"

// State is an UploadJob's position in its lifecycle.
type State string

const (
	StateSubmitted State = "submitted"
	StatePolling   State = "polling"
	StateCompleted State = "completed"
	// StateDuplicate means the provider already has this activity. It is a
	// successful terminal state carrying the existing activity id, not a
	// failure.
	StateDuplicate State = "duplicate"
	StateFailed    State = "failed"
	// StateTimedOut means the caller's deadline elapsed before the provider
	// finished. The remote upload is not canceled and may still complete;
	// the job handle stays valid for later polling.
	StateTimedOut State = "timed_out"
)

// Job tracks one upload through submit and poll. A job is owned by exactly
// one caller-driven control loop; it is not safe for concurrent use.
type Job struct {
	ID     uuid.UUID
	Handle string
	State  State

	// ActivityID is set once the job reaches Completed or Duplicate.
	ActivityID int64
	// FailureReason carries the provider's message verbatim when Failed.
	FailureReason string
}

// Done reports whether the provider reached a verdict. TimedOut is not
// done: the caller may keep polling the same handle.
func (j *Job) Done() bool {
	switch j.State {
	case StateCompleted, StateDuplicate, StateFailed:
		return true
	}
	return false
}
