// Package upload drives the asynchronous upload-and-confirm protocol:
// submit a classified activity file, then poll the provider at a fixed
// interval until it reports an activity id, a duplicate, a failure, or the
// caller's deadline passes.
package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gsarma/fitrelay/internal/activityfile"
)

// ProviderStatus is the provider's view of an upload at one point in time.
type ProviderStatus struct {
	Handle string
	// ActivityID is non-zero once processing succeeded.
	ActivityID int64
	// Failure is the provider's failure message, empty while pending or on
	// success. A duplicate submission surfaces here too.
	Failure string
}

// ProviderClient is the provider API surface the orchestrator needs.
type ProviderClient interface {
	// SubmitUpload sends the compressed payload and returns the initial
	// status with the provider's job handle.
	SubmitUpload(ctx context.Context, file *activityfile.File, meta Metadata) (*ProviderStatus, error)
	// UploadStatus fetches the current status for a handle.
	UploadStatus(ctx context.Context, handle string) (*ProviderStatus, error)
}

// Orchestrator runs upload jobs against one provider client.
type Orchestrator struct {
	client   ProviderClient
	interval time.Duration
}

// New creates an Orchestrator polling at the given interval.
func New(client ProviderClient, interval time.Duration) *Orchestrator {
	return &Orchestrator{client: client, interval: interval}
}

// Submit validates metadata locally, sends the upload, and returns the
// tracking job. Validation failures never reach the network.
func (o *Orchestrator) Submit(ctx context.Context, file *activityfile.File, meta Metadata) (*Job, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	st, err := o.client.SubmitUpload(ctx, file, meta)
	if err != nil {
		return nil, fmt.Errorf("submit upload: %w", err)
	}
	job := &Job{ID: uuid.New(), Handle: st.Handle, State: StateSubmitted}
	apply(job, st)
	return job, nil
}

// Poll refreshes the job from the provider. It is idempotent: polling a
// decided job is a no-op, and polling with no provider-side change leaves
// the job state unchanged.
func (o *Orchestrator) Poll(ctx context.Context, job *Job) error {
	if job.Done() {
		return nil
	}
	st, err := o.client.UploadStatus(ctx, job.Handle)
	if err != nil {
		return fmt.Errorf("poll upload %s: %w", job.Handle, err)
	}
	apply(job, st)
	return nil
}

// AwaitCompletion polls until the job is decided or timeout elapses.
// Timing out marks the job TimedOut and abandons it without canceling the
// remote upload, which may still complete on its own. The context deadline,
// if sooner, interrupts the wait the same way any other network deadline
// would.
func (o *Orchestrator) AwaitCompletion(ctx context.Context, job *Job, timeout time.Duration) (State, error) {
	deadline := time.Now().Add(timeout)
	for {
		if job.Done() {
			return job.State, nil
		}
		if time.Now().After(deadline) {
			job.State = StateTimedOut
			return StateTimedOut, nil
		}
		if err := sleep(ctx, o.interval); err != nil {
			return job.State, err
		}
		if err := o.Poll(ctx, job); err != nil {
			return job.State, err
		}
	}
}

// apply folds a provider status into the job. Duplicate detection runs on
// the failure message before it is treated as an error: the provider
// reports duplicates as failures, but for us an already-uploaded activity
// is a successful outcome.
func apply(job *Job, st *ProviderStatus) {
	if st.Handle != "" {
		job.Handle = st.Handle
	}
	if st.Failure != "" {
		if id, ok := ParseDuplicate(st.Failure); ok {
			job.State = StateDuplicate
			job.ActivityID = id
			return
		}
		job.State = StateFailed
		job.FailureReason = st.Failure
		return
	}
	if st.ActivityID != 0 {
		job.State = StateCompleted
		job.ActivityID = st.ActivityID
		return
	}
	job.State = StatePolling
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
