package upload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsarma/fitrelay/internal/activityfile"
)

// scriptedClient replays a fixed sequence of provider statuses: the first
// is returned by SubmitUpload, the rest by successive UploadStatus calls.
// The last status repeats once the script runs out.
type scriptedClient struct {
	statuses  []*ProviderStatus
	submits   int
	polls     int
	submitErr error
}

func (c *scriptedClient) SubmitUpload(_ context.Context, _ *activityfile.File, _ Metadata) (*ProviderStatus, error) {
	c.submits++
	if c.submitErr != nil {
		return nil, c.submitErr
	}
	return c.statuses[0], nil
}

func (c *scriptedClient) UploadStatus(_ context.Context, handle string) (*ProviderStatus, error) {
	c.polls++
	i := c.polls
	if i >= len(c.statuses) {
		i = len(c.statuses) - 1
	}
	return c.statuses[i], nil
}

func pending(handle string) *ProviderStatus  { return &ProviderStatus{Handle: handle} }
func done(handle string, id int64) *ProviderStatus {
	return &ProviderStatus{Handle: handle, ActivityID: id}
}

func testFile(t *testing.T) *activityfile.File {
	t.Helper()
	f, err := activityfile.Classify([]byte(`<TrainingCenterDatabase></TrainingCenterDatabase>`), "")
	require.NoError(t, err)
	return f
}

func runMeta() Metadata {
	return Metadata{Title: "morning run", ActivityType: "run"}
}

func TestSubmit_InvalidActivityTypeNeverTouchesNetwork(t *testing.T) {
	client := &scriptedClient{statuses: []*ProviderStatus{pending("h1")}}
	o := New(client, time.Millisecond)

	_, err := o.Submit(context.Background(), testFile(t), Metadata{Title: "x", ActivityType: "parachuting"})
	assert.ErrorIs(t, err, ErrInvalidActivityType)
	assert.Zero(t, client.submits, "validation must precede any provider call")
}

func TestSubmit_StartsJob(t *testing.T) {
	client := &scriptedClient{statuses: []*ProviderStatus{pending("h1")}}
	o := New(client, time.Millisecond)

	job, err := o.Submit(context.Background(), testFile(t), runMeta())
	require.NoError(t, err)
	assert.Equal(t, "h1", job.Handle)
	assert.Equal(t, StatePolling, job.State)
	assert.NotEqual(t, job.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestAwaitCompletion_CompletesAfterPolls(t *testing.T) {
	// Provider acknowledges on the third poll with activity id 777.
	client := &scriptedClient{statuses: []*ProviderStatus{
		pending("h1"), pending("h1"), pending("h1"), done("h1", 777),
	}}
	o := New(client, time.Millisecond)

	job, err := o.Submit(context.Background(), testFile(t), runMeta())
	require.NoError(t, err)

	state, err := o.AwaitCompletion(context.Background(), job, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
	assert.EqualValues(t, 777, job.ActivityID)
	assert.Equal(t, 3, client.polls)
}

func TestAwaitCompletion_TimesOutWithoutError(t *testing.T) {
	client := &scriptedClient{statuses: []*ProviderStatus{pending("h1")}}
	o := New(client, time.Millisecond)

	job, err := o.Submit(context.Background(), testFile(t), runMeta())
	require.NoError(t, err)

	state, err := o.AwaitCompletion(context.Background(), job, 20*time.Millisecond)
	require.NoError(t, err, "timeout is an outcome, not an error")
	assert.Equal(t, StateTimedOut, state)
	assert.Equal(t, "h1", job.Handle, "handle must survive for later polling")
}

func TestAwaitCompletion_TimedOutJobCanBePolledLater(t *testing.T) {
	client := &scriptedClient{statuses: []*ProviderStatus{pending("h1"), pending("h1")}}
	o := New(client, time.Millisecond)

	job, err := o.Submit(context.Background(), testFile(t), runMeta())
	require.NoError(t, err)
	_, err = o.AwaitCompletion(context.Background(), job, 5*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, StateTimedOut, job.State)

	// The remote upload finished in the meantime.
	client.statuses = []*ProviderStatus{done("h1", 4242)}
	client.polls = -1
	require.NoError(t, o.Poll(context.Background(), job))
	assert.Equal(t, StateCompleted, job.State)
	assert.EqualValues(t, 4242, job.ActivityID)
}

func TestPoll_Idempotent(t *testing.T) {
	client := &scriptedClient{statuses: []*ProviderStatus{
		pending("h1"), pending("h1"), pending("h1"),
	}}
	o := New(client, time.Millisecond)

	job, err := o.Submit(context.Background(), testFile(t), runMeta())
	require.NoError(t, err)

	require.NoError(t, o.Poll(context.Background(), job))
	first := *job
	require.NoError(t, o.Poll(context.Background(), job))
	assert.Equal(t, first.State, job.State)
	assert.Equal(t, first.ActivityID, job.ActivityID)
}

func TestPoll_NoOpOnceDecided(t *testing.T) {
	client := &scriptedClient{statuses: []*ProviderStatus{done("h1", 9)}}
	o := New(client, time.Millisecond)

	job, err := o.Submit(context.Background(), testFile(t), runMeta())
	require.NoError(t, err)
	require.Equal(t, StateCompleted, job.State)

	require.NoError(t, o.Poll(context.Background(), job))
	assert.Zero(t, client.polls, "decided jobs must not generate provider traffic")
}

func TestDuplicateFailureIsSuccessTerminal(t *testing.T) {
	client := &scriptedClient{statuses: []*ProviderStatus{
		pending("h1"),
		{Handle: "h1", Failure: "2024-06-01.tcx.gz duplicate of activity 12345"},
	}}
	o := New(client, time.Millisecond)

	job, err := o.Submit(context.Background(), testFile(t), runMeta())
	require.NoError(t, err)
	state, err := o.AwaitCompletion(context.Background(), job, time.Second)
	require.NoError(t, err)
	assert.Equal(t, StateDuplicate, state)
	assert.EqualValues(t, 12345, job.ActivityID)
	assert.Empty(t, job.FailureReason)
}

func TestOtherFailurePropagatesVerbatim(t *testing.T) {
	client := &scriptedClient{statuses: []*ProviderStatus{
		{Handle: "h1", Failure: "The file is malformed"},
	}}
	o := New(client, time.Millisecond)

	job, err := o.Submit(context.Background(), testFile(t), runMeta())
	require.NoError(t, err)
	assert.Equal(t, StateFailed, job.State)
	assert.Equal(t, "The file is malformed", job.FailureReason)
}

func TestAwaitCompletion_ContextCancelInterrupts(t *testing.T) {
	client := &scriptedClient{statuses: []*ProviderStatus{pending("h1")}}
	o := New(client, 5*time.Second)

	job, err := o.Submit(context.Background(), testFile(t), runMeta())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = o.AwaitCompletion(ctx, job, time.Minute)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSubmit_NetworkErrorPropagates(t *testing.T) {
	client := &scriptedClient{submitErr: errors.New("connection refused")}
	o := New(client, time.Millisecond)

	_, err := o.Submit(context.Background(), testFile(t), runMeta())
	assert.ErrorContains(t, err, "connection refused")
}
