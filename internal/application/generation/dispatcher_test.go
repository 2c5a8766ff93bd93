package generation

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/shared/clock"
	"clipforge/internal/shared/logger"
)

type fakeClient struct {
	mu          sync.Mutex
	submissions []RenderJob
	failures    int
	failWith    error
	release     chan struct{}
}

func (c *fakeClient) SubmitRender(ctx context.Context, job RenderJob) (RenderResult, error) {
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return RenderResult{}, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submissions = append(c.submissions, job)
	if c.failures > 0 {
		c.failures--
		return RenderResult{}, c.failWith
	}
	return RenderResult{JobID: "job-" + job.ProjectID, State: JobStateQueued}, nil
}

func (c *fakeClient) GetStatus(ctx context.Context, jobID string) (JobStatus, error) {
	return JobStatus{JobID: jobID, State: JobStateRendering, Progress: 42}, nil
}

func (c *fakeClient) submissionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.submissions)
}

func (c *fakeClient) lastSubmission() RenderJob {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submissions[len(c.submissions)-1]
}

func testConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxConcurrent: 2,
		MaxRetries:    2,
		BaseDelay:     time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		PreviewDelay:  time.Second,
		PollInterval:  time.Second,
	}
}

func TestDispatcher_SubmitBoundsConcurrency(t *testing.T) {
	client := &fakeClient{release: make(chan struct{})}
	d := NewDispatcher(client, clock.New(), testConfig(), logger.NewLogger())
	ctx := context.Background()

	tasks := make([]interface{ Done() <-chan struct{} }, 0, 3)
	for _, id := range []string{"p1", "p2", "p3"} {
		tasks = append(tasks, d.Submit(ctx, RenderJob{ProjectID: id}))
	}

	assert.Eventually(t, func() bool {
		return d.ActiveSubmissions() == 2 && d.PendingSubmissions() == 1
	}, time.Second, 5*time.Millisecond)

	close(client.release)

	for _, task := range tasks {
		select {
		case <-task.Done():
		case <-time.After(time.Second):
			t.Fatal("task did not complete")
		}
	}
	assert.Equal(t, 3, client.submissionCount())
}

func TestDispatcher_SubmitRetriesTransientFailures(t *testing.T) {
	client := &fakeClient{
		failures: 2,
		failWith: NewStatusError(http.StatusServiceUnavailable, "overloaded"),
	}
	d := NewDispatcher(client, clock.New(), testConfig(), logger.NewLogger())

	result, err := d.Submit(context.Background(), RenderJob{ProjectID: "p1"}).Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "job-p1", result.JobID)
	assert.Equal(t, 3, client.submissionCount(), "two failures then success")
}

func TestDispatcher_SubmitDoesNotRetryClientErrors(t *testing.T) {
	client := &fakeClient{
		failures: 1,
		failWith: NewStatusError(http.StatusUnprocessableEntity, "bad template"),
	}
	d := NewDispatcher(client, clock.New(), testConfig(), logger.NewLogger())

	_, err := d.Submit(context.Background(), RenderJob{ProjectID: "p1"}).Wait(context.Background())
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.Code)
	assert.Equal(t, 1, client.submissionCount(), "4xx must not retry")
}

func TestDispatcher_RequestPreviewDebounces(t *testing.T) {
	mock := clock.NewMock()
	client := &fakeClient{}
	d := NewDispatcher(client, mock, testConfig(), logger.NewLogger())

	for _, prompt := range []string{"draft 1", "draft 2", "draft 3"} {
		d.RequestPreview(RenderJob{ProjectID: "p1", Prompt: prompt})
	}
	assert.Equal(t, 0, client.submissionCount(), "nothing fires during the quiet period")

	mock.Add(time.Second)

	assert.Eventually(t, func() bool {
		return client.submissionCount() == 1
	}, time.Second, 5*time.Millisecond)
	last := client.lastSubmission()
	assert.Equal(t, "draft 3", last.Prompt, "only the final edit renders")
	assert.True(t, last.Preview)
}

func TestDispatcher_PollStatusThrottles(t *testing.T) {
	mock := clock.NewMock()
	client := &fakeClient{}
	d := NewDispatcher(client, mock, testConfig(), logger.NewLogger())

	status, ok, err := d.PollStatus("job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, status.Progress)

	_, ok, err = d.PollStatus("job-1")
	require.NoError(t, err)
	assert.False(t, ok, "second poll inside the interval is suppressed")
}

func TestDispatcher_CancelPendingDiscardsQueuedWork(t *testing.T) {
	client := &fakeClient{release: make(chan struct{})}
	d := NewDispatcher(client, clock.New(), testConfig(), logger.NewLogger())
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		d.Submit(ctx, RenderJob{ProjectID: id})
	}

	assert.Eventually(t, func() bool {
		return d.PendingSubmissions() == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, d.CancelPending())
	assert.Equal(t, 0, d.PendingSubmissions())

	close(client.release)

	assert.Eventually(t, func() bool {
		return client.submissionCount() == 2
	}, time.Second, 5*time.Millisecond, "in-flight submissions still complete")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewStatusError(http.StatusInternalServerError, "boom")))
	assert.True(t, IsRetryable(NewStatusError(http.StatusTooManyRequests, "slow down")))
	assert.False(t, IsRetryable(NewStatusError(http.StatusBadRequest, "invalid")))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(assert.AnError))
}
