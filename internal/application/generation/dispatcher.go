package generation

import (
	"context"
	"errors"
	"net/http"
	"time"

	"clipforge/internal/shared/clock"
	"clipforge/internal/shared/flow"
	"clipforge/internal/shared/logger"
)

// DispatcherConfig shapes how render traffic reaches the downstream
// generation service.
type DispatcherConfig struct {
	// MaxConcurrent bounds in-flight render submissions.
	MaxConcurrent int
	// DispatchDelay is the pause between finishing one submission and
	// starting the next waiting one.
	DispatchDelay time.Duration
	// MaxRetries, BaseDelay and MaxDelay configure per-submission retry
	// backoff.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// PreviewDelay is the quiet period before a preview render fires.
	PreviewDelay time.Duration
	// PollInterval rate-limits status polling per dispatcher.
	PollInterval time.Duration
}

// Dispatcher funnels render traffic to the generation service through a
// bounded FIFO queue, retries transient failures with exponential
// backoff, debounces preview regeneration, and throttles status polls.
type Dispatcher struct {
	client  Client
	queue   *flow.Queue[RenderResult]
	preview *flow.Debounce[RenderJob]
	poll    *flow.Throttle[string, pollOutcome]
	clk     clock.Clock
	cfg     DispatcherConfig
	logger  logger.Interface
}

type pollOutcome struct {
	status JobStatus
	err    error
}

// NewDispatcher creates a dispatcher around client.
func NewDispatcher(client Client, clk clock.Clock, cfg DispatcherConfig, log logger.Interface) *Dispatcher {
	d := &Dispatcher{
		client: client,
		clk:    clk,
		cfg:    cfg,
		logger: log.Named("generation-dispatcher"),
	}
	d.queue = flow.NewQueue[RenderResult](clk, cfg.MaxConcurrent, cfg.DispatchDelay)
	d.preview = flow.NewDebounce(clk, cfg.PreviewDelay, d.runPreview)
	d.poll = flow.NewThrottle(clk, cfg.PollInterval, d.runPoll)
	return d
}

// Submit enqueues a render job. The returned task completes when the
// submission has been acknowledged downstream or retries are exhausted.
func (d *Dispatcher) Submit(ctx context.Context, job RenderJob) *flow.Task[RenderResult] {
	return d.queue.Add(ctx, func(ctx context.Context) (RenderResult, error) {
		return d.submitWithRetry(ctx, job)
	})
}

// RequestPreview schedules a debounced preview render: rapid edits
// collapse into a single submission carrying the latest job.
func (d *Dispatcher) RequestPreview(job RenderJob) {
	job.Preview = true
	d.preview.Call(job)
}

// PollStatus fetches the job status at most once per poll interval.
// Calls inside the cool-down return ok=false and schedule a trailing
// poll whose result is only logged.
func (d *Dispatcher) PollStatus(jobID string) (JobStatus, bool, error) {
	outcome, ok := d.poll.Call(jobID)
	if !ok {
		return JobStatus{}, false, nil
	}
	return outcome.status, true, outcome.err
}

// PendingSubmissions returns the number of jobs waiting for a queue slot.
func (d *Dispatcher) PendingSubmissions() int {
	return d.queue.Pending()
}

// ActiveSubmissions returns the number of jobs currently in flight.
func (d *Dispatcher) ActiveSubmissions() int {
	return d.queue.Active()
}

// CancelPending discards every queued submission that has not started
// and any scheduled preview. In-flight submissions run to completion.
func (d *Dispatcher) CancelPending() int {
	d.preview.Cancel()
	return d.queue.Clear()
}

func (d *Dispatcher) submitWithRetry(ctx context.Context, job RenderJob) (RenderResult, error) {
	result, err := flow.Retry(ctx, d.clk, func(ctx context.Context) (RenderResult, error) {
		return d.client.SubmitRender(ctx, job)
	}, flow.RetryOptions{
		MaxRetries:  d.cfg.MaxRetries,
		BaseDelay:   d.cfg.BaseDelay,
		MaxDelay:    d.cfg.MaxDelay,
		ShouldRetry: IsRetryable,
	})
	if err != nil {
		d.logger.Errorw("render submission failed",
			"project_id", job.ProjectID,
			"preview", job.Preview,
			"error", err)
		return RenderResult{}, err
	}

	d.logger.Infow("render submitted",
		"project_id", job.ProjectID,
		"job_id", result.JobID,
		"preview", job.Preview)
	return result, nil
}

func (d *Dispatcher) runPreview(job RenderJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if _, err := d.submitWithRetry(ctx, job); err != nil {
		d.logger.Warnw("preview render failed",
			"project_id", job.ProjectID,
			"error", err)
	}
}

func (d *Dispatcher) runPoll(jobID string) pollOutcome {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := d.client.GetStatus(ctx, jobID)
	if err != nil {
		d.logger.Warnw("status poll failed",
			"job_id", jobID,
			"error", err)
		return pollOutcome{err: err}
	}
	return pollOutcome{status: status}
}

// IsRetryable reports whether a submission error is transient: server
// errors and timeouts retry, client errors do not.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError ||
			statusErr.Code == http.StatusTooManyRequests ||
			statusErr.Code == http.StatusRequestTimeout
	}
	// Network-level failures (connection refused, timeouts) are
	// retryable; context cancellation is handled by Retry itself.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
