package generation

import (
	"context"
	"fmt"
	"time"
)

// JobState is the downstream-reported lifecycle state of a render job.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRendering JobState = "rendering"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// RenderJob describes one clip render submitted to the generation
// service.
type RenderJob struct {
	ProjectID  string `json:"project_id"`
	TemplateID string `json:"template_id"`
	Prompt     string `json:"prompt"`
	Preview    bool   `json:"preview"`
}

// RenderResult is the downstream acknowledgement for a submitted job.
type RenderResult struct {
	JobID     string   `json:"job_id"`
	State     JobState `json:"state"`
	OutputURL string   `json:"output_url,omitempty"`
}

// JobStatus is a point-in-time snapshot of a render job.
type JobStatus struct {
	JobID     string    `json:"job_id"`
	State     JobState  `json:"state"`
	Progress  int       `json:"progress"`
	OutputURL string    `json:"output_url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Client talks to the downstream AI/video generation service.
type Client interface {
	SubmitRender(ctx context.Context, job RenderJob) (RenderResult, error)
	GetStatus(ctx context.Context, jobID string) (JobStatus, error)
}

// StatusError carries the downstream HTTP status so callers can decide
// whether a failure is worth retrying.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generation service returned %d: %s", e.Code, e.Message)
}

// NewStatusError creates a StatusError for the given HTTP status code.
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message}
}
