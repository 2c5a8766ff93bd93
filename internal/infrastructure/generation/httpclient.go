package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	appgen "clipforge/internal/application/generation"
	"clipforge/internal/shared/config"
	"clipforge/internal/shared/logger"
)

const (
	// Maximum response body size accepted from the generation service (256KB)
	maxResponseSize = 256 << 10
)

// HTTPClient talks to the render farm's HTTP API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logger.Interface
}

// NewHTTPClient creates a generation service client from config.
func NewHTTPClient(cfg *config.GenerationConfig, log logger.Interface) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.Endpoint,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		logger: log.Named("generation-client"),
	}
}

// Ensure HTTPClient implements the application-layer client contract
var _ appgen.Client = (*HTTPClient)(nil)

// SubmitRender posts a render job and returns the downstream
// acknowledgement.
func (c *HTTPClient) SubmitRender(ctx context.Context, job appgen.RenderJob) (appgen.RenderResult, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return appgen.RenderResult{}, fmt.Errorf("failed to marshal render job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/renders", bytes.NewReader(body))
	if err != nil {
		return appgen.RenderResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return appgen.RenderResult{}, fmt.Errorf("failed to submit render: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return appgen.RenderResult{}, c.statusError(resp)
	}

	var result appgen.RenderResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&result); err != nil {
		return appgen.RenderResult{}, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Debugw("render submitted",
		"project_id", job.ProjectID,
		"job_id", result.JobID)
	return result, nil
}

// GetStatus fetches the current state of a render job.
func (c *HTTPClient) GetStatus(ctx context.Context, jobID string) (appgen.JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/renders/"+jobID, nil)
	if err != nil {
		return appgen.JobStatus{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return appgen.JobStatus{}, fmt.Errorf("failed to fetch job status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return appgen.JobStatus{}, c.statusError(resp)
	}

	var status appgen.JobStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&status); err != nil {
		return appgen.JobStatus{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return status, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *HTTPClient) statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return appgen.NewStatusError(resp.StatusCode, string(bytes.TrimSpace(snippet)))
}
