// Package jobapi provides the HTTP client for the remote job authority that
// owns and executes ingestion, metrics-sync, and backtest jobs.
package jobapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// Sentinel errors for job authority failures.
var (
	// ErrUnavailable marks transient transport/5xx failures; the watch
	// client treats these as a poll failure, never as fatal.
	ErrUnavailable = errors.New("job authority unavailable")
)

const defaultTimeout = 15 * time.Second

// Config describes how to reach the job authority.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// Client talks JSON over HTTP to the job authority. It implements
// watch.StatusFetcher.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs a job authority client.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid job authority base URL: %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: base.String(),
		token:   cfg.APIToken,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// Status fetches the current record for a job.
func (c *Client) Status(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// startResponse is the accepted-job envelope returned by the authority.
type startResponse struct {
	JobID string `json:"job_id"`
}

// Start asks the authority to begin a job and returns the accepted job ID.
func (c *Client) Start(ctx context.Context, req *model.StartJobRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", apperrors.Validation(err.Error())
	}

	var resp startResponse
	if err := c.do(ctx, http.MethodPost, "/jobs", req, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("%w: start accepted without a job id", ErrUnavailable)
	}
	return resp.JobID, nil
}

// Resume asks the authority to resume a paused or retryable job. The
// returned ID may equal jobID (reactivated in place) or be a fresh one.
func (c *Client) Resume(ctx context.Context, jobID string) (string, error) {
	var resp startResponse
	if err := c.do(ctx, http.MethodPost, "/jobs/"+url.PathEscape(jobID)+"/resume", nil, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		// Authorities that reactivate in place omit the id.
		return jobID, nil
	}
	return resp.JobID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// checkStatus maps non-2xx responses onto the error taxonomy: 404 → not
// found, 409 → conflict (a job already runs for the subject), anything else
// → transient unavailability.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return apperrors.NotFoundf("job authority: %s", msg)
	case http.StatusConflict:
		return apperrors.Conflictf("job authority: %s", msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.Validationf("job authority: %s", msg)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, msg)
	}
}
