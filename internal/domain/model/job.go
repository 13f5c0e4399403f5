// Package model defines the core data types and structures used throughout the ingest admin system.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobType represents the type of remotely-executed job being tracked.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// JobStatus represents the current status of a job as reported by the job authority.
type JobStatus string

const (
	// JobTypeDeepIngest represents a full historical ingest for a season or league.
	JobTypeDeepIngest JobType = "deep_ingest"
	// JobTypeMetricsSync represents a metrics recomputation/sync job.
	JobTypeMetricsSync JobType = "metrics_sync"
	// JobTypeBacktest represents a strategy-lab backtest job.
	JobTypeBacktest JobType = "backtest"
	// JobTypeOther represents any job type this service does not model explicitly.
	JobTypeOther JobType = "other"

	// JobStatusQueued indicates a job is waiting for a remote worker.
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning indicates a job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusPaused indicates a job was suspended and may be resumed.
	JobStatusPaused JobStatus = "paused"
	// JobStatusSucceeded indicates a job has finished successfully.
	JobStatusSucceeded JobStatus = "succeeded"
	// JobStatusFailed indicates a job has failed to complete.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCanceled indicates a job was canceled before completing.
	JobStatusCanceled JobStatus = "canceled"
)

// UnmarshalText implements encoding.TextUnmarshaler for JobType to allow env parsing.
func (t *JobType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jt := JobType(v)
	if jt.Valid() {
		*t = jt
		return nil
	}
	return fmt.Errorf("invalid JobType: %q", v)
}

// ErrJobAlreadyRunning is returned when starting a job for a subject that already has one in flight.
var ErrJobAlreadyRunning = errors.New("a job is already running for this subject")

// Valid returns true if the JobType is valid.
func (t JobType) Valid() bool {
	return t == JobTypeDeepIngest || t == JobTypeMetricsSync || t == JobTypeBacktest ||
		t == JobTypeOther
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusPaused,
		JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status admits no further transitions without an
// explicit resume/restart on the authority side.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed || s == JobStatusCanceled
}

// Waiting returns true for statuses that change less often than running jobs.
func (s JobStatus) Waiting() bool {
	return s == JobStatusQueued || s == JobStatusPaused
}

// JobProgress describes how far along a job is. Total is nil when the
// authority cannot yet bound the amount of work.
type JobProgress struct {
	Processed int64  `json:"processed"`
	Total     *int64 `json:"total,omitempty"`
	Percent   int    `json:"percent"`
}

// JobLogEntry is one line of a job's ordered error log.
type JobLogEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	Message   string          `json:"message"`
	Context   json.RawMessage `json:"context,omitempty"`
}

// Job represents a remotely-owned unit of work tracked by its opaque identifier.
// Optional telemetry fields (Progress, ThroughputPerMin, ETASeconds) are
// pointers because the authority omits them until it has a measurement.
type Job struct {
	ID                  string        `json:"job_id"                          db:"id"`
	Type                JobType       `json:"type"                            db:"type"`
	Status              JobStatus     `json:"status"                          db:"status"`
	Phase               string        `json:"phase,omitempty"                 db:"phase"`
	Subject             string        `json:"subject,omitempty"               db:"subject"`
	Progress            *JobProgress  `json:"progress,omitempty"              db:"progress"`
	HeartbeatAgeSeconds *int64        `json:"heartbeat_age_seconds,omitempty" db:"heartbeat_age_seconds"`
	ThroughputPerMin    *float64      `json:"throughput_per_min,omitempty"    db:"throughput_per_min"`
	ETASeconds          *int64        `json:"eta_seconds,omitempty"           db:"eta_seconds"`
	CanRetry            bool          `json:"can_retry"                       db:"can_retry"`
	ErrorLog            []JobLogEntry `json:"error_log,omitempty"             db:"error_log"`
	StartedAt           *time.Time    `json:"started_at,omitempty"            db:"started_at"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"          db:"completed_at"`
	CreatedAt           time.Time     `json:"created_at"                      db:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"                      db:"updated_at"`
}

// Stale reports whether the job's heartbeat is older than the given bound.
// A job with no heartbeat signal is never considered stale.
func (j *Job) Stale(maxAge time.Duration) bool {
	if j == nil || j.HeartbeatAgeSeconds == nil || maxAge <= 0 {
		return false
	}
	return time.Duration(*j.HeartbeatAgeSeconds)*time.Second > maxAge
}

// LastError returns the most recent error-log message, or empty if none.
func (j *Job) LastError() string {
	if j == nil || len(j.ErrorLog) == 0 {
		return ""
	}
	return j.ErrorLog[len(j.ErrorLog)-1].Message
}

// StartJobRequest represents a request to start a new job on the authority.
type StartJobRequest struct {
	Type    JobType         `json:"type"`
	Subject string          `json:"subject"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate validates the StartJobRequest fields.
func (r *StartJobRequest) Validate() error {
	if !r.Type.Valid() {
		return errors.New("invalid job type")
	}
	if strings.TrimSpace(r.Subject) == "" {
		return errors.New("subject is required")
	}
	return nil
}

// JobStats represents counts of jobs in each status bucket.
type JobStats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Paused    int `json:"paused"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Canceled  int `json:"canceled"`
}
