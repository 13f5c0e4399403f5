//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

// JobListOptions groups parameters for listing tracked jobs with optional filters (admin view).
type JobListOptions struct {
	Status    *JobStatus // Optional filter by status (queued, running, paused, succeeded, failed, canceled)
	Type      *JobType   // Optional filter by type (deep_ingest, metrics_sync, backtest, other)
	Subject   *string    // Optional filter by subject key (e.g. "season:42")
	SortBy    string     // Sort field: "created_at", "status", "type" (default: "created_at")
	SortOrder string     // Sort order: "asc", "desc" (default: "desc")
	Limit     int        // Pagination limit
	Offset    int        // Pagination offset
}

// JobListBySubjectOptions groups parameters for listing the job history of one subject.
type JobListBySubjectOptions struct {
	Subject string
	Limit   int
	Offset  int
}
