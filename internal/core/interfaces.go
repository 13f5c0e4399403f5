package core

import (
	"context"
	"time"

	"github.com/sportwire/ingest-admin/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// JobAuthority defines the outbound contract with the remote job system that
// actually executes ingest, metrics, and backtest work. The admin service
// never runs jobs itself; it starts, resumes, and observes them here.
type JobAuthority interface {
	Status(ctx context.Context, jobID string) (*model.Job, error)
	// Start submits a new job and returns the authority-assigned job ID.
	Start(ctx context.Context, req *model.StartJobRequest) (string, error)
	// Resume asks the authority to continue a paused or retryable job and
	// returns the job ID now tracking that work.
	Resume(ctx context.Context, jobID string) (string, error)
}

// JobRepository defines the interface for the local job mirror. Rows here are
// observations of authority state, refreshed by the watch client.
type JobRepository interface {
	Upsert(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error)
	ListBySubject(ctx context.Context, opts model.JobListBySubjectOptions) ([]*model.Job, error)
	Stats(ctx context.Context) (*model.JobStats, error)
	LatestForSubject(ctx context.Context, subject string) (*model.Job, error)
}

// LeagueRepository defines the interface for league data operations.
type LeagueRepository interface {
	GetByID(ctx context.Context, id string) (*model.League, error)
	List(ctx context.Context, opts model.LeaguesListOptions) ([]*model.League, error)
	Update(ctx context.Context, id string, patch model.LeaguePatch) (*model.League, error)
	MarkDeepIngest(ctx context.Context, id string, at time.Time) error
	MarkMetricsSync(ctx context.Context, id string, at time.Time) error
	ListDueForMetricsSync(ctx context.Context, olderThan time.Duration, limit int) ([]*model.League, error)
	CurrentSeason(ctx context.Context, leagueID string) (*model.Season, error)
}

// TeamRepository defines the interface for team and alias data operations.
type TeamRepository interface {
	GetByID(ctx context.Context, id string) (*model.Team, error)
	List(ctx context.Context, opts model.TeamsListOptions) ([]*model.Team, error)
	ListByLeague(ctx context.Context, leagueID string) ([]*model.Team, error)
	Update(ctx context.Context, id string, patch model.TeamPatch) (*model.Team, error)
	AddAlias(ctx context.Context, alias *model.TeamAlias) (*model.TeamAlias, error)
	ListAliases(ctx context.Context, teamID string) ([]*model.TeamAlias, error)
	ListUnmapped(ctx context.Context, leagueID string, limit int) ([]*model.UnmappedName, error)
	DeleteUnmapped(ctx context.Context, provider, name string) (bool, error)
}

// RefereeRepository defines the interface for referee data operations.
type RefereeRepository interface {
	GetByID(ctx context.Context, id string) (*model.Referee, error)
	List(ctx context.Context, opts model.RefereesListOptions) ([]*model.Referee, error)
	Update(ctx context.Context, id string, patch model.RefereePatch) (*model.Referee, error)
	// LeagueBaseline returns the per-match discipline averages across every
	// referee that officiated in the league, for strictness normalization.
	LeagueBaseline(ctx context.Context, leagueID string) (*model.StrictnessComponents, error)
}

// MatchRepository defines the read-side interface over ingested fixtures.
type MatchRepository interface {
	GetByID(ctx context.Context, id string) (*model.Match, error)
	// ListRecent returns fixtures with kickoff inside [now-window, now+window],
	// the candidate set for duplicate detection.
	ListRecent(ctx context.Context, leagueID string, window time.Duration) ([]*model.Match, error)
}

// DuplicateRepository defines the interface for duplicate review data operations.
type DuplicateRepository interface {
	GetByID(ctx context.Context, id string) (*model.MatchDuplicate, error)
	List(ctx context.Context, opts model.DuplicatesListOptions) ([]*model.MatchDuplicate, error)
	Insert(ctx context.Context, dup *model.MatchDuplicate) (*model.MatchDuplicate, error)
	Resolve(ctx context.Context, params ResolveDuplicateParams) (*model.MatchDuplicate, error)
}

// ResolveDuplicateParams groups parameters for DuplicateRepository.Resolve.
type ResolveDuplicateParams struct {
	ID         string
	Status     model.DuplicateStatus
	ResolvedBy string
}

// OddsRepository defines the interface for odds anomaly data operations.
type OddsRepository interface {
	InsertAnomaly(ctx context.Context, anomaly *model.OddsAnomaly) (*model.OddsAnomaly, error)
	ListAnomalies(ctx context.Context, opts model.AnomaliesListOptions) ([]*model.OddsAnomaly, error)
	CountAnomalies(ctx context.Context, opts model.AnomaliesListOptions) (int, error)
}

// AuditRepository defines the interface for the admin audit log.
type AuditRepository interface {
	Insert(ctx context.Context, entry *model.AuditEntry) error
	List(ctx context.Context, opts model.AuditListOptions) ([]*model.AuditEntry, error)
	DeleteOld(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

// StrategyRepository defines the interface for strategy-lab data operations.
type StrategyRepository interface {
	GetByID(ctx context.Context, id string) (*model.Strategy, error)
	List(ctx context.Context, opts model.StrategiesListOptions) ([]*model.Strategy, error)
	InsertRun(ctx context.Context, run *model.BacktestRun) (*model.BacktestRun, error)
	GetRunByJobID(ctx context.Context, jobID string) (*model.BacktestRun, error)
	FinishRun(ctx context.Context, params FinishBacktestRunParams) (*model.BacktestRun, error)
	ListRuns(ctx context.Context, strategyID string, limit int) ([]*model.BacktestRun, error)
}

// FinishBacktestRunParams groups parameters for StrategyRepository.FinishRun.
type FinishBacktestRunParams struct {
	JobID   string
	Status  model.JobStatus
	Summary []byte
}

// FailStaleJobsParams groups parameters for ReaperRepository.FailStaleJobs.
type FailStaleJobsParams struct {
	MaxAge    time.Duration
	BatchSize int
}

// DeleteOldJobsParams groups parameters for ReaperRepository.DeleteOldJobs.
type DeleteOldJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines the interface for mirror cleanup operations.
type ReaperRepository interface {
	// FailStaleJobs marks mirrored jobs that are still non-terminal but have
	// not been refreshed for maxAge as failed. The authority is the source of
	// truth; this only prevents abandoned rows from looking live forever.
	// Processes up to batchSize jobs per call to prevent long locks.
	// Returns the number of jobs marked as failed.
	FailStaleJobs(ctx context.Context, params FailStaleJobsParams) (int64, error)

	// DeleteOldJobs deletes mirrored jobs with the given status older than
	// maxAge. Processes up to batchSize jobs per call to prevent long locks.
	// Returns the number of jobs deleted.
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)
}
