// Package watch implements the job watch client: it tracks remotely-executing
// jobs per subject, polls their status at a cadence that adapts to the
// busiest job's state, and stops polling per job on terminal completion.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sportwire/ingest-admin/internal/domain/model"
)

// ErrClosed indicates the watcher was torn down and accepts no new work.
var ErrClosed = errors.New("watcher is closed")

// ErrFetcherRequired indicates a watcher cannot be constructed without a fetcher.
var ErrFetcherRequired = errors.New("status fetcher is required")

// StatusFetcher retrieves fresh status for a job from the remote authority.
type StatusFetcher interface {
	Status(ctx context.Context, jobID string) (*model.Job, error)
}

// FinishedFunc is invoked exactly once per job that reaches a terminal
// status, synchronously from the poll cycle that observed it.
type FinishedFunc func(subject string, job *model.Job)

// Options configure a Watcher.
type Options struct {
	Fetcher    StatusFetcher // Required: remote status authority
	Config     Config        // Optional: zero values filled with defaults
	OnFinished FinishedFunc  // Optional: completion side effect
	Clock      Clock         // Optional: defaults to the system clock
	Logger     *slog.Logger  // Optional: structured logger
}

// TrackedJob is a read-only snapshot of one watch-set entry.
type TrackedJob struct {
	Subject string
	JobID   string
	// Job is the last status observed for the job, nil before the first
	// successful poll.
	Job *model.Job
	// Stale is set when the job's heartbeat age exceeds the configured
	// bound. Stale jobs keep being polled; the flag is for display.
	Stale bool
}

// Watcher owns a watch set (subject → job ID) and a single scheduling
// goroutine. At most one poll cycle is ever in flight; each cycle polls all
// tracked jobs concurrently, applies the results, and arms exactly one timer
// for the next cycle. The loop goroutine exits when the watch set drains and
// is restarted by the next Track call.
type Watcher struct {
	fetcher    StatusFetcher
	cfg        Config
	onFinished FinishedFunc
	clock      Clock
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	watched     map[string]string     // subject → job ID
	statuses    map[string]*model.Job // job ID → last observed status
	failures    map[string]int        // job ID → consecutive poll failures
	loopRunning bool
	closed      bool
}

// New constructs a Watcher from the given options.
func New(opts Options) (*Watcher, error) {
	if opts.Fetcher == nil {
		return nil, ErrFetcherRequired
	}

	cfg := opts.Config
	cfg.Sanitize()

	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_watcher")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		fetcher:    opts.Fetcher,
		cfg:        cfg,
		onFinished: opts.OnFinished,
		clock:      clock,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		watched:    make(map[string]string),
		statuses:   make(map[string]*model.Job),
		failures:   make(map[string]int),
	}, nil
}

// Track registers jobID under subject, overwriting any prior mapping for
// that subject. If no poll loop is running, one is started with the
// configured initial delay.
func (w *Watcher) Track(subject, jobID string) error {
	if subject == "" || jobID == "" {
		return errors.New("subject and job id are required")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	if prior, ok := w.watched[subject]; ok && prior != jobID {
		// The old job may still run remotely; it is simply abandoned here.
		delete(w.statuses, prior)
		delete(w.failures, prior)
	}
	w.watched[subject] = jobID

	if !w.loopRunning {
		w.loopRunning = true
		go w.loop()
	}
	return nil
}

// Untrack drops the mapping for subject, if any. The remote job keeps
// running; it is no longer observed here.
func (w *Watcher) Untrack(subject string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	jobID, ok := w.watched[subject]
	if !ok {
		return
	}
	delete(w.watched, subject)
	delete(w.statuses, jobID)
	delete(w.failures, jobID)
}

// Close tears the watcher down: the pending timer is cleared, no further
// status requests are issued, and results of requests already in flight are
// discarded. Close is idempotent.
func (w *Watcher) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cancel()
}

// Tracking reports whether subject currently has a tracked job.
func (w *Watcher) Tracking(subject string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.watched[subject]
	return ok
}

// Len returns the current watch-set size.
func (w *Watcher) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

// Snapshot returns a copy of the watch set with the last observed status and
// staleness flag per subject.
func (w *Watcher) Snapshot() []TrackedJob {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]TrackedJob, 0, len(w.watched))
	for subject, jobID := range w.watched {
		job := w.statuses[jobID]
		out = append(out, TrackedJob{
			Subject: subject,
			JobID:   jobID,
			Job:     job,
			Stale:   job.Stale(w.cfg.StaleAfter),
		})
	}
	return out
}

// loop runs poll cycles until the watch set drains or the watcher closes.
// Exactly one loop goroutine exists while loopRunning is set.
func (w *Watcher) loop() {
	delay := w.cfg.InitialDelay

	for {
		timer := w.clock.NewTimer(delay)
		select {
		case <-w.ctx.Done():
			timer.Stop()
			w.stopLoop()
			return
		case <-timer.C():
		}

		// Re-check after waking: Close may have raced the timer.
		if w.ctx.Err() != nil {
			w.stopLoop()
			return
		}

		finished := w.pollOnce()
		for _, f := range finished {
			w.notifyFinished(f)
		}

		w.mu.Lock()
		if w.closed || len(w.watched) == 0 {
			w.loopRunning = false
			w.mu.Unlock()
			return
		}
		delay = w.cfg.NextDelay(w.trackedStatusesLocked())
		w.mu.Unlock()
	}
}

func (w *Watcher) stopLoop() {
	w.mu.Lock()
	w.loopRunning = false
	w.mu.Unlock()
}

// trackedStatusesLocked collects the last observed status of every tracked
// job. Jobs not yet polled successfully contribute nothing, which biases the
// delay toward the idle tier rather than guessing.
func (w *Watcher) trackedStatusesLocked() []model.JobStatus {
	statuses := make([]model.JobStatus, 0, len(w.watched))
	for _, jobID := range w.watched {
		if job := w.statuses[jobID]; job != nil {
			statuses = append(statuses, job.Status)
		} else {
			// Unpolled jobs are assumed queued so a fresh Track keeps the
			// medium tier instead of dropping to idle.
			statuses = append(statuses, model.JobStatusQueued)
		}
	}
	return statuses
}

type finishedJob struct {
	subject string
	job     *model.Job
}

type pollResult struct {
	subject string
	jobID   string
	job     *model.Job
	err     error
}

// pollOnce fetches status for every tracked job concurrently, waits for all
// requests, then applies the results in one pass. It returns the jobs that
// reached a terminal status during this cycle.
func (w *Watcher) pollOnce() []finishedJob {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	pairs := make([]pollResult, 0, len(w.watched))
	for subject, jobID := range w.watched {
		pairs = append(pairs, pollResult{subject: subject, jobID: jobID})
	}
	w.mu.Unlock()

	if len(pairs) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(w.ctx)
	for i := range pairs {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, w.cfg.FetchTimeout)
			defer cancel()
			pairs[i].job, pairs[i].err = w.fetcher.Status(fetchCtx, pairs[i].jobID)
			// Fetch errors are handled per job; never fail the cycle.
			return nil
		})
	}
	_ = g.Wait()

	return w.applyResults(pairs)
}

// applyResults merges one cycle's responses into the watch set. Terminal
// jobs are removed; failing jobs are dropped after the configured number of
// consecutive fetch failures. Results are discarded entirely if the watcher
// closed while requests were in flight.
func (w *Watcher) applyResults(results []pollResult) []finishedJob {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	var finished []finishedJob
	for _, res := range results {
		// Skip responses for mappings that changed while the cycle ran.
		current, ok := w.watched[res.subject]
		if !ok || current != res.jobID {
			continue
		}

		if res.err != nil {
			w.failures[res.jobID]++
			if w.failures[res.jobID] >= w.cfg.MaxPollFailures {
				if w.logger != nil {
					w.logger.Warn("dropping job after poll failures",
						"subject", res.subject,
						"job_id", res.jobID,
						"failures", w.failures[res.jobID],
						"error", res.err,
					)
				}
				delete(w.watched, res.subject)
				delete(w.statuses, res.jobID)
				delete(w.failures, res.jobID)
			}
			continue
		}

		delete(w.failures, res.jobID)
		w.statuses[res.jobID] = res.job

		if res.job.Status.Terminal() {
			delete(w.watched, res.subject)
			delete(w.statuses, res.jobID)
			finished = append(finished, finishedJob{subject: res.subject, job: res.job})
		}
	}
	return finished
}

func (w *Watcher) notifyFinished(f finishedJob) {
	if w.logger != nil {
		w.logger.Info("job finished",
			"subject", f.subject,
			"job_id", f.job.ID,
			"status", f.job.Status,
		)
	}
	if w.onFinished != nil {
		w.onFinished(f.subject, f.job)
	}
}
