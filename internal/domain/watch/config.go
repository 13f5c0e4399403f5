package watch

import (
	"time"

	"github.com/sportwire/ingest-admin/internal/domain/model"
)

// Default cadence tiers. The ordering (running < waiting < idle) is a
// contract; the exact values are tunable.
const (
	DefaultInitialDelay    = 1500 * time.Millisecond
	DefaultRunningInterval = 1500 * time.Millisecond
	DefaultWaitingInterval = 5 * time.Second
	DefaultIdleInterval    = 10 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
	DefaultStaleAfter      = 2 * time.Minute
	DefaultMaxPollFailures = 1
)

// Config tunes the watcher's cadence and failure handling.
type Config struct {
	// InitialDelay is the wait before the first poll after Track, giving the
	// remote job time to leave the queued state.
	InitialDelay time.Duration

	// RunningInterval is the fast tier used while any tracked job is running.
	RunningInterval time.Duration

	// WaitingInterval is the medium tier used while jobs are queued or paused.
	WaitingInterval time.Duration

	// IdleInterval is the slow tier used when no tracked job is in a known
	// active state.
	IdleInterval time.Duration

	// FetchTimeout bounds each per-job status request so a hung request
	// cannot delay the next scheduling decision indefinitely.
	FetchTimeout time.Duration

	// StaleAfter is the heartbeat age beyond which a job is flagged stale.
	// Stale jobs are never auto-terminated; the flag is display-only.
	StaleAfter time.Duration

	// MaxPollFailures is the number of consecutive fetch failures tolerated
	// per job before its mapping is dropped.
	MaxPollFailures int
}

// Sanitize fills zero values with defaults and restores the tier ordering if
// configuration inverted it.
func (c *Config) Sanitize() {
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.RunningInterval <= 0 {
		c.RunningInterval = DefaultRunningInterval
	}
	if c.WaitingInterval <= 0 {
		c.WaitingInterval = DefaultWaitingInterval
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = DefaultIdleInterval
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.MaxPollFailures <= 0 {
		c.MaxPollFailures = DefaultMaxPollFailures
	}

	// A watcher must never poll less often for a running job than for a
	// waiting or idle one.
	if c.WaitingInterval < c.RunningInterval {
		c.WaitingInterval = c.RunningInterval
	}
	if c.IdleInterval < c.WaitingInterval {
		c.IdleInterval = c.WaitingInterval
	}
}

// NextDelay is a pure function of the statuses of all still-tracked jobs:
// the fastest applicable tier wins.
func (c Config) NextDelay(statuses []model.JobStatus) time.Duration {
	anyWaiting := false
	for _, s := range statuses {
		if s == model.JobStatusRunning {
			return c.RunningInterval
		}
		if s.Waiting() {
			anyWaiting = true
		}
	}
	if anyWaiting {
		return c.WaitingInterval
	}
	return c.IdleInterval
}
