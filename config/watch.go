package config

import (
	"time"

	"github.com/sportwire/ingest-admin/internal/domain/watch"
)

// WatchConfig contains job watch client cadence configuration.
// Values map onto watch.Config; zero values fall back to that
// package's defaults.
type WatchConfig struct {
	// InitialDelay is the wait before the first poll after tracking a job.
	InitialDelay time.Duration `env:"WATCH_INITIAL_DELAY" envDefault:"1500ms"`

	// RunningInterval is the fast polling tier used while any job is running.
	RunningInterval time.Duration `env:"WATCH_RUNNING_INTERVAL" envDefault:"1500ms"`

	// WaitingInterval is the medium tier used while jobs are queued or paused.
	WaitingInterval time.Duration `env:"WATCH_WAITING_INTERVAL" envDefault:"5s"`

	// IdleInterval is the slow tier used when no job is in a known active state.
	IdleInterval time.Duration `env:"WATCH_IDLE_INTERVAL" envDefault:"10s"`

	// FetchTimeout bounds each per-job status request.
	FetchTimeout time.Duration `env:"WATCH_FETCH_TIMEOUT" envDefault:"10s"`

	// StaleAfter is the heartbeat age beyond which a job is flagged stale.
	StaleAfter time.Duration `env:"WATCH_STALE_AFTER" envDefault:"2m"`

	// MaxPollFailures is the number of consecutive fetch failures tolerated
	// per job before its watch-set mapping is dropped.
	MaxPollFailures int `env:"WATCH_MAX_POLL_FAILURES" envDefault:"1"`
}

// Sanitize applies guardrails to watch configuration values.
func (w *WatchConfig) Sanitize() {
	cfg := w.Domain()
	cfg.Sanitize()
	w.InitialDelay = cfg.InitialDelay
	w.RunningInterval = cfg.RunningInterval
	w.WaitingInterval = cfg.WaitingInterval
	w.IdleInterval = cfg.IdleInterval
	w.FetchTimeout = cfg.FetchTimeout
	w.StaleAfter = cfg.StaleAfter
	w.MaxPollFailures = cfg.MaxPollFailures
}

// Domain converts the env-backed config into the watch package's Config.
func (w WatchConfig) Domain() watch.Config {
	return watch.Config{
		InitialDelay:    w.InitialDelay,
		RunningInterval: w.RunningInterval,
		WaitingInterval: w.WaitingInterval,
		IdleInterval:    w.IdleInterval,
		FetchTimeout:    w.FetchTimeout,
		StaleAfter:      w.StaleAfter,
		MaxPollFailures: w.MaxPollFailures,
	}
}
