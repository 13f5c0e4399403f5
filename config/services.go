package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server (which hosts the job watch client).
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeScheduler runs the metrics-sync scheduler.
	ServiceModeScheduler ServiceMode = "scheduler"
	// ServiceModeReaper runs the mirror reaper for cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeScheduler,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeScheduler, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, scheduler, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// SchedulerConfig contains metrics-sync scheduler configuration.
type SchedulerConfig struct {
	// Interval is the scheduler tick interval.
	Interval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"5m"`

	// BatchSize is the maximum number of leagues to enqueue per tick.
	BatchSize int `env:"SCHEDULER_BATCH_SIZE" envDefault:"25"`

	// SyncMaxAge is how old a league's last metrics sync may be before the
	// scheduler enqueues a new metrics_sync job for it.
	SyncMaxAge time.Duration `env:"SCHEDULER_SYNC_MAX_AGE" envDefault:"24h"`
}

// Sanitize applies guardrails to scheduler configuration values.
func (s *SchedulerConfig) Sanitize() {
	if s.Interval < 30*time.Second {
		s.Interval = 30 * time.Second
	}
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
	if s.SyncMaxAge < time.Hour {
		s.SyncMaxAge = time.Hour
	}
}

// ReaperConfig contains mirror reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// StaleMaxAge is the maximum time a mirrored job may stay non-terminal
	// without a refresh before the reaper marks it failed locally.
	StaleMaxAge time.Duration `env:"REAPER_STALE_MAX_AGE" envDefault:"1h"`

	// SucceededMaxAge is the maximum age for succeeded mirror rows before deletion.
	SucceededMaxAge time.Duration `env:"REAPER_SUCCEEDED_MAX_AGE" envDefault:"168h"` // 7 days

	// FailedMaxAge is the maximum age for failed mirror rows before deletion.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"168h"` // 7 days

	// AuditMaxAge is the maximum age for audit log rows before deletion.
	AuditMaxAge time.Duration `env:"REAPER_AUDIT_MAX_AGE" envDefault:"2160h"` // 90 days

	// BatchSize is the maximum number of rows to process per operation.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	// Enforce minimum intervals to prevent excessive database load
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.StaleMaxAge < 5*time.Minute {
		r.StaleMaxAge = 5 * time.Minute
	}
	if r.SucceededMaxAge < 1*time.Hour {
		r.SucceededMaxAge = 1 * time.Hour
	}
	if r.FailedMaxAge < 1*time.Hour {
		r.FailedMaxAge = 1 * time.Hour
	}
	if r.AuditMaxAge < 24*time.Hour {
		r.AuditMaxAge = 24 * time.Hour
	}

	// Enforce batch size bounds to prevent excessive locks or inefficiency
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}

// DuplicatesConfig contains duplicate fixture detection configuration.
type DuplicatesConfig struct {
	// Window bounds the kickoff range scanned for duplicate candidates,
	// centered on now.
	Window time.Duration `env:"DUPLICATES_WINDOW" envDefault:"72h"`

	// KickoffBucket is the truncation applied to kickoff times when grouping
	// candidate fixtures.
	KickoffBucket time.Duration `env:"DUPLICATES_KICKOFF_BUCKET" envDefault:"1h"`

	// MinConfidence filters out weak candidate pairs before persisting.
	MinConfidence float64 `env:"DUPLICATES_MIN_CONFIDENCE" envDefault:"0.5"`
}

// Sanitize applies guardrails to duplicates configuration values.
func (d *DuplicatesConfig) Sanitize() {
	if d.Window <= 0 {
		d.Window = 72 * time.Hour
	}
	if d.KickoffBucket <= 0 {
		d.KickoffBucket = time.Hour
	}
	if d.MinConfidence < 0 || d.MinConfidence > 1 {
		d.MinConfidence = 0.5
	}
}

// OddsConfig contains odds anomaly detection configuration.
type OddsConfig struct {
	// StaleQuoteAfter is the quote age beyond which the stale-quote rule fires.
	StaleQuoteAfter time.Duration `env:"ODDS_STALE_QUOTE_AFTER" envDefault:"30m"`
}

// Sanitize applies guardrails to odds configuration values.
func (o *OddsConfig) Sanitize() {
	if o.StaleQuoteAfter <= 0 {
		o.StaleQuoteAfter = 30 * time.Minute
	}
}
