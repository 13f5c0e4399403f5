package config

import (
	"errors"
	"strings"
	"time"
)

// AuthorityConfig contains configuration for the remote job authority client.
// The authority is the system that actually executes ingest, metrics, and
// backtest jobs; this service only starts, resumes, and observes them.
type AuthorityConfig struct {
	// BaseURL is the root URL of the job authority API.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:9090"`

	// Token is the bearer token presented on every authority request.
	Token string `env:"TOKEN"`

	// Timeout bounds each authority HTTP request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to authority configuration values.
func (a *AuthorityConfig) Sanitize() {
	a.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	a.Token = strings.TrimSpace(a.Token)
	if a.Timeout <= 0 {
		a.Timeout = 10 * time.Second
	}
}

// Validate reports whether the configuration is usable.
func (a *AuthorityConfig) Validate() error {
	if a.BaseURL == "" {
		return errors.New("authority base url is required")
	}
	return nil
}
