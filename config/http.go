package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://ingest.example.com").
	// Used for generating absolute URLs in failure notifications.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// DashboardPollSeconds is the refresh interval hint returned to the
	// dashboard UI for list endpoints.
	DashboardPollSeconds int `env:"HTTP_DASHBOARD_POLL_SECONDS" envDefault:"5"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.DashboardPollSeconds < 1 {
		h.DashboardPollSeconds = 1
	}
	if h.DashboardPollSeconds > 120 {
		h.DashboardPollSeconds = 120
	}
}
