package httpx

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs       *service.JobService
	Leagues    *service.LeagueService
	Teams      *service.TeamService
	Referees   *service.RefereeService
	Odds       *service.OddsService
	Duplicates *service.DuplicateService
	Strategies *service.StrategyService
	Audit      *service.AuditService

	// Auth is optional; when nil every route is open (dev deployments).
	Auth         *service.AuthService
	CookieDomain string

	// Health probe dependencies.
	DB    *sql.DB
	Cache core.CacheRepository

	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router. Read endpoints require a
// session, operational endpoints require the operator role, and
// configuration changes require admin.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	read := gate(services.Auth, RequireAuth)
	operate := gate(services.Auth, RequireOperator)
	admin := gate(services.Auth, RequireAdmin)

	registerJobRoutes(mux, &JobHandlers{Svc: services.Jobs}, read, operate)
	registerLeagueRoutes(mux, &LeagueHandlers{Svc: services.Leagues}, read, operate, admin)
	registerTeamRoutes(mux, &TeamHandlers{Svc: services.Teams}, read, operate, admin)
	registerRefereeRoutes(mux, &RefereeHandlers{Svc: services.Referees}, read, admin)
	registerOddsRoutes(mux, &OddsHandlers{Svc: services.Odds}, read, operate)
	registerDuplicateRoutes(mux, &DuplicateHandlers{Svc: services.Duplicates}, read, operate, admin)
	registerStrategyRoutes(mux, &StrategyHandlers{Svc: services.Strategies}, read, operate)

	auditHandlers := &AuditHandlers{Svc: services.Audit}
	mux.Handle("GET /api/audit", admin(http.HandlerFunc(auditHandlers.List)))

	if services.Auth != nil {
		authHandlers := &AuthHandlers{Svc: services.Auth, CookieDomain: services.CookieDomain, Logger: logger}
		mux.Handle("GET /auth/login", http.HandlerFunc(authHandlers.Login))
		mux.Handle("GET /auth/callback", http.HandlerFunc(authHandlers.Callback))
		mux.Handle("POST /auth/logout", http.HandlerFunc(authHandlers.Logout))
		mux.Handle("GET /auth/status", http.HandlerFunc(authHandlers.Status))
	}

	healthHandlers := &HealthHandlers{DB: services.DB, Cache: services.Cache}
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandlers.Live))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandlers.Live))
	mux.Handle("GET /readyz", http.HandlerFunc(healthHandlers.Ready))

	return Logging(logger)(Recover(logger)(mux))
}

// gate builds a role middleware, or a pass-through when auth is disabled.
func gate(
	auth *service.AuthService,
	factory func(SessionResolver) func(http.Handler) http.Handler,
) func(http.Handler) http.Handler {
	if auth == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return factory(auth)
}

type middleware = func(http.Handler) http.Handler

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers, read, operate middleware) {
	mux.Handle("GET /api/jobs", read(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/jobs/stats", read(http.HandlerFunc(h.Stats)))
	mux.Handle("GET /api/jobs/{id}", read(http.HandlerFunc(h.Get)))
	mux.Handle("POST /api/jobs", operate(http.HandlerFunc(h.Start)))
	mux.Handle("POST /api/jobs/{id}/resume", operate(http.HandlerFunc(h.Resume)))
	mux.Handle("GET /api/subjects/{subject}/jobs", read(http.HandlerFunc(h.History)))
	mux.Handle("GET /api/watchlist", read(http.HandlerFunc(h.Watchlist)))
	mux.Handle("DELETE /api/watchlist/{subject}", operate(http.HandlerFunc(h.Untrack)))
}

func registerLeagueRoutes(mux *http.ServeMux, h *LeagueHandlers, read, operate, admin middleware) {
	mux.Handle("GET /api/leagues", read(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/leagues/{id}", read(http.HandlerFunc(h.Get)))
	mux.Handle("PATCH /api/leagues/{id}", admin(http.HandlerFunc(h.Update)))
	mux.Handle("POST /api/leagues/{id}/deep-ingest", operate(http.HandlerFunc(h.StartDeepIngest)))
}

func registerTeamRoutes(mux *http.ServeMux, h *TeamHandlers, read, operate, admin middleware) {
	mux.Handle("GET /api/teams", read(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/teams/{id}", read(http.HandlerFunc(h.Get)))
	mux.Handle("PATCH /api/teams/{id}", admin(http.HandlerFunc(h.Update)))
	mux.Handle("GET /api/teams/{id}/aliases", read(http.HandlerFunc(h.ListAliases)))
	mux.Handle("GET /api/leagues/{id}/unmapped", read(http.HandlerFunc(h.ListUnmapped)))
	mux.Handle("GET /api/leagues/{id}/suggestions", read(http.HandlerFunc(h.Suggest)))
	mux.Handle("POST /api/aliases/accept", operate(http.HandlerFunc(h.AcceptSuggestion)))
	mux.Handle("POST /api/aliases/reject", operate(http.HandlerFunc(h.RejectSuggestion)))
}

func registerRefereeRoutes(mux *http.ServeMux, h *RefereeHandlers, read, admin middleware) {
	mux.Handle("GET /api/referees", read(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/referees/{id}", read(http.HandlerFunc(h.Get)))
	mux.Handle("PATCH /api/referees/{id}", admin(http.HandlerFunc(h.Update)))
	mux.Handle("GET /api/referees/{id}/strictness", read(http.HandlerFunc(h.Strictness)))
}

func registerOddsRoutes(mux *http.ServeMux, h *OddsHandlers, read, operate middleware) {
	mux.Handle("GET /api/odds/anomalies", read(http.HandlerFunc(h.ListAnomalies)))
	mux.Handle("GET /api/odds/anomalies/count", read(http.HandlerFunc(h.CountAnomalies)))
	mux.Handle("POST /api/odds/evaluate", operate(http.HandlerFunc(h.Evaluate)))
}

func registerDuplicateRoutes(mux *http.ServeMux, h *DuplicateHandlers, read, operate, admin middleware) {
	mux.Handle("GET /api/duplicates", read(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/leagues/{id}/duplicates/scan", operate(http.HandlerFunc(h.Scan)))
	mux.Handle("POST /api/duplicates/{id}/merge", admin(http.HandlerFunc(h.Merge)))
	mux.Handle("POST /api/duplicates/{id}/dismiss", admin(http.HandlerFunc(h.Dismiss)))
}

func registerStrategyRoutes(mux *http.ServeMux, h *StrategyHandlers, read, operate middleware) {
	mux.Handle("GET /api/strategies", read(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/strategies/{id}", read(http.HandlerFunc(h.Get)))
	mux.Handle("GET /api/strategies/{id}/runs", read(http.HandlerFunc(h.ListRuns)))
	mux.Handle("POST /api/strategies/{id}/backtest", operate(http.HandlerFunc(h.StartBacktest)))
}
