package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	domainauth "github.com/sportwire/ingest-admin/internal/domain/auth"
)

// SessionResolver resolves a session ID to a live session. Implemented by
// service.AuthService.
type SessionResolver interface {
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns a middleware that requires a valid session. Any
// authenticated role passes; read-only endpoints use this directly.
func RequireAuth(auth SessionResolver) func(http.Handler) http.Handler {
	return requireSession(auth, func(*domainauth.Session) bool { return true }, "")
}

// RequireOperator returns a middleware that requires the operator or admin
// role. Job starts, resumes, and alias decisions sit behind this gate.
func RequireOperator(auth SessionResolver) func(http.Handler) http.Handler {
	return requireSession(auth, func(s *domainauth.Session) bool { return s.CanOperate() }, "operator role required")
}

// RequireAdmin returns a middleware that requires the admin role.
// Configuration changes and duplicate resolution sit behind this gate.
func RequireAdmin(auth SessionResolver) func(http.Handler) http.Handler {
	return requireSession(auth, func(s *domainauth.Session) bool { return s.IsAdmin() }, "admin role required")
}

func requireSession(
	auth SessionResolver,
	allowed func(*domainauth.Session) bool,
	denyMessage string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromRequest(r, auth)
			if session == nil {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}
			if !allowed(session) {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "insufficient_permissions",
					Err:     errors.New(denyMessage),
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), session)))
		})
	}
}

// sessionFromRequest retrieves and validates a session from the request cookie.
func sessionFromRequest(r *http.Request, auth SessionResolver) *domainauth.Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	session, err := auth.GetSession(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return session
}
