package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
)

// SessionCookieName is the cookie carrying the opaque session identifier.
const SessionCookieName = "session_id"

// SessionResolver resolves a session id to its principal snapshot.
// A nil principal with nil error means "never logged in".
type SessionResolver interface {
	Resolve(ctx context.Context, id string) (*domainauth.Principal, error)
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

// WithSession returns a middleware that resolves the session cookie, if any,
// and attaches the request session to the context. Resolution happens once
// per request; guards downstream read from the context only. A resolve
// failure is treated as no session rather than failing the request.
func WithSession(sessions SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &RequestSession{}
			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				sess.ID = cookie.Value
				user, err := sessions.Resolve(r.Context(), cookie.Value)
				if err != nil {
					logger.WarnContext(r.Context(), "session resolution failed",
						slog.Any("error", err))
				}
				sess.User = user
			}
			ctx := SetSessionInContext(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles returns a middleware enforcing the route's declared role
// requirement using the domain RBAC predicate. An empty set only requires the
// middleware chain, not authentication. Unauthenticated requests yield 401,
// authenticated-but-unpermitted ones 403.
func RequireRoles(roles ...domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := domainauth.Authorize(roles, CurrentUser(r.Context())); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth is RequireRoles with any authenticated principal accepted.
func RequireAuth() func(http.Handler) http.Handler {
	return RequireRoles(domainauth.RoleUser, domainauth.RoleAdmin)
}
