package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
	"github.com/quizdeck/quiz-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth     *service.AuthService
	Sessions *service.SessionService
	// Health checks keyed by dependency name (e.g. "postgres", "redis").
	Health       map[string]HealthChecker
	CookieDomain string
	SecureCookie bool
	Logger       *slog.Logger
}

// NewRouter creates and configures a new HTTP router with session middleware.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		Sessions:     services.Sessions,
		CookieDomain: services.CookieDomain,
		SecureCookie: services.SecureCookie,
		Logger:       services.Logger,
	}
	healthHandlers := &HealthHandlers{Checks: services.Health}

	registerAuthRoutes(mux, authHandlers)
	registerAdminRoutes(mux, authHandlers)
	registerHealthRoutes(mux, healthHandlers)

	var handler http.Handler = mux
	handler = WithSession(services.Sessions, services.Logger)(handler)
	handler = Logging(services.Logger)(handler)
	handler = Recover(services.Logger)(handler)
	return handler
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/send-email-verification", h.SendEmailVerification)
	mux.HandleFunc("POST /api/auth/verify-email", h.VerifyEmail)
	mux.HandleFunc("POST /api/auth/send-password-reset", h.SendPasswordReset)
	mux.HandleFunc("POST /api/auth/verify-password-reset", h.VerifyPasswordReset)
	mux.HandleFunc("POST /api/auth/reset-password", h.ResetPassword)
	mux.HandleFunc("GET /api/auth/current-user", h.CurrentUser)

	authOnly := RequireAuth()
	mux.Handle("POST /api/auth/logout", authOnly(http.HandlerFunc(h.Logout)))
	mux.Handle("POST /api/auth/update-user", authOnly(http.HandlerFunc(h.UpdateUser)))
	mux.Handle("POST /api/auth/change-password", authOnly(http.HandlerFunc(h.ChangePassword)))
}

func registerAdminRoutes(mux *http.ServeMux, h *AuthHandlers) {
	adminOnly := RequireRoles(domainauth.RoleAdmin)
	mux.Handle("GET /api/auth/admin/list-users", adminOnly(http.HandlerFunc(h.AdminListUsers)))
	mux.Handle("POST /api/auth/admin/set-role", adminOnly(http.HandlerFunc(h.AdminSetRole)))
}

func registerHealthRoutes(mux *http.ServeMux, h *HealthHandlers) {
	mux.HandleFunc("GET /healthz", h.Live)
	mux.HandleFunc("HEAD /healthz", h.Live)
	mux.HandleFunc("GET /readyz", h.Ready)
}
