package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
	"github.com/quizdeck/quiz-api/internal/domain/model"
	apperrors "github.com/quizdeck/quiz-api/internal/errors"
	"github.com/quizdeck/quiz-api/internal/service"
)

// AuthServiceInterface defines the auth orchestration operations the handlers consume.
type AuthServiceInterface interface {
	Register(ctx context.Context, in service.RegisterInput) error
	VerifyEmail(ctx context.Context, email, code string) error
	SendVerificationEmail(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*domainauth.Principal, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyPasswordReset(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
	ChangePassword(ctx context.Context, in service.ChangePasswordInput) (int, error)
	UpdateProfile(ctx context.Context, userID string, req *model.UpdateProfileRequest) (*domainauth.Principal, error)
	ListUsers(ctx context.Context, q *model.ListUsersQuery) (*service.ListUsersResult, error)
	SetRole(ctx context.Context, userID string, role domainauth.Role) error
}

// SessionServiceInterface defines the session lifecycle operations the handlers consume.
type SessionServiceInterface interface {
	Attach(ctx context.Context, p *domainauth.Principal) (string, error)
	Update(ctx context.Context, id string, p *domainauth.Principal) error
	Logout(ctx context.Context, id string) error
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	Sessions     SessionServiceInterface
	CookieDomain string
	SecureCookie bool
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles account creation.
// POST /api/auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{
		"message": "Account created. Verification OTP sent.",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates credentials, attaches a new session, and sets the
// session cookie.
// POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	sessionID, err := h.Sessions.Attach(r.Context(), user)
	if err != nil {
		WriteError(w, err)
		return
	}
	h.setSessionCookie(w, sessionID)

	WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Login successfully",
		"user":    user,
	})
}

// Logout destroys the server-side session and clears the cookie. A failed
// destroy is surfaced to the caller, not swallowed.
// POST /api/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := SessionFromContext(r.Context()); ok && sess.ID != "" {
		if err := h.Sessions.Logout(r.Context(), sess.ID); err != nil {
			h.logger().ErrorContext(r.Context(), "logout failed", slog.Any("error", err))
			WriteError(w, err)
			return
		}
	}
	h.clearSessionCookie(w)

	WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// CurrentUser returns the principal attached to the current session, or null.
// GET /api/auth/current-user.
func (h *AuthHandlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"user": CurrentUser(r.Context())})
}

type emailRequest struct {
	Email string `json:"email"`
}

// SendEmailVerification re-issues the email-verification OTP.
// POST /api/auth/send-email-verification.
func (h *AuthHandlers) SendEmailVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Svc.SendVerificationEmail(r.Context(), req.Email); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Verification email OTP sent successfully",
	})
}

// SendPasswordReset issues a password-reset OTP.
// POST /api/auth/send-password-reset.
func (h *AuthHandlers) SendPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Svc.ForgotPassword(r.Context(), req.Email); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset OTP sent successfully",
	})
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyEmail consumes an email-verification OTP.
// POST /api/auth/verify-email.
func (h *AuthHandlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Svc.VerifyEmail(r.Context(), req.Email, req.OTP); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Email verified successfully"})
}

// VerifyPasswordReset consumes a password-reset OTP.
// POST /api/auth/verify-password-reset.
func (h *AuthHandlers) VerifyPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Svc.VerifyPasswordReset(r.Context(), req.Email, req.OTP); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "OTP verified successfully"})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword sets a new password after a verified reset.
// POST /api/auth/reset-password.
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Svc.ResetPassword(r.Context(), req.Email, req.NewPassword); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

type updateUserRequest struct {
	Name  *string `json:"name"`
	Image *string `json:"image"`
}

// UpdateUser applies profile changes and re-issues the session snapshot.
// POST /api/auth/update-user.
func (h *AuthHandlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok || sess.User == nil {
		WriteError(w, apperrors.Unauthorized("not logged in"))
		return
	}

	var req updateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	updated, err := h.Svc.UpdateProfile(r.Context(), sess.User.ID, &model.UpdateProfileRequest{
		Name:  req.Name,
		Image: req.Image,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.Sessions.Update(r.Context(), sess.ID, updated); err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"message": "User updated successfully",
		"user":    updated,
	})
}

type changePasswordRequest struct {
	CurrentPassword     string `json:"currentPassword"`
	NewPassword         string `json:"newPassword"`
	RevokeOtherSessions bool   `json:"revokeOtherSessions"`
}

// ChangePassword changes the authenticated user's password, optionally
// revoking their other sessions.
// POST /api/auth/change-password.
func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok || sess.User == nil {
		WriteError(w, apperrors.Unauthorized("not logged in"))
		return
	}

	var req changePasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	revoked, err := h.Svc.ChangePassword(r.Context(), service.ChangePasswordInput{
		UserID:              sess.User.ID,
		CurrentPassword:     req.CurrentPassword,
		NewPassword:         req.NewPassword,
		RevokeOtherSessions: req.RevokeOtherSessions,
		CurrentSessionID:    sess.ID,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	message := "Password changed successfully."
	if req.RevokeOtherSessions {
		message = "Password changed successfully. All other sessions have been revoked."
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"message":         message,
		"revokedSessions": revoked,
	})
}

// AdminListUsers returns a filtered, paginated user listing.
// GET /api/auth/admin/list-users.
func (h *AuthHandlers) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := &model.ListUsersQuery{
		SearchValue:    query.Get("searchValue"),
		SearchField:    query.Get("searchField"),
		SearchOperator: query.Get("searchOperator"),
		SortBy:         query.Get("sortBy"),
		SortDirection:  query.Get("sortDirection"),
	}
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, apperrors.ValidationField("limit", "limit must be a number"))
			return
		}
		q.Limit = n
	}
	if v := query.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			WriteError(w, apperrors.ValidationField("offset", "offset must be a number"))
			return
		}
		q.Offset = n
	}

	result, err := h.Svc.ListUsers(r.Context(), q)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

type setRoleRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// AdminSetRole changes a user's role.
// POST /api/auth/admin/set-role.
func (h *AuthHandlers) AdminSetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	role := domainauth.Role(req.Role)
	if !role.Valid() {
		WriteError(w, apperrors.ValidationField("role", "role must be USER or ADMIN"))
		return
	}

	if err := h.Svc.SetRole(r.Context(), req.UserID, role); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "User role updated successfully to " + req.Role,
	})
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
