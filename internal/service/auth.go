package service

import (
	"context"
	"log/slog"

	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
	"github.com/quizdeck/quiz-api/internal/domain/model"
	apperrors "github.com/quizdeck/quiz-api/internal/errors"
	"github.com/quizdeck/quiz-api/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Users    ports.UserRepository
	Hasher   ports.PasswordHasher
	OTP      *OTPEngine
	Sessions *SessionService
	Mail     ports.MailSender
	Logger   *slog.Logger
}

// AuthService orchestrates the register / login / verify / reset /
// change-password flows by coordinating the principal source, credential
// hashing, the OTP engine, sessions, and outbound mail.
//
// Login and OTP failures deliberately collapse distinct causes into the same
// error kind so responses don't become an oracle; the precise cause is logged.
type AuthService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	otp      *OTPEngine
	sessions *SessionService
	mail     ports.MailSender
	logger   *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:    opts.Users,
		hasher:   opts.Hasher,
		otp:      opts.OTP,
		sessions: opts.Sessions,
		mail:     opts.Mail,
		logger:   logger,
	}
}

// RegisterInput carries the fields for account creation.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates an unverified account and issues an email-verification OTP.
// A duplicate email fails with Conflict.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) error {
	if len(in.Password) < 8 {
		return apperrors.ValidationField("password", "password must be at least 8 characters")
	}

	_, err := s.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return apperrors.Conflict("email already exists")
	}
	if !apperrors.IsNotFound(err) {
		return err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "hash password")
	}

	user, err := s.users.Create(ctx, &model.CreateUserRequest{
		Name:     in.Name,
		Email:    in.Email,
		Password: digest,
	})
	if err != nil {
		return err
	}

	return s.issueAndMail(ctx, user, domainauth.OTPEmailVerification)
}

// VerifyEmail consumes an EMAIL_VERIFICATION OTP and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.otp.Verify(ctx, domainauth.OTPEmailVerification, user.ID, code); err != nil {
		return err
	}
	return s.users.MarkEmailVerified(ctx, user.ID)
}

// SendVerificationEmail re-issues the email-verification OTP. An unknown email
// reads as bad credentials so the endpoint cannot be used to enumerate accounts.
func (s *AuthService) SendVerificationEmail(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.Unauthorized("invalid credentials")
		}
		return err
	}
	return s.issueAndMail(ctx, user, domainauth.OTPEmailVerification)
}

// Login checks credentials and account state and returns the principal
// snapshot for the caller to attach to a session. Unknown email, password
// mismatch, a ban, and an unverified email all surface as Unauthorized with
// distinct messages; the precise cause is only logged.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domainauth.Principal, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			s.logger.InfoContext(ctx, "login rejected", "reason", "unknown email")
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, err
	}

	if !s.hasher.Compare(password, user.Password) {
		s.logger.InfoContext(ctx, "login rejected", "reason", "password mismatch", "user_id", user.ID)
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	if user.Banned {
		s.logger.InfoContext(ctx, "login rejected", "reason", "banned", "user_id", user.ID)
		reason := "No reason provided"
		if user.BanReason != nil && *user.BanReason != "" {
			reason = *user.BanReason
		}
		return nil, apperrors.Banned(reason, user.BanExpires)
	}

	if !user.EmailVerified {
		s.logger.InfoContext(ctx, "login rejected", "reason", "email not verified", "user_id", user.ID)
		return nil, apperrors.Unauthorized("email not verified")
	}

	return user.Principal(), nil
}

// ForgotPassword issues a FORGOT_PASSWORD OTP. Unknown emails fail with NotFound.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.issueAndMail(ctx, user, domainauth.OTPForgotPassword)
}

// VerifyPasswordReset consumes the FORGOT_PASSWORD OTP; on success the engine
// records the password-reset grant.
func (s *AuthService) VerifyPasswordReset(ctx context.Context, email, code string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.otp.Verify(ctx, domainauth.OTPForgotPassword, user.ID, code)
}

// ResetPassword stores a new password for an account whose reset was verified.
// Without a live grant it fails with Unauthorized. The grant is consumed on
// success, mirroring the single-use OTP.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < 8 {
		return apperrors.ValidationField("newPassword", "password must be at least 8 characters")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	verified, err := s.otp.HasResetGrant(ctx, user.ID)
	if err != nil {
		return err
	}
	if !verified {
		return apperrors.Unauthorized("OTP not verified")
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, digest); err != nil {
		return err
	}

	return s.otp.ClearResetGrant(ctx, user.ID)
}

// ChangePasswordInput carries the fields for an authenticated password change.
type ChangePasswordInput struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
	// RevokeOtherSessions logs the subject out everywhere except the current session.
	RevokeOtherSessions bool
	CurrentSessionID    string
}

// ChangePassword verifies the current password, stores the new one, and
// optionally revokes the subject's other sessions. Returns the revoked count.
func (s *AuthService) ChangePassword(ctx context.Context, in ChangePasswordInput) (int, error) {
	if len(in.NewPassword) < 8 {
		return 0, apperrors.ValidationField("newPassword", "password must be at least 8 characters")
	}

	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return 0, apperrors.Unauthorized("invalid credentials")
		}
		return 0, err
	}

	if !s.hasher.Compare(in.CurrentPassword, user.Password) {
		return 0, apperrors.Unauthorized("invalid credentials")
	}

	digest, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, digest); err != nil {
		return 0, err
	}

	if !in.RevokeOtherSessions {
		return 0, nil
	}
	return s.sessions.RevokeAllExcept(ctx, user.ID, in.CurrentSessionID)
}

// UpdateProfile applies profile changes and returns the fresh principal
// snapshot. The caller re-issues the session record with it; live sessions
// are never mutated in place.
func (s *AuthService) UpdateProfile(
	ctx context.Context,
	userID string,
	req *model.UpdateProfileRequest,
) (*domainauth.Principal, error) {
	user, err := s.users.UpdateProfile(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	return user.Principal(), nil
}

// ListUsersResult contains one page of the admin user listing.
type ListUsersResult struct {
	Total int           `json:"total"`
	Users []*model.User `json:"users"`
}

// ListUsers returns users matching the admin listing query.
func (s *AuthService) ListUsers(ctx context.Context, q *model.ListUsersQuery) (*ListUsersResult, error) {
	users, total, err := s.users.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ListUsersResult{Total: total, Users: users}, nil
}

// SetRole changes a user's role. Admin accounts cannot be demoted through
// this path. Sessions issued before the change keep their snapshot role.
func (s *AuthService) SetRole(ctx context.Context, userID string, role domainauth.Role) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NotFoundf("user with ID %s not found", userID)
		}
		return err
	}
	if user.Role == domainauth.RoleAdmin {
		return apperrors.Validation("cannot change role of an admin user")
	}
	return s.users.UpdateRole(ctx, userID, role)
}

// issueAndMail issues an OTP for the purpose and delivers it. Mail failures
// map to a timeout-class error for the caller.
func (s *AuthService) issueAndMail(
	ctx context.Context,
	user *model.User,
	purpose domainauth.OTPPurpose,
) error {
	code, err := s.otp.Issue(ctx, purpose, user.ID)
	if err != nil {
		return err
	}

	switch purpose {
	case domainauth.OTPEmailVerification:
		err = s.mail.SendVerificationOTP(ctx, user.Email, user.Name, code)
	case domainauth.OTPForgotPassword:
		err = s.mail.SendPasswordResetOTP(ctx, user.Email, user.Name, code)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "OTP delivery failed",
			"user_id", user.ID, "purpose", string(purpose), "error", err)
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "send OTP email")
	}
	return nil
}
