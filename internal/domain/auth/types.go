package auth

// Package auth contains domain-level types for identity and sessions.
// It is pure and free of framework/adapter concerns.

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// OTPPurpose scopes a one-time passcode to the flow that issued it.
// The string form is part of the cache key contract.
type OTPPurpose string

const (
	OTPEmailVerification OTPPurpose = "EMAIL_VERIFICATION"
	OTPForgotPassword    OTPPurpose = "FORGOT_PASSWORD"
)

// Principal is the subject identity attached to a session. It is an immutable
// snapshot taken at login or profile-update time; a profile change requires
// re-issuing the snapshot, never mutating it in place.
type Principal struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Role          Role    `json:"role"`
	EmailVerified bool    `json:"emailVerified"`
	Image         *string `json:"image"`
}

// Session is the server-side record persisted under `session:{id}`.
// The JSON shape {"user": {...}} is part of the cache contract; the revocation
// scan depends on it. A record with a nil User is a valid anonymous session.
type Session struct {
	ID   string     `json:"-"`
	User *Principal `json:"user,omitempty"`
}

// IsAnonymous reports whether the session carries no principal.
func (s Session) IsAnonymous() bool { return s.User == nil }
