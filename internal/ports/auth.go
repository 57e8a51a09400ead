package ports

// Package ports defines interfaces (hexagonal ports) for identity and session
// behavior. Implementations live in internal/adapters and internal/data;
// orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
	"github.com/quizdeck/quiz-api/internal/domain/model"
)

// ErrSessionNotFound is returned by SessionStore.Get when no live record
// exists for the id. Absence is not a failure: an expired session reads the
// same as one that never existed.
var ErrSessionNotFound = errors.New("session not found")

//go:generate mockgen -source=auth.go -destination=../mocks/ports/auth.go -package=portsmocks

// CacheRepository is the shared key-value store backing OTPs and sessions.
// It is the sole synchronization point between concurrent requests; per-key
// Set is atomic, which is all the OTP overwrite semantics require.
type CacheRepository interface {
	// Get retrieves a value by key. Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Returns true if the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Expire updates the TTL for an existing key. Returns true if the key exists.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Scan returns one bounded batch of keys matching pattern, starting at
	// cursor. A returned cursor of 0 means the iteration is complete. The scan
	// is a restartable lazy sequence: no call holds server-side state beyond
	// the cursor token.
	Scan(ctx context.Context, cursor uint64, pattern string, count int64) (keys []string, next uint64, err error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// SessionStore persists and retrieves session records under `session:{id}`.
type SessionStore interface {
	// Save writes the record with a fresh TTL window.
	Save(ctx context.Context, sess domainauth.Session) error

	// Get resolves a session and, on a hit, refreshes its TTL (rolling expiry).
	// A missing or expired session returns ErrSessionNotFound.
	Get(ctx context.Context, id string) (domainauth.Session, error)

	// Delete destroys the record synchronously.
	Delete(ctx context.Context, id string) error
}

// PasswordHasher is the credential store primitive.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Compare reports whether plaintext matches digest. A mismatch is not an error.
	Compare(plaintext, digest string) bool
}

// MailSender delivers OTP codes out of band. Delivery failures map to a
// timeout-class error at the orchestrator.
type MailSender interface {
	SendVerificationOTP(ctx context.Context, email, name, code string) error
	SendPasswordResetOTP(ctx context.Context, email, name, code string) error
}

// UserRepository is the principal source (persistence). Lookup misses return
// a not-found AppError, never a nil user with nil error.
type UserRepository interface {
	Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	MarkEmailVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, digest string) error
	UpdateRole(ctx context.Context, id string, role domainauth.Role) error
	UpdateProfile(ctx context.Context, id string, req *model.UpdateProfileRequest) (*model.User, error)
	List(ctx context.Context, q *model.ListUsersQuery) ([]*model.User, int, error)
}
