package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	redisadapter "github.com/quizdeck/quiz-api/internal/adapters/redis"
	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
	apperrors "github.com/quizdeck/quiz-api/internal/errors"
	"github.com/quizdeck/quiz-api/internal/ports"
)

// DefaultRevocationScanCount is the per-round-trip key batch size for the
// revocation scan.
const DefaultRevocationScanCount = 100

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Store     ports.SessionStore
	Cache     ports.CacheRepository
	ScanCount int64
	Logger    *slog.Logger
}

// SessionService manages session lifecycle on top of the shared cache:
// attach, resolve (rolling expiry), logout, and bulk revocation.
type SessionService struct {
	store     ports.SessionStore
	cache     ports.CacheRepository
	scanCount int64
	logger    *slog.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(opts SessionServiceOptions) *SessionService {
	scanCount := opts.ScanCount
	if scanCount <= 0 {
		scanCount = DefaultRevocationScanCount
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		store:     opts.Store,
		cache:     opts.Cache,
		scanCount: scanCount,
		logger:    logger,
	}
}

// Attach creates a session record carrying the principal snapshot and returns
// the new opaque session id.
func (s *SessionService) Attach(ctx context.Context, p *domainauth.Principal) (string, error) {
	id := uuid.NewString()
	sess := domainauth.Session{ID: id, User: p}
	if err := s.store.Save(ctx, sess); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "save session")
	}
	return id, nil
}

// Update re-issues the principal snapshot for an existing session, e.g. after
// a profile change.
func (s *SessionService) Update(ctx context.Context, id string, p *domainauth.Principal) error {
	if err := s.store.Save(ctx, domainauth.Session{ID: id, User: p}); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "update session")
	}
	return nil
}

// Resolve returns the principal for a session id, or nil when the session is
// missing, expired, or anonymous. Absence is "never logged in", not an error.
// A hit refreshes the record's TTL via the store's rolling expiry.
func (s *SessionService) Resolve(ctx context.Context, id string) (*domainauth.Principal, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "resolve session")
	}
	return sess.User, nil
}

// Logout destroys the session record synchronously. A failed destroy is
// surfaced, never silently ignored.
func (s *SessionService) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "destroy session")
	}
	return nil
}

// RevokeAllExcept deletes every session belonging to subjectID other than
// exceptSessionID and returns how many were removed.
//
// The whole `session:*` keyspace is walked with a cursor-based bounded scan;
// each batch is an independent cache round-trip, so a long revocation
// interleaves safely with unrelated logins. The result is eventually
// consistent: a session created after the cursor passed its slot may survive.
// The operation is idempotent and safe to re-invoke.
func (s *SessionService) RevokeAllExcept(
	ctx context.Context,
	subjectID string,
	exceptSessionID string,
) (int, error) {
	pattern := redisadapter.SessionKeyPrefix + "*"
	revoked := 0
	var cursor uint64

	for {
		keys, next, err := s.cache.Scan(ctx, cursor, pattern, s.scanCount)
		if err != nil {
			return revoked, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "scan sessions")
		}

		for _, key := range keys {
			n, err := s.revokeIfOwned(ctx, key, subjectID, exceptSessionID)
			if err != nil {
				return revoked, err
			}
			revoked += n
		}

		cursor = next
		if cursor == 0 {
			return revoked, nil
		}
	}
}

// revokeIfOwned evaluates one scanned key. A record that fails to deserialize
// is logged and skipped so one corrupt entry cannot block revocation of the
// rest of the keyspace.
func (s *SessionService) revokeIfOwned(
	ctx context.Context,
	key string,
	subjectID string,
	exceptSessionID string,
) (int, error) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "read session")
	}
	if raw == nil {
		// Expired between scan and read.
		return 0, nil
	}

	var sess domainauth.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		s.logger.WarnContext(ctx, "skipping corrupt session record",
			slog.String("key", key), slog.Any("error", err))
		return 0, nil
	}
	if sess.User == nil || sess.User.ID != subjectID {
		return 0, nil
	}

	sessionID := strings.TrimPrefix(key, redisadapter.SessionKeyPrefix)
	if sessionID == exceptSessionID {
		return 0, nil
	}

	deleted, err := s.cache.Delete(ctx, key)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "delete session")
	}
	if !deleted {
		return 0, nil
	}
	return 1, nil
}
