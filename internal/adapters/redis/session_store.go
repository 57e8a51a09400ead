package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
	"github.com/quizdeck/quiz-api/internal/ports"
)

// SessionKeyPrefix namespaces session records in the shared cache. The prefix
// is part of the operational contract: the revocation scan enumerates
// `session:*` and derives session ids by stripping it.
const SessionKeyPrefix = "session:"

// SessionStore is a Redis-based session store with rolling expiry: every
// successful Get pushes the record's TTL out by a full window, so a session
// only dies after a TTL-length gap in traffic.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewSessionStore creates a Redis session store with the given TTL window.
func NewSessionStore(client redis.UniversalClient, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: SessionKeyPrefix,
		ttl:    ttl,
	}
}

// Save writes the session record with a fresh TTL window.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.client.Set(ctx, s.prefix+sess.ID, data, s.ttl).Err()
}

// Get resolves a session and refreshes its TTL. A missing or expired record
// returns ports.ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}

	key := s.prefix + id
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, ports.ErrSessionNotFound
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}
	sess.ID = id

	// Rolling expiry: a hit extends the record's lifetime by the full window.
	// Losing the race against expiry here is harmless; the next Get misses.
	if expireErr := s.client.Expire(ctx, key, s.ttl).Err(); expireErr != nil {
		return domainauth.Session{}, fmt.Errorf("refresh session ttl: %w", expireErr)
	}

	return sess, nil
}

// Delete destroys the session record.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil // Nothing to delete
	}

	return s.client.Del(ctx, s.prefix+id).Err()
}
