package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisadapter "github.com/quizdeck/quiz-api/internal/adapters/redis"
	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
	"github.com/quizdeck/quiz-api/internal/testutil"
)

func newTestSessionService(t *testing.T, scanCount int64) (*SessionService, *miniredis.Miniredis) {
	t.Helper()
	mr, client := testutil.NewTestRedis(t)
	svc := NewSessionService(SessionServiceOptions{
		Store:     redisadapter.NewSessionStore(client, time.Hour),
		Cache:     redisadapter.NewCacheRepo(client),
		ScanCount: scanCount,
		Logger:    slog.Default(),
	})
	return svc, mr
}

func principalFor(id string) *domainauth.Principal {
	return &domainauth.Principal{
		ID:    id,
		Name:  "User " + id,
		Email: id + "@example.com",
		Role:  domainauth.RoleUser,
	}
}

func TestSessionService_AttachResolve(t *testing.T) {
	svc, _ := newTestSessionService(t, 0)
	ctx := context.Background()

	id, err := svc.Attach(ctx, principalFor("u1"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	p, err := svc.Resolve(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "u1", p.ID)
}

func TestSessionService_AttachIssuesDistinctIDs(t *testing.T) {
	svc, _ := newTestSessionService(t, 0)
	ctx := context.Background()

	a, err := svc.Attach(ctx, principalFor("u1"))
	require.NoError(t, err)
	b, err := svc.Attach(ctx, principalFor("u1"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSessionService_ResolveAbsenceIsNotAnError(t *testing.T) {
	svc, _ := newTestSessionService(t, 0)
	ctx := context.Background()

	p, err := svc.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = svc.Resolve(ctx, "never-issued")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSessionService_ResolveExpired(t *testing.T) {
	svc, mr := newTestSessionService(t, 0)
	ctx := context.Background()

	id, err := svc.Attach(ctx, principalFor("u1"))
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	p, err := svc.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSessionService_UpdateReissuesSnapshot(t *testing.T) {
	svc, _ := newTestSessionService(t, 0)
	ctx := context.Background()

	id, err := svc.Attach(ctx, principalFor("u1"))
	require.NoError(t, err)

	updated := principalFor("u1")
	updated.Name = "Renamed"
	require.NoError(t, svc.Update(ctx, id, updated))

	p, err := svc.Resolve(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Renamed", p.Name)
}

func TestSessionService_Logout(t *testing.T) {
	svc, _ := newTestSessionService(t, 0)
	ctx := context.Background()

	id, err := svc.Attach(ctx, principalFor("u1"))
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, id))

	p, err := svc.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, p)

	// Idempotent, and an empty id is a no-op.
	assert.NoError(t, svc.Logout(ctx, id))
	assert.NoError(t, svc.Logout(ctx, ""))
}

func TestSessionService_RevokeAllExcept(t *testing.T) {
	svc, _ := newTestSessionService(t, 0)
	ctx := context.Background()

	current, err := svc.Attach(ctx, principalFor("u1"))
	require.NoError(t, err)
	other, err := svc.Attach(ctx, principalFor("u1"))
	require.NoError(t, err)
	foreign, err := svc.Attach(ctx, principalFor("u2"))
	require.NoError(t, err)

	revoked, err := svc.RevokeAllExcept(ctx, "u1", current)
	require.NoError(t, err)
	assert.Equal(t, 1, revoked)

	// The current session and the other user's session survive.
	p, err := svc.Resolve(ctx, current)
	require.NoError(t, err)
	assert.NotNil(t, p)

	p, err = svc.Resolve(ctx, foreign)
	require.NoError(t, err)
	assert.NotNil(t, p)

	p, err = svc.Resolve(ctx, other)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSessionService_RevokeAllExcept_ManyBatches(t *testing.T) {
	// A scan count far below the key count forces multiple cursor round-trips.
	svc, _ := newTestSessionService(t, 10)
	ctx := context.Background()

	current, err := svc.Attach(ctx, principalFor("u1"))
	require.NoError(t, err)

	for i := 0; i < 120; i++ {
		_, err := svc.Attach(ctx, principalFor("u1"))
		require.NoError(t, err)
	}

	revoked, err := svc.RevokeAllExcept(ctx, "u1", current)
	require.NoError(t, err)
	assert.Equal(t, 120, revoked)

	p, err := svc.Resolve(ctx, current)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestSessionService_RevokeAllExcept_SkipsCorruptRecords(t *testing.T) {
	svc, mr := newTestSessionService(t, 0)
	ctx := context.Background()

	current, err := svc.Attach(ctx, principalFor("u1"))
	require.NoError(t, err)
	_, err = svc.Attach(ctx, principalFor("u1"))
	require.NoError(t, err)

	// A corrupt record in the keyspace must not block revocation.
	require.NoError(t, mr.Set("session:corrupt", "{not valid json"))

	revoked, err := svc.RevokeAllExcept(ctx, "u1", current)
	require.NoError(t, err)
	assert.Equal(t, 1, revoked)

	// The corrupt record is skipped, not deleted.
	assert.True(t, mr.Exists("session:corrupt"))
}

func TestSessionService_RevokeAllExcept_SkipsAnonymous(t *testing.T) {
	svc, mr := newTestSessionService(t, 0)
	ctx := context.Background()

	require.NoError(t, mr.Set("session:anon", `{"user":null}`))

	revoked, err := svc.RevokeAllExcept(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 0, revoked)
	assert.True(t, mr.Exists("session:anon"))
}

func TestSessionService_RevokeAllExcept_NoSessions(t *testing.T) {
	svc, _ := newTestSessionService(t, 0)

	revoked, err := svc.RevokeAllExcept(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 0, revoked)
}

func TestSessionService_RevokeAllExcept_IgnoresNonSessionKeys(t *testing.T) {
	svc, mr := newTestSessionService(t, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("otp:EMAIL_VERIFICATION:u%d", i), "ABC123"))
	}
	_, err := svc.Attach(ctx, principalFor("u1"))
	require.NoError(t, err)

	revoked, err := svc.RevokeAllExcept(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, revoked)

	for i := 0; i < 5; i++ {
		assert.True(t, mr.Exists(fmt.Sprintf("otp:EMAIL_VERIFICATION:u%d", i)))
	}
}
