package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
	"github.com/quizdeck/quiz-api/internal/ports"
	"github.com/quizdeck/quiz-api/internal/testutil"
)

func testPrincipal() *domainauth.Principal {
	return &domainauth.Principal{
		ID:            "u1",
		Name:          "Bob",
		Email:         "bob@example.com",
		Role:          domainauth.RoleUser,
		EmailVerified: true,
	}
}

func TestSessionStore_SaveGet(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	sess := domainauth.Session{ID: "s1", User: testPrincipal()}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	require.NotNil(t, got.User)
	assert.Equal(t, "u1", got.User.ID)
	assert.Equal(t, domainauth.RoleUser, got.User.Role)
	assert.True(t, got.User.EmailVerified)
}

func TestSessionStore_RecordShape(t *testing.T) {
	// The stored JSON wraps the principal under "user" and omits the id;
	// the key carries it.
	mr, client := testutil.NewTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s1", User: testPrincipal()}))

	raw, err := mr.Get("session:s1")
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Contains(t, decoded, "user")
	assert.NotContains(t, decoded, "ID")
	assert.NotContains(t, decoded, "id")
}

func TestSessionStore_GetMissing(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := NewSessionStore(client, time.Hour)

	_, err := store.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, ports.ErrSessionNotFound))

	_, err = store.Get(context.Background(), "")
	assert.True(t, errors.Is(err, ports.ErrSessionNotFound))
}

func TestSessionStore_RollingExpiry(t *testing.T) {
	mr, client := testutil.NewTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s1", User: testPrincipal()}))

	// Burn most of the window, then touch the session.
	mr.FastForward(45 * time.Minute)
	_, err := store.Get(ctx, "s1")
	require.NoError(t, err)

	// Without the refresh the session would be dead 15 minutes later.
	mr.FastForward(30 * time.Minute)
	_, err = store.Get(ctx, "s1")
	require.NoError(t, err)

	// A full idle window kills it.
	mr.FastForward(61 * time.Minute)
	_, err = store.Get(ctx, "s1")
	assert.True(t, errors.Is(err, ports.ErrSessionNotFound))
}

func TestSessionStore_ExpiredReadsAsMissing(t *testing.T) {
	mr, client := testutil.NewTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s1", User: testPrincipal()}))
	mr.FastForward(2 * time.Hour)

	_, err := store.Get(ctx, "s1")
	assert.True(t, errors.Is(err, ports.ErrSessionNotFound))
}

func TestSessionStore_SaveRequiresID(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := NewSessionStore(client, time.Hour)

	err := store.Save(context.Background(), domainauth.Session{User: testPrincipal()})
	assert.Error(t, err)
}

func TestSessionStore_Delete(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s1", User: testPrincipal()}))
	require.NoError(t, store.Delete(ctx, "s1"))

	_, err := store.Get(ctx, "s1")
	assert.True(t, errors.Is(err, ports.ErrSessionNotFound))

	// Deleting a missing or empty id is not an error.
	assert.NoError(t, store.Delete(ctx, "s1"))
	assert.NoError(t, store.Delete(ctx, ""))
}

func TestSessionStore_AnonymousSession(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "anon"}))

	got, err := store.Get(ctx, "anon")
	require.NoError(t, err)
	assert.True(t, got.IsAnonymous())
}
