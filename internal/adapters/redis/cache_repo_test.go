package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdeck/quiz-api/internal/testutil"
)

func TestCacheRepo_SetGet(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	repo := NewCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k1", []byte("v1"), time.Minute))

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)
}

func TestCacheRepo_GetMissReturnsNil(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	repo := NewCacheRepo(client)

	got, err := repo.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheRepo_EmptyKeyRejected(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	repo := NewCacheRepo(client)
	ctx := context.Background()

	_, err := repo.Get(ctx, "")
	assert.Error(t, err)
	assert.Error(t, repo.Set(ctx, "", []byte("v"), 0))
	_, err = repo.Delete(ctx, "")
	assert.Error(t, err)
	_, err = repo.Expire(ctx, "", time.Minute)
	assert.Error(t, err)
}

func TestCacheRepo_SetOverwrites(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	repo := NewCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k1", []byte("old"), time.Minute))
	require.NoError(t, repo.Set(ctx, "k1", []byte("new"), time.Minute))

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestCacheRepo_Expiry(t *testing.T) {
	mr, client := testutil.NewTestRedis(t)
	repo := NewCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k1", []byte("v1"), 5*time.Minute))
	mr.FastForward(6 * time.Minute)

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheRepo_Delete(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	repo := NewCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k1", []byte("v1"), time.Minute))

	existed, err := repo.Delete(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = repo.Delete(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestCacheRepo_Expire(t *testing.T) {
	mr, client := testutil.NewTestRedis(t)
	repo := NewCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k1", []byte("v1"), time.Minute))

	ok, err := repo.Expire(ctx, "k1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, mr.TTL("k1"))

	ok, err = repo.Expire(ctx, "absent", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRepo_ScanIteratesAllMatches(t *testing.T) {
	_, client := testutil.NewTestRedis(t)
	repo := NewCacheRepo(client)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, repo.Set(ctx, fmt.Sprintf("session:%03d", i), []byte("{}"), 0))
	}
	require.NoError(t, repo.Set(ctx, "otp:EMAIL_VERIFICATION:u1", []byte("123456"), 0))

	seen := map[string]bool{}
	var cursor uint64
	rounds := 0
	for {
		keys, next, err := repo.Scan(ctx, cursor, "session:*", 100)
		require.NoError(t, err)
		for _, k := range keys {
			seen[k] = true
		}
		rounds++
		require.Less(t, rounds, 1000, "scan did not terminate")
		if next == 0 {
			break
		}
		cursor = next
	}

	assert.Len(t, seen, 250)
	assert.False(t, seen["otp:EMAIL_VERIFICATION:u1"])
}

func TestCacheRepo_Health(t *testing.T) {
	mr, client := testutil.NewTestRedis(t)
	repo := NewCacheRepo(client)

	assert.NoError(t, repo.Health(context.Background()))

	mr.Close()
	assert.Error(t, repo.Health(context.Background()))
}
