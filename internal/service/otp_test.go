package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisadapter "github.com/quizdeck/quiz-api/internal/adapters/redis"
	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
	apperrors "github.com/quizdeck/quiz-api/internal/errors"
	"github.com/quizdeck/quiz-api/internal/testutil"
)

func newTestOTPEngine(t *testing.T) (*OTPEngine, *miniredis.Miniredis) {
	t.Helper()
	mr, client := testutil.NewTestRedis(t)
	engine := NewOTPEngine(redisadapter.NewCacheRepo(client), DefaultOTPConfig())
	return engine, mr
}

func TestOTPEngine_IssueStoresCode(t *testing.T) {
	engine, mr := newTestOTPEngine(t)
	ctx := context.Background()

	code, err := engine.Issue(ctx, domainauth.OTPEmailVerification, "u1")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, c := range code {
		assert.Contains(t, otpAlphabet, string(c))
	}

	stored, err := mr.Get("otp:EMAIL_VERIFICATION:u1")
	require.NoError(t, err)
	assert.Equal(t, code, stored)
}

func TestOTPEngine_IssueOverwritesPriorCode(t *testing.T) {
	engine, _ := newTestOTPEngine(t)
	ctx := context.Background()

	first, err := engine.Issue(ctx, domainauth.OTPEmailVerification, "u1")
	require.NoError(t, err)
	second, err := engine.Issue(ctx, domainauth.OTPEmailVerification, "u1")
	require.NoError(t, err)
	if first == second {
		t.Skip("codes collided; nothing to distinguish")
	}

	// Only the newest code is live.
	err = engine.Verify(ctx, domainauth.OTPEmailVerification, "u1", first)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidOTP(err))

	assert.NoError(t, engine.Verify(ctx, domainauth.OTPEmailVerification, "u1", second))
}

func TestOTPEngine_VerifySingleUse(t *testing.T) {
	engine, _ := newTestOTPEngine(t)
	ctx := context.Background()

	code, err := engine.Issue(ctx, domainauth.OTPEmailVerification, "u1")
	require.NoError(t, err)

	require.NoError(t, engine.Verify(ctx, domainauth.OTPEmailVerification, "u1", code))

	// The code was consumed by the first successful verification.
	err = engine.Verify(ctx, domainauth.OTPEmailVerification, "u1", code)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidOTP(err))
}

func TestOTPEngine_VerifyMismatchLeavesCodeLive(t *testing.T) {
	engine, _ := newTestOTPEngine(t)
	ctx := context.Background()

	code, err := engine.Issue(ctx, domainauth.OTPEmailVerification, "u1")
	require.NoError(t, err)

	wrong := "AAAAAA"
	if wrong == code {
		wrong = "BBBBBB"
	}
	err = engine.Verify(ctx, domainauth.OTPEmailVerification, "u1", wrong)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidOTP(err))

	// A failed guess does not burn the real code.
	assert.NoError(t, engine.Verify(ctx, domainauth.OTPEmailVerification, "u1", code))
}

func TestOTPEngine_VerifyExpiredCode(t *testing.T) {
	engine, mr := newTestOTPEngine(t)
	ctx := context.Background()

	code, err := engine.Issue(ctx, domainauth.OTPEmailVerification, "u1")
	require.NoError(t, err)

	mr.FastForward(6 * time.Minute)

	err = engine.Verify(ctx, domainauth.OTPEmailVerification, "u1", code)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidOTP(err))
}

func TestOTPEngine_PurposeScoping(t *testing.T) {
	engine, _ := newTestOTPEngine(t)
	ctx := context.Background()

	code, err := engine.Issue(ctx, domainauth.OTPEmailVerification, "u1")
	require.NoError(t, err)

	// Same subject, different purpose: separate keyspace.
	err = engine.Verify(ctx, domainauth.OTPForgotPassword, "u1", code)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidOTP(err))
}

func TestOTPEngine_SubjectScoping(t *testing.T) {
	engine, _ := newTestOTPEngine(t)
	ctx := context.Background()

	code, err := engine.Issue(ctx, domainauth.OTPEmailVerification, "u1")
	require.NoError(t, err)

	err = engine.Verify(ctx, domainauth.OTPEmailVerification, "u2", code)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidOTP(err))
}

func TestOTPEngine_ForgotPasswordVerifySetsGrant(t *testing.T) {
	engine, mr := newTestOTPEngine(t)
	ctx := context.Background()

	code, err := engine.Issue(ctx, domainauth.OTPForgotPassword, "u1")
	require.NoError(t, err)
	require.NoError(t, engine.Verify(ctx, domainauth.OTPForgotPassword, "u1", code))

	stored, err := mr.Get("passwordResetVerified:u1")
	require.NoError(t, err)
	assert.Equal(t, "true", stored)

	ok, err := engine.HasResetGrant(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTPEngine_EmailVerificationDoesNotGrant(t *testing.T) {
	engine, mr := newTestOTPEngine(t)
	ctx := context.Background()

	code, err := engine.Issue(ctx, domainauth.OTPEmailVerification, "u1")
	require.NoError(t, err)
	require.NoError(t, engine.Verify(ctx, domainauth.OTPEmailVerification, "u1", code))

	assert.False(t, mr.Exists("passwordResetVerified:u1"))
}

func TestOTPEngine_GrantExpires(t *testing.T) {
	engine, mr := newTestOTPEngine(t)
	ctx := context.Background()

	code, err := engine.Issue(ctx, domainauth.OTPForgotPassword, "u1")
	require.NoError(t, err)
	require.NoError(t, engine.Verify(ctx, domainauth.OTPForgotPassword, "u1", code))

	mr.FastForward(11 * time.Minute)

	ok, err := engine.HasResetGrant(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPEngine_ClearResetGrant(t *testing.T) {
	engine, _ := newTestOTPEngine(t)
	ctx := context.Background()

	code, err := engine.Issue(ctx, domainauth.OTPForgotPassword, "u1")
	require.NoError(t, err)
	require.NoError(t, engine.Verify(ctx, domainauth.OTPForgotPassword, "u1", code))

	require.NoError(t, engine.ClearResetGrant(ctx, "u1"))

	ok, err := engine.HasResetGrant(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Clearing an absent grant is idempotent.
	assert.NoError(t, engine.ClearResetGrant(ctx, "u1"))
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, otpLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(otpAlphabet, c))
		}
		seen[code] = true
	}
	// 100 draws from a 62^6 space colliding down to a handful would mean a
	// broken random source.
	assert.Greater(t, len(seen), 90)
}
