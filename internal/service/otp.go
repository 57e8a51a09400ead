// Package service contains the identity and session orchestration layer.
package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"time"

	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
	apperrors "github.com/quizdeck/quiz-api/internal/errors"
	"github.com/quizdeck/quiz-api/internal/ports"
)

const (
	// otpAlphabet is the 62-symbol code alphabet. Code space is 62^6.
	otpAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	otpLength   = 6

	// resetGrantValue is the marker stored under the password-reset-verified key.
	resetGrantValue = "true"
)

// OTPConfig holds the expiry windows for codes and the post-verification
// password-reset grant.
type OTPConfig struct {
	CodeTTL  time.Duration
	GrantTTL time.Duration
}

// DefaultOTPConfig returns the platform's standard OTP windows.
func DefaultOTPConfig() OTPConfig {
	return OTPConfig{
		CodeTTL:  5 * time.Minute,
		GrantTTL: 10 * time.Minute,
	}
}

// OTPEngine generates, stores, and verifies short-lived one-time codes scoped
// by (purpose, subject). At most one code is live per pair: issuing overwrites
// any prior unexpired code, and a successful verification consumes the code.
//
// The engine deliberately has no retry or lockout counter; guess throttling
// belongs to the transport layer in front of it.
type OTPEngine struct {
	cache  ports.CacheRepository
	config OTPConfig
}

// NewOTPEngine creates an OTPEngine over the shared cache.
func NewOTPEngine(cache ports.CacheRepository, cfg OTPConfig) *OTPEngine {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultOTPConfig().CodeTTL
	}
	if cfg.GrantTTL <= 0 {
		cfg.GrantTTL = DefaultOTPConfig().GrantTTL
	}
	return &OTPEngine{cache: cache, config: cfg}
}

// Issue generates a fresh code for (purpose, subjectID), stores it with the
// code TTL, and returns it for out-of-band delivery. Exactly one cache write.
func (e *OTPEngine) Issue(
	ctx context.Context,
	purpose domainauth.OTPPurpose,
	subjectID string,
) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "generate OTP")
	}

	key := otpKey(purpose, subjectID)
	if err := e.cache.Set(ctx, key, []byte(code), e.config.CodeTTL); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "store OTP")
	}
	return code, nil
}

// Verify checks candidate against the stored code. Absence (expired or never
// issued) and mismatch both read as InvalidOTP. On success the code is
// deleted so it can only be used once, and for FORGOT_PASSWORD the
// password-reset grant is set as a side effect.
func (e *OTPEngine) Verify(
	ctx context.Context,
	purpose domainauth.OTPPurpose,
	subjectID string,
	candidate string,
) error {
	key := otpKey(purpose, subjectID)
	stored, err := e.cache.Get(ctx, key)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "read OTP")
	}
	if stored == nil || subtle.ConstantTimeCompare(stored, []byte(candidate)) != 1 {
		return apperrors.InvalidOTP()
	}

	if _, err := e.cache.Delete(ctx, key); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "consume OTP")
	}

	if purpose == domainauth.OTPForgotPassword {
		if err := e.cache.Set(ctx, resetGrantKey(subjectID),
			[]byte(resetGrantValue), e.config.GrantTTL); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "store password reset grant")
		}
	}
	return nil
}

// HasResetGrant reports whether a live password-reset grant exists for the subject.
func (e *OTPEngine) HasResetGrant(ctx context.Context, subjectID string) (bool, error) {
	value, err := e.cache.Get(ctx, resetGrantKey(subjectID))
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "read password reset grant")
	}
	return value != nil, nil
}

// ClearResetGrant consumes the grant so a second reset requires re-verifying.
func (e *OTPEngine) ClearResetGrant(ctx context.Context, subjectID string) error {
	if _, err := e.cache.Delete(ctx, resetGrantKey(subjectID)); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "clear password reset grant")
	}
	return nil
}

// otpKey follows the cache key contract `otp:{purpose}:{subjectId}`.
func otpKey(purpose domainauth.OTPPurpose, subjectID string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, subjectID)
}

// resetGrantKey follows the cache key contract `passwordResetVerified:{subjectId}`.
func resetGrantKey(subjectID string) string {
	return "passwordResetVerified:" + subjectID
}

// generateCode draws otpLength symbols from the alphabet using a secure
// random source. 62 does not divide 256 evenly, so the modulo mapping has a
// slight bias toward the first symbols; the original platform accepted that
// trade against rejection sampling and we keep its behavior.
func generateCode() (string, error) {
	buf := make([]byte, otpLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, otpLength)
	for i, b := range buf {
		code[i] = otpAlphabet[int(b)%len(otpAlphabet)]
	}
	return string(code), nil
}
