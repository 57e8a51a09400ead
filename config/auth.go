package config

import "time"

// AuthConfig groups session, OTP, and password hashing configuration.
type AuthConfig struct {
	// SessionTTL is the rolling time-to-live for session records.
	// Each successful session read refreshes the TTL.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"1h"`

	// OTPCodeTTL is the lifetime of an issued one-time passcode.
	OTPCodeTTL time.Duration `env:"AUTH_OTP_CODE_TTL" envDefault:"5m"`

	// OTPGrantTTL is the lifetime of a verified password-reset grant.
	OTPGrantTTL time.Duration `env:"AUTH_OTP_GRANT_TTL" envDefault:"10m"`

	// BcryptCost is the bcrypt work factor for password hashing.
	BcryptCost int `env:"AUTH_BCRYPT_COST" envDefault:"10"`

	// RevocationScanCount is the batch size hint for session scans
	// during bulk revocation.
	RevocationScanCount int64 `env:"AUTH_REVOCATION_SCAN_COUNT" envDefault:"100"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	if a.SessionTTL <= 0 {
		a.SessionTTL = time.Hour
	}
	if a.OTPCodeTTL <= 0 {
		a.OTPCodeTTL = 5 * time.Minute
	}
	if a.OTPGrantTTL <= 0 {
		a.OTPGrantTTL = 10 * time.Minute
	}
	if a.RevocationScanCount <= 0 {
		a.RevocationScanCount = 100
	}
}
