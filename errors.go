package goBroker

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEngineNotReady is returned when an Engine method is called before Build.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrInvalidCredentials covers unknown identifier, wrong password, wrong
	// TOTP code, and non-active accounts at login. One message for all of
	// them: the distinction must never be observable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSecondFactorRequired is returned when the account has TOTP enabled
	// and no code was supplied. Deliberately distinct so clients can
	// re-prompt without restarting the login.
	ErrSecondFactorRequired = errors.New("second factor required")
	// ErrUserNotFound is returned by credential providers; the login path
	// collapses it into ErrInvalidCredentials before it reaches callers.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountDisabled is returned by authenticated operations on a
	// non-active account, where account existence is already proven.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrRateLimited is the sentinel unwrapped by [RateLimitError].
	ErrRateLimited = errors.New("login rate limited")

	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed covers every signature or shape failure.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenVersionMismatch is returned when the embedded token version
	// no longer matches the credential's counter. Distinct from expiry so
	// clients can force an immediate re-login.
	ErrTokenVersionMismatch = errors.New("token version mismatch")

	// ErrCodeNotFound is returned when no authorization code record exists.
	ErrCodeNotFound = errors.New("authorization code not found")
	// ErrCodeExpired is returned when the record exists but is past its TTL.
	ErrCodeExpired = errors.New("authorization code expired")
	// ErrChallengeMismatch is returned when S256(verifier) does not equal
	// the stored challenge.
	ErrChallengeMismatch = errors.New("code challenge mismatch")
	// ErrChallengeMethodUnsupported is returned at issuance for any method
	// other than S256.
	ErrChallengeMethodUnsupported = errors.New("code challenge method unsupported")
	// ErrVerifierInvalid is returned when the code verifier length is
	// outside [43,128].
	ErrVerifierInvalid = errors.New("code verifier invalid")
	// ErrStateMismatch is returned when a state bound at issuance does not
	// match the state presented at redemption.
	ErrStateMismatch = errors.New("state mismatch")
	// ErrIdentityMismatch is returned when an authorize request asserts an
	// identity other than the authenticated session's.
	ErrIdentityMismatch = errors.New("identity mismatch")

	// ErrCSRFRejected is returned when the double-submit header is absent,
	// stale, or does not match the stored pair.
	ErrCSRFRejected = errors.New("csrf rejected")

	// ErrTOTPNotConfigured is returned by TOTP lifecycle operations when no
	// secret is enrolled.
	ErrTOTPNotConfigured = errors.New("totp not configured")
	// ErrTOTPAlreadyEnabled is returned when enrollment is attempted on an
	// account that already has an active second factor.
	ErrTOTPAlreadyEnabled = errors.New("totp already enabled")
	// ErrTOTPInvalid is returned when activation is attempted with a code
	// that does not prove possession of the enrolled secret.
	ErrTOTPInvalid = errors.New("invalid totp code")

	// ErrStoreUnavailable is returned when the credential store cannot be
	// reached within the configured timeout. Authentication fails closed.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// RateLimitError carries the retry hint for a throttled login attempt.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("login rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfterSeconds rounds the hint up to whole seconds, never below 1.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
