package goBroker

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/MrEthical07/goBroker/internal"
	"github.com/MrEthical07/goBroker/internal/stores"
)

const (
	challengeMethodS256 = "S256"
	minVerifierLength   = 43
	maxVerifierLength   = 128
)

// Authorize mints a single-use authorization code bound to the caller's
// identity and the presented S256 challenge. The caller must already hold
// a verified session; any identity asserted in the request body has to
// match it, otherwise the request is a token-substitution attempt.
func (e *Engine) Authorize(ctx context.Context, claims *Claims, input AuthorizeInput) (*AuthorizeResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	if input.CodeChallengeMethod != challengeMethodS256 {
		return nil, ErrChallengeMethodUnsupported
	}
	if len(input.CodeChallenge) != 43 {
		// An S256 challenge is always 43 chars of unpadded base64url.
		return nil, ErrChallengeMethodUnsupported
	}
	if input.UserID != "" && input.UserID != claims.UserID {
		e.logger.Warn("authorize identity mismatch", "user_id", claims.UserID)
		return nil, ErrIdentityMismatch
	}

	code, err := internal.NewAuthorizationCode()
	if err != nil {
		return nil, err
	}

	ttl := e.config.PKCE.CodeTTL
	now := time.Now()
	record := &stores.AuthorizationCode{
		UserID:          claims.UserID,
		Username:        claims.Username,
		Email:           claims.Email,
		Role:            claims.Role,
		CodeChallenge:   input.CodeChallenge,
		ChallengeMethod: input.CodeChallengeMethod,
		State:           input.State,
		RedirectURI:     input.RedirectURI,
		CreatedAt:       now.Unix(),
		ExpiresAt:       now.Add(ttl).Unix(),
	}
	if err := e.codes.Put(ctx, code, record, ttl); err != nil {
		return nil, ErrStoreUnavailable
	}

	e.logger.Info("authorization code issued", "user_id", claims.UserID)
	return &AuthorizeResult{
		Code:      code,
		ExpiresIn: int(ttl / time.Second),
	}, nil
}

// Exchange redeems an authorization code for the identity bound to it.
// The record is consumed atomically up front, before any check runs, so
// the code is spent exactly once no matter which branch fails and no
// matter how many redemptions race. Each failure is a distinct sentinel
// here; HTTP callers collapse them into one generic rejection.
func (e *Engine) Exchange(ctx context.Context, input ExchangeInput) (*GrantClaims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	record, err := e.codes.Take(ctx, input.Code)
	if err != nil {
		if errors.Is(err, stores.ErrCodeNotFound) {
			e.logger.Warn("exchange failed", "reason", "code not found")
			return nil, ErrCodeNotFound
		}
		return nil, ErrStoreUnavailable
	}

	if time.Now().Unix() > record.ExpiresAt {
		e.logger.Warn("exchange failed", "reason", "code expired")
		return nil, ErrCodeExpired
	}

	if record.State != "" && record.State != input.State {
		e.logger.Warn("exchange failed", "reason", "state mismatch")
		return nil, ErrStateMismatch
	}

	if len(input.CodeVerifier) < minVerifierLength || len(input.CodeVerifier) > maxVerifierLength {
		e.logger.Warn("exchange failed", "reason", "verifier length")
		return nil, ErrVerifierInvalid
	}

	computed := internal.S256Challenge(input.CodeVerifier)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(record.CodeChallenge)) != 1 {
		e.logger.Warn("exchange failed", "reason", "challenge mismatch")
		return nil, ErrChallengeMismatch
	}

	e.logger.Info("authorization code redeemed", "user_id", record.UserID)
	return &GrantClaims{
		UserID:   record.UserID,
		Username: record.Username,
		Email:    record.Email,
		Role:     record.Role,
	}, nil
}
