package goBroker

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goBroker/token"
)

// Verify validates a bearer token: signature, expiry, then a live
// comparison of the embedded token version against the credential store.
// The version check is what makes role and permission claims trustworthy;
// without it they would be replayable after a privilege downgrade.
func (e *Engine) Verify(ctx context.Context, bearer string) (*Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	parsed, err := e.tokens.Parse(bearer)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenMalformed
		}
	}

	sctx, cancel := e.storeCtx(ctx)
	current, err := e.provider.TokenVersion(sctx, parsed.UserID)
	cancel()
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Account gone; force re-login rather than admit a ghost.
			return nil, ErrTokenVersionMismatch
		}
		return nil, ErrStoreUnavailable
	}
	if current != parsed.TokenVersion {
		return nil, ErrTokenVersionMismatch
	}

	now := time.Now()
	return &Claims{
		UserID:        parsed.UserID,
		Username:      parsed.Username,
		Email:         parsed.Email,
		Role:          parsed.Role,
		Permissions:   append([]string(nil), parsed.Permissions...),
		TokenVersion:  parsed.TokenVersion,
		SessionID:     parsed.SessionID,
		IssuedAt:      parsed.IssuedAt.Time,
		ExpiresAt:     parsed.ExpiresAt.Time,
		ShouldRefresh: e.tokens.ShouldRefresh(parsed, now),
	}, nil
}

// Refresh mints a replacement token for a still-valid session, keeping
// the same token version. The old token is not revoked (there is no
// blacklist); it simply ages out at its original expiry.
func (e *Engine) Refresh(ctx context.Context, bearer string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.Verify(ctx, bearer)
	if err != nil {
		return nil, err
	}

	cred, err := e.fetchByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrTokenVersionMismatch
		}
		return nil, err
	}
	if cred.Status != AccountActive {
		return nil, ErrAccountDisabled
	}

	result, err := e.issueSession(ctx, cred)
	if err != nil {
		return nil, err
	}

	// The old session's CSRF pair is orphaned once the new cookie lands;
	// drop it rather than wait for the janitor.
	_ = e.csrf.Drop(ctx, claims.SessionID)

	e.logger.Info("session refreshed", "user_id", cred.UserID)
	return result, nil
}

// Logout drops the session's CSRF pair. Idempotent: a token that no
// longer parses is treated as already logged out, and the bearer cookie
// itself dies at expiry since there is no blacklist to put it on.
func (e *Engine) Logout(ctx context.Context, bearer string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	parsed, err := e.tokens.Parse(bearer)
	if err != nil {
		return nil
	}

	return e.csrf.Drop(ctx, parsed.SessionID)
}

// CheckCSRF verifies the double-submit header for a mutating request.
func (e *Engine) CheckCSRF(ctx context.Context, sessionID, presented string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return e.csrf.Check(ctx, sessionID, presented)
}
