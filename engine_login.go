package goBroker

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goBroker/internal"
	"github.com/MrEthical07/goBroker/internal/rate"
	"github.com/MrEthical07/goBroker/token"
)

// Login runs one authentication attempt end to end: rate limit, credential
// verification, optional second factor, then token and CSRF issuance.
//
// Unknown identifier, wrong password, wrong TOTP code, and non-active
// accounts all fail with [ErrInvalidCredentials] after comparable work, so
// none of them is distinguishable from outside. [ErrSecondFactorRequired]
// is the one deliberate exception: it only fires after the password
// verified, so it leaks nothing the caller has not already proven.
func (e *Engine) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	if e.limiter != nil {
		if err := e.limiter.Attempt(ctx, input.ClientIP); err != nil {
			var limitErr *rate.LimitError
			if errors.As(err, &limitErr) {
				e.logger.Warn("login rate limited", "ip", input.ClientIP)
				return nil, &RateLimitError{RetryAfter: limitErr.RetryAfter}
			}
			return nil, ErrStoreUnavailable
		}
	}

	cred, err := e.fetchByIdentifier(ctx, input.Identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn a full hash so this path costs the same as a mismatch.
			if gateErr := e.hashGate.Do(ctx, func() {
				e.hasher.VerifyDecoy(input.Password)
			}); gateErr != nil {
				return nil, gateErr
			}
			e.logger.Warn("login failed")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	var match bool
	if gateErr := e.hashGate.Do(ctx, func() {
		match, _ = e.hasher.Verify(input.Password, cred.PasswordHash)
	}); gateErr != nil {
		return nil, gateErr
	}

	if !match || cred.Status != AccountActive {
		e.logger.Warn("login failed")
		return nil, ErrInvalidCredentials
	}

	if cred.TwoFactorEnabled {
		if input.TOTPCode == "" {
			return nil, ErrSecondFactorRequired
		}
		if err := e.checkSecondFactor(ctx, cred, input.TOTPCode); err != nil {
			e.logger.Warn("login failed")
			return nil, err
		}
	}

	result, err := e.issueSession(ctx, cred)
	if err != nil {
		return nil, err
	}

	// Post-success bookkeeping. The session is already fully persisted;
	// neither of these can un-authenticate the user.
	if e.limiter != nil {
		_ = e.limiter.Reset(ctx, input.ClientIP)
	}
	sctx, cancel := e.storeCtx(ctx)
	_ = e.provider.UpdateLastLogin(sctx, cred.UserID, time.Now())
	cancel()

	e.logger.Info("login succeeded", "user_id", cred.UserID)
	return result, nil
}

// checkSecondFactor verifies a TOTP code with drift tolerance and rejects
// replay of the matched time step.
func (e *Engine) checkSecondFactor(ctx context.Context, cred *Credential, code string) error {
	ok, counter, err := e.totp.VerifyCode(cred.TOTPSecret, code, time.Now())
	if err != nil || !ok {
		return ErrInvalidCredentials
	}
	if counter <= cred.TOTPLastCounter {
		return ErrInvalidCredentials
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.provider.UpdateTOTPLastCounter(sctx, cred.UserID, counter); err != nil {
		return ErrStoreUnavailable
	}
	return nil
}

// issueSession mints the bearer token and CSRF pair. Both are persisted
// before the result is returned (store-then-respond), so an aborted
// request never leaves a half-issued session behind.
func (e *Engine) issueSession(ctx context.Context, cred *Credential) (*LoginResult, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	sessionID := sid.String()

	signed, expiresAt, err := e.tokens.Issue(token.Claims{
		UserID:       cred.UserID,
		Username:     cred.Username,
		Email:        cred.Email,
		Role:         cred.Role,
		Permissions:  cred.Permissions,
		TokenVersion: cred.TokenVersion,
		SessionID:    sessionID,
	}, e.sessionTTL(cred))
	if err != nil {
		return nil, err
	}

	csrfSecret, err := e.csrf.Issue(ctx, sessionID, expiresAt)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:      signed,
		ExpiresAt:  expiresAt,
		SessionID:  sessionID,
		CSRFSecret: csrfSecret,
		User:       summary(cred),
	}, nil
}
