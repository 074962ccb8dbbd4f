package goBroker

import (
	"context"
	"errors"
)

// ChangePassword verifies the current password and installs a new hash.
// The provider bumps the token version in the same mutation, which
// atomically revokes every outstanding session for the user.
func (e *Engine) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	cred, err := e.fetchByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if cred.Status != AccountActive {
		return ErrAccountDisabled
	}

	var match bool
	if gateErr := e.hashGate.Do(ctx, func() {
		match, _ = e.hasher.Verify(currentPassword, cred.PasswordHash)
	}); gateErr != nil {
		return gateErr
	}
	if !match {
		e.logger.Warn("password change rejected", "user_id", userID)
		return ErrInvalidCredentials
	}

	return e.installPassword(ctx, userID, newPassword)
}

// RevokeAllSessions bumps the user's token version. Every outstanding
// token fails verification with a version mismatch from this point on;
// no per-token bookkeeping is needed.
func (e *Engine) RevokeAllSessions(ctx context.Context, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if _, err := e.provider.BumpTokenVersion(sctx, userID); err != nil {
		return e.storeErr(err)
	}

	e.logger.Info("sessions revoked", "user_id", userID)
	return nil
}

// SetAccountStatus moves an account between active, inactive, and locked.
// Locking does not revoke outstanding tokens by itself; callers that want
// an immediate lockout pair it with RevokeAllSessions.
func (e *Engine) SetAccountStatus(ctx context.Context, userID string, status AccountStatus) error {
	if e == nil {
		return ErrEngineNotReady
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.provider.UpdateStatus(sctx, userID, status); err != nil {
		return e.storeErr(err)
	}

	e.logger.Info("account status changed", "user_id", userID, "status", status.String())
	return nil
}

// ResetPasswordWithAnswers verifies the account's security answers and,
// when every one matches, installs a new password hash. Failures are
// uniform: a missing account and a wrong answer look identical.
func (e *Engine) ResetPasswordWithAnswers(ctx context.Context, identifier string, answers []string, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	cred, err := e.fetchByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			if gateErr := e.hashGate.Do(ctx, func() {
				e.hasher.VerifyDecoy("")
			}); gateErr != nil {
				return gateErr
			}
			return ErrInvalidCredentials
		}
		return err
	}
	if cred.Status != AccountActive {
		return ErrInvalidCredentials
	}
	if len(cred.SecurityAnswerHashes) == 0 || len(answers) != len(cred.SecurityAnswerHashes) {
		return ErrInvalidCredentials
	}

	allMatch := true
	for i, hash := range cred.SecurityAnswerHashes {
		var match bool
		if gateErr := e.hashGate.Do(ctx, func() {
			match, _ = e.hasher.Verify(answers[i], hash)
		}); gateErr != nil {
			return gateErr
		}
		// Keep checking the rest so the failing index is not observable.
		if !match {
			allMatch = false
		}
	}
	if !allMatch {
		e.logger.Warn("security answer reset rejected")
		return ErrInvalidCredentials
	}

	return e.installPassword(ctx, cred.UserID, newPassword)
}

// installPassword hashes and stores a new password. The provider bump of
// token_version makes this the revocation point for all prior sessions.
func (e *Engine) installPassword(ctx context.Context, userID, newPassword string) error {
	var (
		newHash string
		hashErr error
	)
	if gateErr := e.hashGate.Do(ctx, func() {
		newHash, hashErr = e.hasher.Hash(newPassword)
	}); gateErr != nil {
		return gateErr
	}
	if hashErr != nil {
		return hashErr
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if _, err := e.provider.UpdatePassword(sctx, userID, newHash); err != nil {
		return e.storeErr(err)
	}

	e.logger.Info("password changed", "user_id", userID)
	return nil
}
