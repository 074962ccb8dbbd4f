package goBroker

import (
	"context"
	"time"
)

// EnrollTOTP generates a fresh secret for the user and stores it in a
// pending (disabled) state. The second factor only starts binding logins
// after [Engine.ActivateTOTP] proves the user can produce a code.
func (e *Engine) EnrollTOTP(ctx context.Context, userID string) (*TOTPEnrollment, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	cred, err := e.fetchByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred.TwoFactorEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}

	secret, secretBase32, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.provider.SetTOTP(sctx, userID, secret, false); err != nil {
		return nil, e.storeErr(err)
	}

	return &TOTPEnrollment{
		SecretBase32: secretBase32,
		URI:          e.totp.ProvisionURI(secretBase32, cred.Username),
	}, nil
}

// ActivateTOTP flips the pending secret to enabled once the user proves
// possession with a current code.
func (e *Engine) ActivateTOTP(ctx context.Context, userID, code string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	cred, err := e.fetchByID(ctx, userID)
	if err != nil {
		return err
	}
	if len(cred.TOTPSecret) == 0 {
		return ErrTOTPNotConfigured
	}
	if cred.TwoFactorEnabled {
		return ErrTOTPAlreadyEnabled
	}

	ok, counter, err := e.totp.VerifyCode(cred.TOTPSecret, code, time.Now())
	if err != nil || !ok {
		return ErrTOTPInvalid
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.provider.SetTOTP(sctx, userID, cred.TOTPSecret, true); err != nil {
		return e.storeErr(err)
	}
	if err := e.provider.UpdateTOTPLastCounter(sctx, userID, counter); err != nil {
		return e.storeErr(err)
	}

	e.logger.Info("totp enabled", "user_id", userID)
	return nil
}

// DisableTOTP removes the second factor entirely.
func (e *Engine) DisableTOTP(ctx context.Context, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	cred, err := e.fetchByID(ctx, userID)
	if err != nil {
		return err
	}
	if len(cred.TOTPSecret) == 0 && !cred.TwoFactorEnabled {
		return ErrTOTPNotConfigured
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.provider.SetTOTP(sctx, userID, nil, false); err != nil {
		return e.storeErr(err)
	}

	e.logger.Info("totp disabled", "user_id", userID)
	return nil
}
