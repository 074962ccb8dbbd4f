package goBroker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goBroker/internal/rate"
	"github.com/MrEthical07/goBroker/internal/stores"
	"github.com/MrEthical07/goBroker/password"
	"github.com/MrEthical07/goBroker/token"
)

// Engine is the broker's protocol state machine: credential verification,
// token issuance/verification, the PKCE exchange, CSRF issuance/checking,
// and login throttling. Engines are immutable after [Builder.Build] and
// safe for concurrent use.
type Engine struct {
	config   Config
	provider CredentialProvider
	hasher   *password.Hasher
	hashGate *password.Gate
	tokens   *token.Manager
	totp     *totpVerifier
	codes    stores.CodeStore
	csrf     *csrfGuard
	limiter  *rate.Limiter
	logger   *slog.Logger
	janitor  *janitor
}

// Close stops the background janitor. Safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.janitor != nil {
		e.janitor.Stop()
	}
}

// storeCtx derives a bounded context for credential-store calls so a
// stalled store denies authentication instead of hanging the request.
func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.StoreTimeout)
}

// fetchByIdentifier wraps provider lookup with the bounded timeout,
// translating deadline expiry into a fail-closed store error.
func (e *Engine) fetchByIdentifier(ctx context.Context, identifier string) (*Credential, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	cred, err := e.provider.GetByIdentifier(sctx, identifier)
	if err != nil {
		return nil, e.storeErr(err)
	}
	return cred, nil
}

func (e *Engine) fetchByID(ctx context.Context, userID string) (*Credential, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	cred, err := e.provider.GetByID(sctx, userID)
	if err != nil {
		return nil, e.storeErr(err)
	}
	return cred, nil
}

// storeErr maps provider failures. Not-found passes through for callers
// that collapse it; everything else, including timeouts, fails closed.
func (e *Engine) storeErr(err error) error {
	if errors.Is(err, ErrUserNotFound) {
		return ErrUserNotFound
	}
	return ErrStoreUnavailable
}

// sessionTTL resolves the effective token lifetime for a credential:
// per-user override when present, default otherwise, hard cap always.
func (e *Engine) sessionTTL(cred *Credential) time.Duration {
	ttl := cred.SessionTTL
	if ttl <= 0 {
		ttl = e.config.Token.DefaultTTL
	}
	if ttl > e.config.Token.MaxTTL {
		ttl = e.config.Token.MaxTTL
	}
	return ttl
}

// summary strips a credential down to the fields safe to return.
func summary(cred *Credential) UserSummary {
	return UserSummary{
		UserID:      cred.UserID,
		Username:    cred.Username,
		Email:       cred.Email,
		Role:        cred.Role,
		Permissions: append([]string(nil), cred.Permissions...),
	}
}
