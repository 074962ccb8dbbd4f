package goBroker

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/MrEthical07/goBroker/internal"
	"github.com/MrEthical07/goBroker/internal/stores"
)

// csrfGuard implements the double-submit defense. The secret minted at
// login is held server-side keyed by session ID and mirrored to the
// client as a readable cookie; mutating requests must echo it in a
// header, which a cross-origin page cannot do.
type csrfGuard struct {
	pairs stores.PairStore
}

func newCSRFGuard(pairs stores.PairStore) *csrfGuard {
	return &csrfGuard{pairs: pairs}
}

// Issue mints and stores a fresh pair for the session. The pair lives as
// long as the session token it travels with.
func (g *csrfGuard) Issue(ctx context.Context, sessionID string, expiresAt time.Time) (string, error) {
	secret, err := internal.NewCSRFSecret()
	if err != nil {
		return "", err
	}

	pair := &stores.CSRFPair{Secret: secret, ExpiresAt: expiresAt.Unix()}
	if err := g.pairs.Put(ctx, sessionID, pair, time.Until(expiresAt)); err != nil {
		return "", err
	}

	return secret, nil
}

// Check verifies the echoed header value against the stored pair.
// Expiry is checked here, never delegated to the janitor sweep.
func (g *csrfGuard) Check(ctx context.Context, sessionID, presented string) error {
	if presented == "" {
		return ErrCSRFRejected
	}

	pair, err := g.pairs.Get(ctx, sessionID)
	if err != nil {
		return ErrCSRFRejected
	}
	if time.Now().Unix() > pair.ExpiresAt {
		_, _ = g.pairs.Delete(ctx, sessionID)
		return ErrCSRFRejected
	}

	if subtle.ConstantTimeCompare([]byte(pair.Secret), []byte(presented)) != 1 {
		return ErrCSRFRejected
	}

	return nil
}

// Drop removes the pair at logout.
func (g *csrfGuard) Drop(ctx context.Context, sessionID string) error {
	_, err := g.pairs.Delete(ctx, sessionID)
	return err
}
