package goBroker

import (
	"context"
	"errors"
	"testing"
)

func loginAlice(t *testing.T, engine *Engine) *LoginResult {
	t.Helper()
	result, err := engine.Login(context.Background(), LoginInput{
		Identifier: "alice",
		Password:   "correct-horse-battery",
		ClientIP:   "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return result
}

func TestVerifyRejectsGarbage(t *testing.T) {
	cfg := engineTestConfig()
	p := newMapProvider()
	seedAlice(t, cfg, p)
	engine := newTestEngine(t, cfg, p)

	for _, bearer := range []string{"", "not-a-token", "a.b.c"} {
		_, err := engine.Verify(context.Background(), bearer)
		if !errors.Is(err, ErrTokenMalformed) {
			t.Fatalf("bearer %q: expected ErrTokenMalformed, got %v", bearer, err)
		}
	}
}

func TestVerifyVersionMismatchAfterRevocation(t *testing.T) {
	cfg := engineTestConfig()
	p := newMapProvider()
	seedAlice(t, cfg, p)
	engine := newTestEngine(t, cfg, p)

	result := loginAlice(t, engine)
	if _, err := engine.Verify(context.Background(), result.Token); err != nil {
		t.Fatalf("Verify before revocation failed: %v", err)
	}

	if err := engine.RevokeAllSessions(context.Background(), "u1"); err != nil {
		t.Fatalf("RevokeAllSessions failed: %v", err)
	}

	_, err := engine.Verify(context.Background(), result.Token)
	if !errors.Is(err, ErrTokenVersionMismatch) {
		t.Fatalf("expected ErrTokenVersionMismatch, got %v", err)
	}
}

func TestVerifyDeletedAccount(t *testing.T) {
	cfg := engineTestConfig()
	p := newMapProvider()
	seedAlice(t, cfg, p)
	engine := newTestEngine(t, cfg, p)

	result := loginAlice(t, engine)

	p.mu.Lock()
	delete(p.users, "u1")
	p.mu.Unlock()

	_, err := engine.Verify(context.Background(), result.Token)
	if !errors.Is(err, ErrTokenVersionMismatch) {
		t.Fatalf("expected ErrTokenVersionMismatch for deleted account, got %v", err)
	}
}

func TestRefreshRotatesSessionAndCSRF(t *testing.T) {
	cfg := engineTestConfig()
	p := newMapProvider()
	seedAlice(t, cfg, p)
	engine := newTestEngine(t, cfg, p)

	old := loginAlice(t, engine)

	fresh, err := engine.Refresh(context.Background(), old.Token)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if fresh.SessionID == old.SessionID {
		t.Fatal("expected a new session id")
	}
	if _, err := engine.Verify(context.Background(), fresh.Token); err != nil {
		t.Fatalf("Verify of refreshed token failed: %v", err)
	}

	// The old pair is dropped eagerly; the new one must work.
	if err := engine.CheckCSRF(context.Background(), old.SessionID, old.CSRFSecret); !errors.Is(err, ErrCSRFRejected) {
		t.Fatalf("expected old pair rejected, got %v", err)
	}
	if err := engine.CheckCSRF(context.Background(), fresh.SessionID, fresh.CSRFSecret); err != nil {
		t.Fatalf("new pair rejected: %v", err)
	}
}

func TestRefreshDisabledAccount(t *testing.T) {
	cfg := engineTestConfig()
	p := newMapProvider()
	seedAlice(t, cfg, p)
	engine := newTestEngine(t, cfg, p)

	result := loginAlice(t, engine)
	if err := engine.SetAccountStatus(context.Background(), "u1", AccountInactive); err != nil {
		t.Fatalf("SetAccountStatus failed: %v", err)
	}

	_, err := engine.Refresh(context.Background(), result.Token)
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestLogoutDropsCSRFPairAndIsIdempotent(t *testing.T) {
	cfg := engineTestConfig()
	p := newMapProvider()
	seedAlice(t, cfg, p)
	engine := newTestEngine(t, cfg, p)

	result := loginAlice(t, engine)
	if err := engine.Logout(context.Background(), result.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if err := engine.CheckCSRF(context.Background(), result.SessionID, result.CSRFSecret); !errors.Is(err, ErrCSRFRejected) {
		t.Fatalf("expected pair dropped, got %v", err)
	}

	// Repeat and garbage logouts are both no-ops.
	if err := engine.Logout(context.Background(), result.Token); err != nil {
		t.Fatalf("repeat Logout failed: %v", err)
	}
	if err := engine.Logout(context.Background(), "garbage"); err != nil {
		t.Fatalf("garbage Logout failed: %v", err)
	}
}

func TestCheckCSRFRejectsWrongSecret(t *testing.T) {
	cfg := engineTestConfig()
	p := newMapProvider()
	seedAlice(t, cfg, p)
	engine := newTestEngine(t, cfg, p)

	result := loginAlice(t, engine)

	cases := []struct {
		name      string
		sessionID string
		secret    string
	}{
		{"wrong secret", result.SessionID, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
		{"empty secret", result.SessionID, ""},
		{"unknown session", "does-not-exist", result.CSRFSecret},
	}
	for _, tc := range cases {
		err := engine.CheckCSRF(context.Background(), tc.sessionID, tc.secret)
		if !errors.Is(err, ErrCSRFRejected) {
			t.Fatalf("%s: expected ErrCSRFRejected, got %v", tc.name, err)
		}
	}
}
