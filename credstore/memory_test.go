package credstore

import (
	"context"
	"errors"
	"testing"

	goBroker "github.com/MrEthical07/goBroker"
)

func seedMemory() *Memory {
	m := NewMemory()
	m.Seed(goBroker.Credential{
		UserID:       "u1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$stub",
		Status:       goBroker.AccountActive,
		TokenVersion: 3,
		Permissions:  []string{"read"},
	})
	return m
}

func TestMemoryLookups(t *testing.T) {
	m := seedMemory()
	ctx := context.Background()

	for _, identifier := range []string{"alice", "alice@example.com", " alice "} {
		cred, err := m.GetByIdentifier(ctx, identifier)
		if err != nil {
			t.Fatalf("GetByIdentifier(%q) failed: %v", identifier, err)
		}
		if cred.UserID != "u1" {
			t.Fatalf("unexpected user: %+v", cred)
		}
	}

	if _, err := m.GetByIdentifier(ctx, "Alice"); !errors.Is(err, goBroker.ErrUserNotFound) {
		t.Fatalf("identifier matching must be case-sensitive, got %v", err)
	}
	if _, err := m.GetByID(ctx, "ghost"); !errors.Is(err, goBroker.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := seedMemory()
	ctx := context.Background()

	cred, err := m.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	cred.Permissions[0] = "mutated"
	cred.PasswordHash = "mutated"

	again, err := m.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if again.Permissions[0] != "read" || again.PasswordHash != "$argon2id$stub" {
		t.Fatal("caller mutation leaked into store state")
	}
}

func TestMemoryTokenVersionLifecycle(t *testing.T) {
	m := seedMemory()
	ctx := context.Background()

	v, err := m.TokenVersion(ctx, "u1")
	if err != nil || v != 3 {
		t.Fatalf("TokenVersion = %d, %v", v, err)
	}

	v, err = m.BumpTokenVersion(ctx, "u1")
	if err != nil || v != 4 {
		t.Fatalf("BumpTokenVersion = %d, %v", v, err)
	}

	v, err = m.UpdatePassword(ctx, "u1", "$argon2id$new")
	if err != nil || v != 5 {
		t.Fatalf("UpdatePassword = %d, %v", v, err)
	}
	cred, err := m.GetByID(ctx, "u1")
	if err != nil || cred.PasswordHash != "$argon2id$new" {
		t.Fatalf("expected new hash stored, got %+v (%v)", cred, err)
	}

	if _, err := m.BumpTokenVersion(ctx, "ghost"); !errors.Is(err, goBroker.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMemoryTOTPState(t *testing.T) {
	m := seedMemory()
	ctx := context.Background()

	secret := []byte("12345678901234567890")
	if err := m.SetTOTP(ctx, "u1", secret, true); err != nil {
		t.Fatalf("SetTOTP failed: %v", err)
	}
	if err := m.UpdateTOTPLastCounter(ctx, "u1", 42); err != nil {
		t.Fatalf("UpdateTOTPLastCounter failed: %v", err)
	}
	// The watermark never moves backwards.
	if err := m.UpdateTOTPLastCounter(ctx, "u1", 7); err != nil {
		t.Fatalf("UpdateTOTPLastCounter failed: %v", err)
	}
	cred, err := m.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !cred.TwoFactorEnabled || cred.TOTPLastCounter != 42 {
		t.Fatalf("unexpected totp state: %+v", cred)
	}

	if err := m.SetTOTP(ctx, "u1", nil, false); err != nil {
		t.Fatalf("SetTOTP disable failed: %v", err)
	}
	cred, _ = m.GetByID(ctx, "u1")
	if cred.TwoFactorEnabled || cred.TOTPSecret != nil || cred.TOTPLastCounter != 0 {
		t.Fatalf("expected totp fully cleared, got %+v", cred)
	}
}

func TestMemorySeedReplacesIdentifiers(t *testing.T) {
	m := seedMemory()
	ctx := context.Background()

	m.Seed(goBroker.Credential{
		UserID:   "u1",
		Username: "renamed",
		Email:    "renamed@example.com",
		Status:   goBroker.AccountActive,
	})

	if _, err := m.GetByIdentifier(ctx, "alice"); !errors.Is(err, goBroker.ErrUserNotFound) {
		t.Fatalf("stale identifier still resolves: %v", err)
	}
	if _, err := m.GetByIdentifier(ctx, "renamed"); err != nil {
		t.Fatalf("new identifier missing: %v", err)
	}
}
