package credstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	goBroker "github.com/MrEthical07/goBroker"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresFromDB(db), mock
}

func credentialRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"user_id", "username", "email", "password_hash", "status",
		"totp_secret", "two_factor_enabled", "totp_last_counter",
		"token_version", "role", "permissions", "session_ttl_seconds",
		"security_answer_hashes",
	})
}

func TestPostgresGetByIdentifier(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM credentials").
		WithArgs("alice").
		WillReturnRows(credentialRows().AddRow(
			"u1", "alice", "alice@example.com", "$argon2id$stub", "ACTIVE",
			[]byte("secret"), true, int64(9), uint32(4), "admin",
			[]byte(`["read","write"]`), int64(1800), []byte(`[]`),
		))

	cred, err := store.GetByIdentifier(context.Background(), " alice ")
	if err != nil {
		t.Fatalf("GetByIdentifier failed: %v", err)
	}
	if cred.UserID != "u1" || cred.Username != "alice" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
	// Status text is normalized regardless of the stored casing.
	if cred.Status != goBroker.AccountActive {
		t.Fatalf("expected active status, got %v", cred.Status)
	}
	if len(cred.Permissions) != 2 || cred.Permissions[1] != "write" {
		t.Fatalf("permissions not decoded: %v", cred.Permissions)
	}
	if cred.SessionTTL != 30*time.Minute {
		t.Fatalf("session ttl not decoded: %s", cred.SessionTTL)
	}
	if !cred.TwoFactorEnabled || cred.TOTPLastCounter != 9 {
		t.Fatalf("totp fields not decoded: %+v", cred)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM credentials").
		WithArgs("ghost").
		WillReturnRows(credentialRows())

	_, err := store.GetByID(context.Background(), "ghost")
	if !errors.Is(err, goBroker.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPostgresGetRejectsUnknownStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM credentials").
		WithArgs("u1").
		WillReturnRows(credentialRows().AddRow(
			"u1", "alice", "alice@example.com", "$argon2id$stub", "banned",
			nil, false, int64(0), uint32(0), "", []byte(`[]`), int64(0), []byte(`[]`),
		))

	if _, err := store.GetByID(context.Background(), "u1"); err == nil {
		t.Fatal("expected unknown status rejected")
	}
}

func TestPostgresTokenVersion(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT token_version FROM credentials").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(uint32(7)))

	v, err := store.TokenVersion(context.Background(), "u1")
	if err != nil || v != 7 {
		t.Fatalf("TokenVersion = %d, %v", v, err)
	}
}

func TestPostgresBumpTokenVersion(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE credentials SET token_version = token_version \\+ 1").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(uint32(8)))

	v, err := store.BumpTokenVersion(context.Background(), "u1")
	if err != nil || v != 8 {
		t.Fatalf("BumpTokenVersion = %d, %v", v, err)
	}
}

func TestPostgresUpdatePasswordBumpsVersion(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE credentials\\s+SET password_hash = \\$2, token_version = token_version \\+ 1").
		WithArgs("u1", "$argon2id$new").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(uint32(5)))

	v, err := store.UpdatePassword(context.Background(), "u1", "$argon2id$new")
	if err != nil || v != 5 {
		t.Fatalf("UpdatePassword = %d, %v", v, err)
	}
}

func TestPostgresUpdateStatusUnknownUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE credentials SET status").
		WithArgs("ghost", "locked").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateStatus(context.Background(), "ghost", goBroker.AccountLocked)
	if !errors.Is(err, goBroker.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPostgresUpdateTOTPLastCounter(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("SET totp_last_counter = GREATEST").
		WithArgs("u1", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.UpdateTOTPLastCounter(context.Background(), "u1", 42); err != nil {
		t.Fatalf("UpdateTOTPLastCounter failed: %v", err)
	}
}
