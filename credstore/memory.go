package credstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	goBroker "github.com/MrEthical07/goBroker"
)

// Memory is a mutex-guarded CredentialProvider. Records are copied on the
// way in and out so callers can never mutate store state through a shared
// slice or pointer.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]*goBroker.Credential
	byIdent map[string]string // username/email -> userID
}

// NewMemory returns an empty in-memory credential store.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]*goBroker.Credential),
		byIdent: make(map[string]string),
	}
}

// Seed inserts or replaces a credential record. Identifier lookups match
// both the username and the email.
func (m *Memory) Seed(cred goBroker.Credential) {
	if cred.UserID == "" {
		cred.UserID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.byID[cred.UserID]; ok {
		delete(m.byIdent, old.Username)
		delete(m.byIdent, old.Email)
	}
	c := cloneCredential(&cred)
	m.byID[cred.UserID] = c
	if c.Username != "" {
		m.byIdent[c.Username] = c.UserID
	}
	if c.Email != "" {
		m.byIdent[c.Email] = c.UserID
	}
}

func (m *Memory) GetByIdentifier(ctx context.Context, identifier string) (*goBroker.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byIdent[normalizeIdentifier(identifier)]
	if !ok {
		return nil, goBroker.ErrUserNotFound
	}
	return cloneCredential(m.byID[id]), nil
}

func (m *Memory) GetByID(ctx context.Context, userID string) (*goBroker.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.byID[userID]
	if !ok {
		return nil, goBroker.ErrUserNotFound
	}
	return cloneCredential(c), nil
}

func (m *Memory) TokenVersion(ctx context.Context, userID string) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.byID[userID]
	if !ok {
		return 0, goBroker.ErrUserNotFound
	}
	return c.TokenVersion, nil
}

func (m *Memory) BumpTokenVersion(ctx context.Context, userID string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byID[userID]
	if !ok {
		return 0, goBroker.ErrUserNotFound
	}
	c.TokenVersion++
	return c.TokenVersion, nil
}

func (m *Memory) UpdatePassword(ctx context.Context, userID string, newHash string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byID[userID]
	if !ok {
		return 0, goBroker.ErrUserNotFound
	}
	c.PasswordHash = newHash
	c.TokenVersion++
	return c.TokenVersion, nil
}

func (m *Memory) UpdateStatus(ctx context.Context, userID string, status goBroker.AccountStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byID[userID]
	if !ok {
		return goBroker.ErrUserNotFound
	}
	c.Status = status
	return nil
}

func (m *Memory) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[userID]; !ok {
		return goBroker.ErrUserNotFound
	}
	return nil
}

func (m *Memory) SetTOTP(ctx context.Context, userID string, secret []byte, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byID[userID]
	if !ok {
		return goBroker.ErrUserNotFound
	}
	if secret == nil {
		c.TOTPSecret = nil
	} else {
		c.TOTPSecret = append([]byte(nil), secret...)
	}
	c.TwoFactorEnabled = enabled
	if !enabled {
		c.TOTPLastCounter = 0
	}
	return nil
}

func (m *Memory) UpdateTOTPLastCounter(ctx context.Context, userID string, counter int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byID[userID]
	if !ok {
		return goBroker.ErrUserNotFound
	}
	if counter > c.TOTPLastCounter {
		c.TOTPLastCounter = counter
	}
	return nil
}

func cloneCredential(c *goBroker.Credential) *goBroker.Credential {
	out := *c
	out.TOTPSecret = append([]byte(nil), c.TOTPSecret...)
	out.Permissions = append([]string(nil), c.Permissions...)
	out.SecurityAnswerHashes = append([]string(nil), c.SecurityAnswerHashes...)
	if len(c.TOTPSecret) == 0 {
		out.TOTPSecret = nil
	}
	return &out
}

// normalizeIdentifier trims surrounding whitespace. Matching stays
// case-sensitive: "Alice" and "alice" are different accounts.
func normalizeIdentifier(identifier string) string {
	return strings.TrimSpace(identifier)
}
