package goBroker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goBroker/password"
)

// mapProvider is a minimal in-memory CredentialProvider for engine tests.
type mapProvider struct {
	mu    sync.Mutex
	users map[string]*Credential
	fail  bool // force backend errors
}

func newMapProvider() *mapProvider {
	return &mapProvider{users: make(map[string]*Credential)}
}

func (p *mapProvider) put(cred *Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[cred.UserID] = cred
}

func (p *mapProvider) GetByIdentifier(ctx context.Context, identifier string) (*Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, context.DeadlineExceeded
	}
	for _, u := range p.users {
		if u.Username == identifier || u.Email == identifier {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrUserNotFound
}

func (p *mapProvider) GetByID(ctx context.Context, userID string) (*Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, context.DeadlineExceeded
	}
	u, ok := p.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (p *mapProvider) TokenVersion(ctx context.Context, userID string) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return 0, context.DeadlineExceeded
	}
	u, ok := p.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return u.TokenVersion, nil
}

func (p *mapProvider) BumpTokenVersion(ctx context.Context, userID string) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	u.TokenVersion++
	return u.TokenVersion, nil
}

func (p *mapProvider) UpdatePassword(ctx context.Context, userID string, newHash string) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	u.PasswordHash = newHash
	u.TokenVersion++
	return u.TokenVersion, nil
}

func (p *mapProvider) UpdateStatus(ctx context.Context, userID string, status AccountStatus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Status = status
	return nil
}

func (p *mapProvider) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return nil
}

func (p *mapProvider) SetTOTP(ctx context.Context, userID string, secret []byte, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.TOTPSecret = secret
	u.TwoFactorEnabled = enabled
	if !enabled {
		u.TOTPLastCounter = 0
	}
	return nil
}

func (p *mapProvider) UpdateTOTPLastCounter(ctx context.Context, userID string, counter int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if counter > u.TOTPLastCounter {
		u.TOTPLastCounter = counter
	}
	return nil
}

func engineTestConfig() Config {
	cfg := defaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Janitor.Interval = time.Minute
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, provider CredentialProvider) *Engine {
	t.Helper()
	engine, err := New().
		WithConfig(cfg).
		WithCredentialProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func testHash(t *testing.T, cfg Config, pass string) string {
	t.Helper()
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	hash, err := hasher.Hash(pass)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	return hash
}

func seedAlice(t *testing.T, cfg Config, p *mapProvider) {
	t.Helper()
	p.put(&Credential{
		UserID:       "u1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: testHash(t, cfg, "correct-horse-battery"),
		Status:       AccountActive,
		Role:         "admin",
		Permissions:  []string{"read", "write"},
	})
}
