package stores

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrCodeNotFound is returned when an authorization code has no record,
	// whether it never existed, was already redeemed, or was swept.
	ErrCodeNotFound = errors.New("authorization code not found")
	// ErrCodeBackend is returned when the backing store is unreachable.
	ErrCodeBackend = errors.New("authorization code backend unavailable")
)

// AuthorizationCode is the record bound to a pending PKCE exchange. The
// identity fields are captured at issuance time from the authenticated
// session; the challenge fields bind redemption to the original requester.
type AuthorizationCode struct {
	UserID          string
	Username        string
	Email           string
	Role            string
	CodeChallenge   string
	ChallengeMethod string
	State           string
	RedirectURI     string
	CreatedAt       int64
	ExpiresAt       int64
}

// CodeStore persists pending authorization codes. Take must be atomic:
// two concurrent Take calls for the same code must never both succeed,
// since PKCE single-use semantics depend on it.
type CodeStore interface {
	Put(ctx context.Context, code string, record *AuthorizationCode, ttl time.Duration) error

	// Take removes and returns the record in a single step. The record is
	// gone after Take regardless of what the caller decides about it.
	// Expiry is NOT checked here; callers must check ExpiresAt themselves.
	Take(ctx context.Context, code string) (*AuthorizationCode, error)

	// Sweep drops records past their expiry. Advisory cleanup only.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// MemoryCodeStore is the default single-process CodeStore.
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]*AuthorizationCode
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{codes: make(map[string]*AuthorizationCode)}
}

func (s *MemoryCodeStore) Put(_ context.Context, code string, record *AuthorizationCode, _ time.Duration) error {
	cp := *record
	s.mu.Lock()
	s.codes[code] = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryCodeStore) Take(_ context.Context, code string) (*AuthorizationCode, error) {
	s.mu.Lock()
	record, ok := s.codes[code]
	if ok {
		delete(s.codes, code)
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrCodeNotFound
	}
	return record, nil
}

func (s *MemoryCodeStore) Sweep(_ context.Context, now time.Time) (int, error) {
	cutoff := now.Unix()
	removed := 0

	s.mu.Lock()
	for code, record := range s.codes {
		if cutoff > record.ExpiresAt {
			delete(s.codes, code)
			removed++
		}
	}
	s.mu.Unlock()

	return removed, nil
}
