package stores

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrPairNotFound is returned when no CSRF pair exists for a session.
	ErrPairNotFound = errors.New("csrf pair not found")
	// ErrPairBackend is returned when the backing store is unreachable.
	ErrPairBackend = errors.New("csrf pair backend unavailable")
)

// CSRFPair is the server half of the double-submit defense: the same
// secret is mirrored to the client as a readable cookie and must come
// back in a header on every mutating request.
type CSRFPair struct {
	Secret    string
	ExpiresAt int64
}

// PairStore persists CSRF pairs keyed by session ID.
type PairStore interface {
	Put(ctx context.Context, sessionID string, pair *CSRFPair, ttl time.Duration) error

	// Get returns the pair without checking expiry; callers compare
	// ExpiresAt themselves so the guard never depends on the sweep.
	Get(ctx context.Context, sessionID string) (*CSRFPair, error)

	Delete(ctx context.Context, sessionID string) (bool, error)

	Sweep(ctx context.Context, now time.Time) (int, error)
}

// MemoryPairStore is the default single-process PairStore.
type MemoryPairStore struct {
	mu    sync.Mutex
	pairs map[string]*CSRFPair
}

func NewMemoryPairStore() *MemoryPairStore {
	return &MemoryPairStore{pairs: make(map[string]*CSRFPair)}
}

func (s *MemoryPairStore) Put(_ context.Context, sessionID string, pair *CSRFPair, _ time.Duration) error {
	cp := *pair
	s.mu.Lock()
	s.pairs[sessionID] = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryPairStore) Get(_ context.Context, sessionID string) (*CSRFPair, error) {
	s.mu.Lock()
	pair, ok := s.pairs[sessionID]
	s.mu.Unlock()

	if !ok {
		return nil, ErrPairNotFound
	}
	cp := *pair
	return &cp, nil
}

func (s *MemoryPairStore) Delete(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	_, ok := s.pairs[sessionID]
	if ok {
		delete(s.pairs, sessionID)
	}
	s.mu.Unlock()
	return ok, nil
}

func (s *MemoryPairStore) Sweep(_ context.Context, now time.Time) (int, error) {
	cutoff := now.Unix()
	removed := 0

	s.mu.Lock()
	for sessionID, pair := range s.pairs {
		if cutoff > pair.ExpiresAt {
			delete(s.pairs, sessionID)
			removed++
		}
	}
	s.mu.Unlock()

	return removed, nil
}
