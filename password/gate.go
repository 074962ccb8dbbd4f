package password

import "context"

// Gate bounds how many Argon2id derivations run at once. Hashing is
// deliberately slow and memory-hungry; without a bound a burst of logins
// can starve every other request of CPU.
type Gate struct {
	slots chan struct{}
}

// NewGate returns a gate admitting at most size concurrent derivations.
// A non-positive size admits one at a time.
func NewGate(size int) *Gate {
	if size <= 0 {
		size = 1
	}
	return &Gate{slots: make(chan struct{}, size)}
}

// Do runs fn once a slot is free, or returns the context error if the
// caller gives up first.
func (g *Gate) Do(ctx context.Context, fn func()) error {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.slots }()

	fn()
	return nil
}
