package rate

import "errors"

var (
	// ErrRateLimited is the sentinel unwrapped by [LimitError].
	ErrRateLimited = errors.New("rate limited")
	// ErrBackendUnavailable is returned when the counter store is unreachable.
	ErrBackendUnavailable = errors.New("rate limit backend unavailable")
)
