// Package stores provides the short-lived record stores behind the broker's
// protocol machinery: pending PKCE authorization codes and CSRF double-submit
// pairs.
//
// # Design
//
// Each concern is an interface with two implementations: a mutex-guarded
// in-process map (the default) and a Redis store using versioned binary
// records with key TTLs. Authorization codes are single-use; CodeStore.Take
// removes the record atomically (map delete under lock, GETDEL on Redis) so
// concurrent redemption attempts cannot both observe a live code.
//
// # Architecture boundaries
//
// Stores persist and hand back records. Expiry decisions, challenge
// verification, and secret comparison belong to the Engine; the periodic
// Sweep is advisory memory reclamation, never a correctness dependency.
//
// # What this package must NOT do
//
//   - Compare secrets or challenges (timing-sensitive logic lives upstream).
//   - Be imported outside the goBroker module.
package stores
