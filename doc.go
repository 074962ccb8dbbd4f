// Package goBroker is an authentication broker: it verifies credentials,
// issues and validates signed session tokens with version-based revocation,
// brokers the PKCE authorization-code exchange, and enforces double-submit
// CSRF and per-IP login throttling.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goBroker is the public surface. It exposes [Engine], [Builder], [Config],
// the sentinel errors, and value types (Claims, LoginResult, AuthorizeResult,
// etc.). Credential persistence stays behind [CredentialProvider]; transient
// protocol state (codes, CSRF pairs, rate buckets) lives under internal/ in
// injectable stores with in-memory defaults and Redis alternatives.
//
// # What this package must NOT do
//
//   - Expose store implementations, Redis clients, or encoding details in its
//     public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Trust role or permission claims before the token-version check.
//
// # Revocation model
//
// There is no token blacklist. A per-user token_version counter is embedded
// at issuance and compared on every verification; bumping the counter
// revokes every outstanding token for that user in O(1), at the cost of
// never being able to revoke a single session on its own.
package goBroker
