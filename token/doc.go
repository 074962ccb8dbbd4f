// Package token manages session-token issuance and verification using configured
// signing keys and strict validation semantics. Revocation is version-based: the
// embedded token version must match the credential store's current counter, a
// check that belongs to the Engine rather than this package.
package token
