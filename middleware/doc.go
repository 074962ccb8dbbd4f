// Package middleware exposes HTTP middleware adapters for session and CSRF
// enforcement built on top of goBroker.Engine verification.
//
// # Guards
//
//   - [Guard] — verifies the bearer token (cookie or Authorization header)
//     and injects claims into the request context.
//   - [Mutating] — additionally enforces the X-Requested-With and CSRF
//     double-submit headers on state-changing methods.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement authentication logic itself — all decisions are delegated to
// Engine.Verify and Engine.CheckCSRF.
//
// # What this package must NOT do
//
//   - Parse or create tokens directly (delegates to Engine).
//   - Access any store (Engine handles I/O).
//   - Leak the reason a request was rejected.
package middleware
