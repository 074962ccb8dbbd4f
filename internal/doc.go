// Package internal contains helper utilities that are intentionally private to goBroker,
// including secure random generation for session IDs, authorization codes, and CSRF secrets.
//
// # Sub-packages
//
//   - rate — fixed-window login rate limiting (memory and Redis backends)
//   - stores — authorization-code and CSRF-pair stores (memory and Redis backends)
//
// # What this package must NOT do
//
//   - Export types that appear in the public goBroker API.
//   - Be imported by any package outside the goBroker module.
package internal
