// Package rate provides the fixed-window login attempt limiter used by the
// broker's login entry point.
//
// # Window semantics
//
// Fixed-window counters keyed by client IP: every attempt increments the
// bucket, the first increment starts the window, and the count resets on
// window rollover or explicitly on successful login. The Redis backend uses
// INCR + conditional EXPIRE under the "bal:" key prefix; the memory backend
// is a mutex-guarded map with lazy rollover.
//
// # What this package must NOT do
//
//   - Decide which operations are limited (the Engine wires it to login only).
//   - Be imported outside the goBroker module.
package rate
