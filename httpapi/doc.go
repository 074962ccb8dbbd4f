// Package httpapi exposes the broker engine over HTTP.
//
// The handlers translate between the wire protocol (JSON bodies, cookies,
// status codes) and engine calls. All policy lives in the engine: this
// package never inspects passwords, codes, or secrets beyond moving them
// between the request and the engine input structs.
//
// Session transport is a pair of cookies set on login:
//
//   - broker_session: the signed bearer token. HttpOnly, SameSite=Strict.
//   - broker_csrf: the CSRF secret. Readable by the page, echoed back in
//     the X-CSRF-Token header on every mutating call.
//
// # What this package must NOT do
//
//   - Differentiate credential failures. Unknown user, wrong password and
//     wrong TOTP code all produce the same 401 body.
//   - Differentiate PKCE failures on /auth/token. Everything is a 400
//     "invalid grant".
//   - Implement its own CSRF or session checks. That is middleware plus
//     engine territory.
package httpapi
