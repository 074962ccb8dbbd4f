// Package credstore ships two reference implementations of the broker's
// CredentialProvider interface: an in-memory store for tests and small
// deployments, and a Postgres store for everything else.
//
// Both normalize stored account status strings through ParseAccountStatus
// exactly once, on read. The engine never sees raw status text.
//
// # What this package must NOT do
//
//   - Hash or verify anything. Stores move opaque hash strings; the
//     password package owns their meaning.
//   - Cache token versions. The version read is the revocation check;
//     a stale cache silently un-revokes sessions.
package credstore
