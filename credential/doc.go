// Package credential provides the credential model and durable stores for the
// access/refresh token pair a session client presents to its API.
//
// # Record encoding
//
// Records are stored as a small versioned JSON envelope. Decode rejects unknown
// versions with [ErrRecordCorrupt] instead of guessing at their layout.
//
// # Architecture boundaries
//
// This package owns the [Store] contract and its Redis, Postgres and in-memory
// implementations. It does NOT decide when to refresh, talk to the API, or
// notify session owners; those responsibilities belong to the client.
//
// # What this package must NOT do
//
//   - Import goSession, transport, or internal/flows.
//   - Encrypt tokens at rest.
package credential
