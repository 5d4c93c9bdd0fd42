// Package goSession provides a client-side session layer for token-protected
// HTTP APIs. A [Client] stamps every outgoing request with the current bearer
// credential, recognizes expired-credential replies, refreshes the credential
// once no matter how many requests failed concurrently, and replays each failed
// request exactly once with the new credential.
//
// Client methods are safe to call from multiple goroutines after construction
// through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Client], [Builder], [Config],
// [Registration] and value types (MetricsSnapshot, AuditEvent, ClientError).
// Refresh coordination and the send/replay flow live under internal/flows and
// are never exported. Durable storage is pluggable through credential.Store and
// the wire through transport.Transport.
//
// # Owner callbacks
//
// The owning application attaches two callbacks with [Client.Attach]: sign-out,
// invoked when the session can no longer be recovered, and credential-updated,
// invoked once per successful refresh. At most one owner is attached at a time.
//
// # Refresh contract
//
// While a refresh is in flight no request triggers a second one. Callers that
// hit an expired credential during that window wait for the in-flight refresh
// and are released in arrival order. A failed refresh fails every waiter and
// signs the owner out once.
package goSession
