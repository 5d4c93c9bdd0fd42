// Package transport defines the request/response contract the session client
// dispatches through, and an HTTP implementation of it.
//
// # Failure model
//
// A [Transport] returns either a [Response] for a 2xx reply or an [*Error]. An
// [*Error] with a non-zero StatusCode is a server-reported failure carrying the
// decoded server message and code; an [*Error] with StatusCode 0 is a network or
// connection failure and wraps the underlying cause.
//
// # What this package must NOT do
//
//   - Attach credentials or interpret authentication failures.
//   - Retry failed requests.
//   - Import goSession or credential.
package transport
