// Package flows contains the orchestrators behind every Client operation.
//
// RunSend is a pure function over a typed dependency struct, like the rest of
// the flows. [Coordinator] is the one stateful exception: it owns the refresh
// state machine and the queue of callers waiting on an in-flight refresh.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the transport, the credential store and
// the owner callbacks. They do NOT own any of these resources; ownership stays
// with the Client.
//
// # What this package must NOT do
//
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
//   - Invoke owner callbacks while holding the coordinator lock.
package flows
