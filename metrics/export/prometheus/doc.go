// Package prometheus exposes goSession client metrics through
// prometheus/client_golang.
//
// [NewCollector] wraps a [goSession.Client] in a [prometheus.Collector]. Register it
// with any registry, or mount [Collector.Handler] to serve it from a private one.
// Counter names are prefixed gosession_*_total; the single histogram is
// gosession_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry.
//   - Mutate client state.
package prometheus
