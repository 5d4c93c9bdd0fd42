// Package otel publishes goSession client metrics through the OpenTelemetry
// metric API.
//
// [NewExporter] registers one Int64ObservableCounter per client counter and
// flattens the refresh latency histogram into cumulative bucket gauges. A single
// callback reads [goSession.Client.MetricsSnapshot] on each collection.
//
// The caller owns the MeterProvider and supplies the Meter.
package otel
