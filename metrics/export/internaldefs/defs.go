package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef maps a client counter to its exported name.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef maps a client histogram to its exported name.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goSession.MetricRequestSent, Name: "gosession_request_sent_total", Help: "Requests dispatched by Send."},
	{ID: goSession.MetricRequestFailed, Name: "gosession_request_failed_total", Help: "Send calls that returned an error."},
	{ID: goSession.MetricAuthFailure, Name: "gosession_auth_failure_total", Help: "Responses classified as an expired or invalid credential."},
	{ID: goSession.MetricRefreshStarted, Name: "gosession_refresh_started_total", Help: "Refresh cycles started by a leading caller."},
	{ID: goSession.MetricRefreshJoined, Name: "gosession_refresh_joined_total", Help: "Callers queued behind an in-flight refresh."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Refresh cycles that produced a credential."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Refresh cycles that failed."},
	{ID: goSession.MetricReplaySuccess, Name: "gosession_replay_success_total", Help: "Requests replayed successfully with a fresh credential."},
	{ID: goSession.MetricReplayFailure, Name: "gosession_replay_failure_total", Help: "Replayed requests that failed."},
	{ID: goSession.MetricSignOutForced, Name: "gosession_sign_out_forced_total", Help: "Sign-outs forced by the client."},
	{ID: goSession.MetricCredentialUpdated, Name: "gosession_credential_updated_total", Help: "Credential-updated notifications."},
	{ID: goSession.MetricSignIn, Name: "gosession_sign_in_total", Help: "Successful sign-ins."},
	{ID: goSession.MetricSignInFailure, Name: "gosession_sign_in_failure_total", Help: "Failed sign-ins."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricRefreshLatency, Name: "gosession_refresh_latency_seconds", Help: "Refresh cycle latency histogram."},
}

// AuditDroppedName is the counter for audit events dropped under backpressure.
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the upper bounds of the client buckets in seconds; the
// last bucket is unbounded.
var HistogramBounds = []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// HistogramBoundSuffix names each bucket, including +Inf, for exporters that
// flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-width bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
