package internaldefs

import (
	"github.com/gofinances/sessionkit"
)

// CounterDef names one sessionkit counter.
type CounterDef struct {
	ID   sessionkit.MetricID
	Name string
	Help string
}

// HistogramDef names one sessionkit histogram.
type HistogramDef struct {
	ID   sessionkit.MetricID
	Name string
	Help string
}

const (
	// AuditDroppedName is the series for audit events lost to backpressure.
	AuditDroppedName = "sessionkit_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: sessionkit.MetricSignInSuccess, Name: "sessionkit_sign_in_success_total", Help: "Completed sign-ins."},
	{ID: sessionkit.MetricSignInNetworkError, Name: "sessionkit_sign_in_network_error_total", Help: "Sign-ins that could not reach the lookup endpoint."},
	{ID: sessionkit.MetricSignInRejected, Name: "sessionkit_sign_in_rejected_total", Help: "Sign-ins rejected by the lookup endpoint."},
	{ID: sessionkit.MetricSignInFailure, Name: "sessionkit_sign_in_failure_total", Help: "Sign-ins failed on invalid input or storage."},
	{ID: sessionkit.MetricSignOut, Name: "sessionkit_sign_out_total", Help: "Sign-outs that cleared a session."},
	{ID: sessionkit.MetricRestoreHit, Name: "sessionkit_restore_hit_total", Help: "Startups that restored a cached user."},
	{ID: sessionkit.MetricRestoreMiss, Name: "sessionkit_restore_miss_total", Help: "Startups without a cached user."},
	{ID: sessionkit.MetricRestoreCorrupt, Name: "sessionkit_restore_corrupt_total", Help: "Startups whose cached record was malformed."},
	{ID: sessionkit.MetricStorageFailure, Name: "sessionkit_storage_failure_total", Help: "Durable storage errors."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: sessionkit.MetricSignInLatency, Name: "sessionkit_sign_in_latency_seconds", Help: "Sign-in lookup round-trip latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth
// bucket is +Inf.
var HistogramUpperBounds = [7]float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// HistogramBoundSuffix names each bucket for backends without native
// histograms.
var HistogramBoundSuffix = [8]string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
