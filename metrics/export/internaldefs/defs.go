package internaldefs

import (
	tgAuth "github.com/MrEthical07/tgAuth"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   tgAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   tgAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "tgauth_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

var CounterDefs = []CounterDef{
	{ID: tgAuth.MetricVerifySuccess, Name: "tgauth_verify_success_total", Help: "Launch payloads that passed every check."},
	{ID: tgAuth.MetricVerifyFailure, Name: "tgauth_verify_failure_total", Help: "Launch payloads rejected for any reason."},
	{ID: tgAuth.MetricMissingHash, Name: "tgauth_verify_missing_hash_total", Help: "Launch payloads without a hash field."},
	{ID: tgAuth.MetricSignatureInvalid, Name: "tgauth_verify_signature_invalid_total", Help: "Launch payloads with a bad signature."},
	{ID: tgAuth.MetricStalePayload, Name: "tgauth_verify_stale_total", Help: "Launch payloads outside the freshness window."},
	{ID: tgAuth.MetricMalformedUser, Name: "tgauth_verify_malformed_user_total", Help: "Verified launch payloads without a usable user."},
	{ID: tgAuth.MetricReplayDetected, Name: "tgauth_replay_detected_total", Help: "Launch payload hashes presented more than once."},
	{ID: tgAuth.MetricRateLimitHit, Name: "tgauth_rate_limit_hit_total", Help: "Verifications refused by the failure throttle."},
	{ID: tgAuth.MetricUpstreamError, Name: "tgauth_upstream_error_total", Help: "Backend failures during issue or validate."},
	{ID: tgAuth.MetricSessionIssued, Name: "tgauth_session_issued_total", Help: "Issued sessions."},
	{ID: tgAuth.MetricSessionReplaced, Name: "tgauth_session_replaced_total", Help: "Sessions revoked by the single-session policy."},
	{ID: tgAuth.MetricSessionRevoked, Name: "tgauth_session_revoked_total", Help: "Sessions revoked by logout or admin action."},
	{ID: tgAuth.MetricValidateSuccess, Name: "tgauth_validate_success_total", Help: "Session tokens accepted."},
	{ID: tgAuth.MetricValidateFailure, Name: "tgauth_validate_failure_total", Help: "Session tokens rejected."},
}

var HistogramDefs = []HistogramDef{
	{ID: tgAuth.MetricValidateLatency, Name: "tgauth_validate_latency_seconds", Help: "Session validation latency."},
	{ID: tgAuth.MetricIssueLatency, Name: "tgauth_issue_latency_seconds", Help: "Launch payload exchange latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine
// keeps one more overflow bucket.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names every bucket, overflow included, for exporters
// that flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the engine's eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
