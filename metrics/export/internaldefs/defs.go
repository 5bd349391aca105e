package internaldefs

import (
	"strconv"
	"strings"

	"github.com/MrEthical07/authgate"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// BucketCount is the number of latency buckets, the unbounded one included.
const BucketCount = len(authgate.HistogramBounds) + 1

var CounterDefs = []CounterDef{
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Logins that returned a session token."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Logins that returned an error."},
	{ID: authgate.MetricLoginRateLimited, Name: "authgate_login_rate_limited_total", Help: "Logins rejected with RATE_LIMIT."},
	{ID: authgate.MetricLoginAborted, Name: "authgate_login_aborted_total", Help: "Logins abandoned by the caller during the delay."},
	{ID: authgate.MetricTwoFARequired, Name: "authgate_twofa_required_total", Help: "Logins that opened a 2FA challenge."},
	{ID: authgate.MetricTwoFASuccess, Name: "authgate_twofa_success_total", Help: "Successful 2FA verifications."},
	{ID: authgate.MetricTwoFAInvalidCode, Name: "authgate_twofa_invalid_code_total", Help: "2FA verifications with a wrong code."},
	{ID: authgate.MetricTwoFACodeExpired, Name: "authgate_twofa_code_expired_total", Help: "2FA verifications past the code window."},
	{ID: authgate.MetricTwoFASessionExpired, Name: "authgate_twofa_session_expired_total", Help: "2FA calls with no live challenge."},
	{ID: authgate.MetricTwoFAResent, Name: "authgate_twofa_resent_total", Help: "2FA codes reissued."},
	{ID: authgate.MetricTwoFAResendFailure, Name: "authgate_twofa_resend_failure_total", Help: "Failed 2FA resends."},
	{ID: authgate.MetricCodeDeliveryFailure, Name: "authgate_code_delivery_failure_total", Help: "One-time codes the sender failed to deliver."},
	{ID: authgate.MetricStoreFailure, Name: "authgate_store_failure_total", Help: "Challenge store backend failures."},
	{ID: authgate.MetricIssueFailure, Name: "authgate_issue_failure_total", Help: "Session token issuance failures."},
}

var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricLoginLatency, Name: "authgate_login_latency_seconds", Help: "Login latency, delay included."},
	{ID: authgate.MetricTwoFALatency, Name: "authgate_twofa_latency_seconds", Help: "2FA verification latency."},
}

// HistogramBounds are the Prometheus "le" labels, in seconds.
var HistogramBounds = bucketLabels()

// HistogramBoundSuffix are HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = bucketSuffixes(HistogramBounds)

func bucketLabels() []string {
	out := make([]string, 0, BucketCount)
	for _, b := range authgate.HistogramBounds {
		out = append(out, strconv.FormatFloat(b.Seconds(), 'g', -1, 64))
	}
	return append(out, "+Inf")
}

func bucketSuffixes(labels []string) []string {
	out := make([]string, len(labels))
	for i, le := range labels {
		if le == "+Inf" {
			out[i] = "inf"
			continue
		}
		out[i] = strings.ReplaceAll(le, ".", "_")
	}
	return out
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
