// Package prometheus exposes engine metrics in the Prometheus text format
// without depending on a Prometheus client. Mount [Exporter.Handler] on
// your own mux; nothing is registered globally.
//
// Counters are named authgate_*_total. The latency histograms,
// authgate_login_latency_seconds and authgate_twofa_latency_seconds, are
// only written when the engine records them.
package prometheus
