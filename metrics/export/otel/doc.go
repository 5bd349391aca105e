// Package otel bridges engine metrics to an OpenTelemetry meter.
//
// Counters become Int64ObservableCounter instruments with the same names
// as the Prometheus exporter. Each latency histogram is published as one
// cumulative gauge per bucket plus a _count gauge, since the engine keeps
// bucket counts only.
package otel
