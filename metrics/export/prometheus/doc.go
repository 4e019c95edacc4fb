// Package prometheus exposes engine metrics as a prometheus.Collector.
//
// The collector reads an engine snapshot on every scrape and emits const
// metrics, so nothing is registered globally unless the caller registers the
// collector. Counter names are tgauth_*_total; the single histogram is
// tgauth_validate_latency_seconds.
package prometheus
