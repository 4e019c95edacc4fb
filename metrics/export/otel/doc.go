// Package otel publishes engine metrics through an OpenTelemetry Meter.
//
// Every engine counter becomes an Int64ObservableCounter and every histogram
// bucket an Int64ObservableGauge. One callback reads the engine snapshot per
// collection cycle. The caller owns the MeterProvider.
package otel
