// Package telemetry wires up the OTel tracer provider (stdout span
// exporter) and a Prometheus metrics registry for the ragcore process.
// When telemetry is disabled, Init returns a noop Providers and nothing
// connects to any external service.
package telemetry
