// Package tracing wraps OpenTelemetry span management for the kernel
// runtime. Simulation runs are bracketed in spans so that host-side tooling
// can correlate kernel activity with the rest of a test bench. All
// instrumentation lives in this package so that callers never import the
// OpenTelemetry API directly.
package tracing
