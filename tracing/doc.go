// Package tracing wraps OpenTelemetry so that the dispatcher, workers and
// the value iteration task can open spans without importing the upstream
// packages directly. Until Init (or InitWithExporter) is called spans are
// no-ops.
package tracing
