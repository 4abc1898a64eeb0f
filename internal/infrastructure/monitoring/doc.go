// Package monitoring collects Prometheus metrics for the session engine:
// HTTP request metrics via gin middleware, session gauges, reconciliation
// and cache counters, and takeover counts.
package monitoring
