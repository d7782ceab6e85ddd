/*
Package metrics covers both directions of Shepherd's metrics traffic.

The package-level collectors export the controller's own telemetry (rollout
step, probe failures, rollback stage durations, backup counts) via the
standard promhttp handler.

QueryClient reads the monitored system's metrics back out of a
Prometheus-compatible HTTP API: the circuit-breaker state gauge, the per-job
up gauge, generation counters and request-duration histograms. All lookups
are by metric name and label.
*/
package metrics
