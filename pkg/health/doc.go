/*
Package health implements the four independent health probes that drive the
canary state machine.

The probes are:

  - liveness: the service health endpoint, including the per-dependency
    status of the canary component
  - circuit_breaker: the breaker state gauge read from the metrics endpoint
    (only CLOSED passes)
  - error_budget: recent service log lines scanned for error markers
  - smoke_test: the external end-to-end suite run as a subprocess

Each probe carries its own timeout and converts every failure mode, including
an unreachable target, into a failing check result rather than an error. The
Aggregator runs all four every cycle without short-circuiting and reports the
cycle's failure count to the caller.
*/
package health
