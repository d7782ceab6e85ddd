/*
Package canary implements the progressive rollout state machine.

The controller walks an ordered percentage ladder. Each rung gets a fixed
budget of check cycles; every cycle runs all four health probes and
accumulates failures. Hitting the failure threshold rolls traffic back one
rung and spends one retry; hitting it at the lowest rung disables the canary
entirely. A rung that survives its full check budget advances, and surviving
the last rung completes the rollout.

Terminal outcomes are Completed, Disabled and MaxRetriesExceeded. All
deployment mutation goes through the injected configstore.Store and
workload.Controller, so the state machine is fully testable without real
infrastructure.
*/
package canary
