/*
Package workload abstracts stop/start/restart of the managed services.

The Controller interface keeps the rollout and rollback loops independent of
the container runtime. The production implementation shells out to
`docker compose` with a bounded timeout per invocation; readiness is a
bounded poll over compose's own health reporting, never an indefinite wait.
*/
package workload
