/*
Package types defines the core data structures shared across Shepherd packages.

The controller has exactly two top-level aggregates: RolloutState, the canary
state machine's single mutable record, and RollbackOperation, the per-invocation
audit record of the rollback orchestrator. Both are owned by a single control
loop at a time; no locking is needed because there is exactly one writer.

CheckResult and BackupRecord are the supporting value types: probe outcomes
(ephemeral, one per check per cycle) and snapshot metadata (immutable once
written).

The package also carries the error taxonomy. Configuration errors are fatal,
connectivity errors downgrade to failing checks, validation errors drive state
transitions, and stage timeouts fail the current operation while preserving
any safety backup already taken.
*/
package types
