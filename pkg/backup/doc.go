/*
Package backup creates and restores point-in-time snapshots of the persisted
store.

Snapshots are timestamped pg_dump artifacts discovered from the backup
directory by modification time, so the newest snapshot can be selected
without an explicit id. A restore always takes an implicit safety backup
first, applies the dump in a single transaction, then validates the expected
tables are present before reporting success. Per-table row counts are
captured before and after for the audit trail.

Both dump and restore run as subprocesses under a fixed time budget; a
hanging tool fails the operation explicitly instead of blocking the
controller.
*/
package backup
