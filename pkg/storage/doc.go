/*
Package storage persists Shepherd's durable records in an embedded BoltDB
database: the rollback operation journal, the backup catalog, and the current
rollout state snapshot.

Values are stored as JSON under one bucket per record type. The journal is
append-style: operation records are saved at every status transition so the
audit trail survives a crash mid-operation.
*/
package storage
