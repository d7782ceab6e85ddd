/*
Package rollback orchestrates the four recovery strategies: database-only,
application, complete-system and emergency.

Every operation walks a strict stage order: confirm, safety backup, stop,
restore and/or retag, start, readiness poll, settle, smoke-test validation,
annotation. Each stage has a bounded timeout and any stage failure aborts the
remaining stages, leaving the operation Failed with its safety backup
preserved for manual recovery. A failed operation is never retried
automatically; the operator must confirm a new one.

Emergency is the fast path for transient hangs: it skips the safety backup,
restore-point selection and data restore, performing only a stop/start cycle
on the current data and image.
*/
package rollback
