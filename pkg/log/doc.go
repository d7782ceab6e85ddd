/*
Package log provides structured logging for Shepherd built on zerolog.

All packages log through the shared global logger, initialized once at process
start. Child loggers add component and operation fields for filtering.

When an audit file is configured, every log line is additionally appended as
JSON to a durable file. Controller actions (percentage changes, restarts,
rollback stages, backup creation) must go through this logger so the audit
trail is complete.
*/
package log
