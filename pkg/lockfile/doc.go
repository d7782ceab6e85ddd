/*
Package lockfile provides the process-level mutual exclusion used to guarantee
that at most one rollout or rollback runs against a target at a time.

The lock is a pid file created with O_EXCL. Stale locks from dead processes
are detected with a signal-0 probe and reclaimed.
*/
package lockfile
