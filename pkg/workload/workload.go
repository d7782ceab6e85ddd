package workload

import (
	"context"
	"time"
)

// Controller stops, starts and restarts the managed workload. Every call is
// synchronous with a bounded timeout; a timeout surfaces as an explicit error
// and never as an indefinite block or a silent force-kill.
type Controller interface {
	// Stop stops the named services, or the whole workload when none given
	Stop(ctx context.Context, services ...string) error

	// Start starts the named services, or the whole workload when none given
	Start(ctx context.Context, services ...string) error

	// Restart restarts the named services, or the whole workload
	Restart(ctx context.Context, services ...string) error

	// WaitReady polls service readiness up to attempts times with the given
	// interval between polls, returning an error on exhaustion
	WaitReady(ctx context.Context, attempts int, interval time.Duration) error

	// RecentLogs returns the most recent output lines for a service
	RecentLogs(ctx context.Context, service string, lines int) ([]string, error)
}
