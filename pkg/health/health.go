package health

import (
	"context"
	"time"

	"github.com/cuemby/shepherd/pkg/types"
)

// Checker is the interface all health probes implement. A probe never returns
// an error: an unreachable target is a failing check, not a crash.
type Checker interface {
	// Check performs the probe and returns the result
	Check(ctx context.Context) types.CheckResult

	// Type returns the probe type
	Type() types.CheckType
}

// failure builds a failing CheckResult for a probe.
func failure(ct types.CheckType, start time.Time, message string) types.CheckResult {
	return types.CheckResult{
		Type:      ct,
		Pass:      false,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}
