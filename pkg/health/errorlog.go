package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cuemby/shepherd/pkg/types"
)

// DefaultMaxErrors is how many recent error lines a service may show before
// the error-budget probe fails.
const DefaultMaxErrors = 2

// LogSource returns the most recent lines of a service's output. Implemented
// by workload.ComposeController in production and a fake in tests.
type LogSource interface {
	RecentLogs(ctx context.Context, service string, lines int) ([]string, error)
}

// ErrorLogChecker scans recent service output for error markers. It looks at
// content, not line position, so interleaved output from other services does
// not skew the count.
type ErrorLogChecker struct {
	// Service scopes the scan to one service's output
	Service string

	// Source provides the log lines
	Source LogSource

	// WindowLines is how many recent lines to scan
	WindowLines int

	// MaxErrors is the error budget; counts above it fail the probe
	MaxErrors int

	// Timeout bounds the log fetch
	Timeout time.Duration
}

// errorMarkers are the substrings counted as errors, matched case-insensitively.
var errorMarkers = []string{"error", "panic", "fatal"}

// NewErrorLogChecker creates an error-budget probe for a service.
func NewErrorLogChecker(service string, source LogSource) *ErrorLogChecker {
	return &ErrorLogChecker{
		Service:     service,
		Source:      source,
		WindowLines: 100,
		MaxErrors:   DefaultMaxErrors,
		Timeout:     15 * time.Second,
	}
}

// Check performs the error-budget probe
func (e *ErrorLogChecker) Check(ctx context.Context) types.CheckResult {
	start := time.Now()

	fetchCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	lines, err := e.Source.RecentLogs(fetchCtx, e.Service, e.WindowLines)
	if err != nil {
		return failure(types.CheckErrorBudget, start, fmt.Sprintf("failed to read service logs: %v", err))
	}

	count := 0
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, marker := range errorMarkers {
			if strings.Contains(lower, marker) {
				count++
				break
			}
		}
	}

	pass := count <= e.MaxErrors
	message := fmt.Sprintf("%d error lines in last %d (budget %d)", count, e.WindowLines, e.MaxErrors)

	return types.CheckResult{
		Type:      types.CheckErrorBudget,
		Pass:      pass,
		RawValue:  fmt.Sprintf("%d", count),
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the probe type
func (e *ErrorLogChecker) Type() types.CheckType {
	return types.CheckErrorBudget
}

// WithWindow sets the number of recent lines to scan
func (e *ErrorLogChecker) WithWindow(lines int) *ErrorLogChecker {
	e.WindowLines = lines
	return e
}

// WithBudget sets the maximum tolerated error count
func (e *ErrorLogChecker) WithBudget(maxErrors int) *ErrorLogChecker {
	e.MaxErrors = maxErrors
	return e
}
