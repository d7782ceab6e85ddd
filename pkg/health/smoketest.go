package health

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
	"unicode/utf8"

	"github.com/cuemby/shepherd/pkg/types"
)

// SmokeTestChecker runs the end-to-end validation suite as a subprocess.
// The suite reports its own pass/fail through its exit status: zero means
// zero failures.
type SmokeTestChecker struct {
	// Command is the smoke-test executable and its arguments
	Command []string

	// Timeout bounds the whole suite run
	Timeout time.Duration
}

// NewSmokeTestChecker creates a smoke-test probe for the given command.
func NewSmokeTestChecker(command []string) *SmokeTestChecker {
	return &SmokeTestChecker{
		Command: command,
		Timeout: 2 * time.Minute,
	}
}

// Check runs the smoke-test suite
func (s *SmokeTestChecker) Check(ctx context.Context) types.CheckResult {
	start := time.Now()

	if len(s.Command) == 0 {
		return failure(types.CheckSmokeTest, start, "no smoke-test command configured")
	}

	execCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, s.Command[0], s.Command[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if execCtx.Err() == context.DeadlineExceeded {
		return failure(types.CheckSmokeTest, start, fmt.Sprintf("smoke test timed out after %v", s.Timeout))
	}
	if err != nil {
		message := fmt.Sprintf("smoke test failed: %v", err)
		if stderr.Len() > 0 {
			message = fmt.Sprintf("%s, stderr: %s", message, truncate(stderr.String(), 200))
		}
		return failure(types.CheckSmokeTest, start, message)
	}

	return types.CheckResult{
		Type:      types.CheckSmokeTest,
		Pass:      true,
		RawValue:  "0",
		Message:   fmt.Sprintf("smoke test passed in %v", time.Since(start).Round(time.Millisecond)),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the probe type
func (s *SmokeTestChecker) Type() types.CheckType {
	return types.CheckSmokeTest
}

// WithTimeout sets the suite timeout
func (s *SmokeTestChecker) WithTimeout(timeout time.Duration) *SmokeTestChecker {
	s.Timeout = timeout
	return s
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
