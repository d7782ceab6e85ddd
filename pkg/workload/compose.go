package workload

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cuemby/shepherd/pkg/log"
	"github.com/cuemby/shepherd/pkg/types"
)

// ComposeController drives a Docker Compose project. Each operation shells
// out to `docker compose` with a bounded timeout.
type ComposeController struct {
	// ComposeFile is the compose file path; empty uses the compose default
	ComposeFile string

	// Project is the compose project name; empty uses the compose default
	Project string

	// StopTimeout bounds a stop operation
	StopTimeout time.Duration

	// StartTimeout bounds a start operation
	StartTimeout time.Duration
}

// NewComposeController creates a controller for the given compose project.
func NewComposeController(composeFile, project string) *ComposeController {
	return &ComposeController{
		ComposeFile:  composeFile,
		Project:      project,
		StopTimeout:  2 * time.Minute,
		StartTimeout: 3 * time.Minute,
	}
}

// Stop stops the named services
func (c *ComposeController) Stop(ctx context.Context, services ...string) error {
	args := append([]string{"stop"}, services...)
	if _, err := c.run(ctx, c.StopTimeout, args...); err != nil {
		return fmt.Errorf("failed to stop workload: %w", err)
	}
	return nil
}

// Start starts the named services
func (c *ComposeController) Start(ctx context.Context, services ...string) error {
	args := append([]string{"up", "-d"}, services...)
	if _, err := c.run(ctx, c.StartTimeout, args...); err != nil {
		return fmt.Errorf("failed to start workload: %w", err)
	}
	return nil
}

// Restart restarts the named services
func (c *ComposeController) Restart(ctx context.Context, services ...string) error {
	args := append([]string{"up", "-d", "--force-recreate"}, services...)
	if _, err := c.run(ctx, c.StartTimeout, args...); err != nil {
		return fmt.Errorf("failed to restart workload: %w", err)
	}
	return nil
}

// WaitReady polls compose service state until every container reports running
// and healthy, or the attempt budget is exhausted.
func (c *ComposeController) WaitReady(ctx context.Context, attempts int, interval time.Duration) error {
	logger := log.WithComponent("workload")

	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := c.run(ctx, 30*time.Second, "ps", "--format", "{{.Name}} {{.State}} {{.Health}}")
		if err == nil && allReady(out) {
			logger.Info().Int("attempt", attempt).Msg("workload ready")
			return nil
		}
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("readiness probe failed")
		} else {
			logger.Debug().Int("attempt", attempt).Msg("workload not ready yet")
		}

		if attempt < attempts {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return fmt.Errorf("%w: readiness wait cancelled: %v", types.ErrStageTimeout, ctx.Err())
			}
		}
	}
	return fmt.Errorf("%w: workload not ready after %d attempts", types.ErrStageTimeout, attempts)
}

// RecentLogs returns the most recent output lines for a service
func (c *ComposeController) RecentLogs(ctx context.Context, service string, lines int) ([]string, error) {
	out, err := c.run(ctx, 30*time.Second, "logs", "--no-color", "--tail", fmt.Sprintf("%d", lines), service)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read logs for %s: %v", types.ErrConnectivity, service, err)
	}
	raw := strings.Split(strings.TrimRight(out, "\n"), "\n")
	result := make([]string, 0, len(raw))
	for _, line := range raw {
		if line != "" {
			result = append(result, line)
		}
	}
	return result, nil
}

// run executes one docker compose invocation with a bounded timeout.
func (c *ComposeController) run(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	full := []string{"compose"}
	if c.ComposeFile != "" {
		full = append(full, "-f", c.ComposeFile)
	}
	if c.Project != "" {
		full = append(full, "-p", c.Project)
	}
	full = append(full, args...)

	cmd := exec.CommandContext(cmdCtx, "docker", full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if cmdCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%w: docker compose %s exceeded %v", types.ErrStageTimeout, args[0], timeout)
	}
	if err != nil {
		return "", fmt.Errorf("docker compose %s failed: %v (%s)", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// allReady parses `docker compose ps` output: every line must report a
// running state and, when a healthcheck exists, a healthy status.
func allReady(psOutput string) bool {
	lines := strings.Split(strings.TrimSpace(psOutput), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return false
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return false
		}
		state := fields[1]
		if state != "running" {
			return false
		}
		if len(fields) >= 3 && fields[2] != "" && fields[2] != "healthy" {
			return false
		}
	}
	return true
}
