package canary

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/shepherd/pkg/annotate"
	"github.com/cuemby/shepherd/pkg/config"
	"github.com/cuemby/shepherd/pkg/configstore"
	"github.com/cuemby/shepherd/pkg/health"
	"github.com/cuemby/shepherd/pkg/log"
	"github.com/cuemby/shepherd/pkg/metrics"
	"github.com/cuemby/shepherd/pkg/storage"
	"github.com/cuemby/shepherd/pkg/types"
	"github.com/cuemby/shepherd/pkg/workload"
)

// Controller steps canary traffic up the percentage ladder and rolls it back
// down when health degrades. It is a finite state machine: the states are the
// ladder indices plus the three terminal outcomes, and the only transitions
// are advance, rollback one rung, disable, and abort.
type Controller struct {
	Plan       config.Plan
	Store      configstore.Store
	Workload   workload.Controller
	Aggregator *health.Aggregator
	Journal    storage.Store      // optional state snapshots
	Sink       annotate.Annotator // best-effort

	// CanaryServices are the services restarted when the percentage changes
	CanaryServices []string

	// ReadyAttempts and ReadyInterval bound the post-restart readiness poll
	ReadyAttempts int
	ReadyInterval time.Duration
}

// NewController creates a rollout controller.
func NewController(plan config.Plan, store configstore.Store, ctrl workload.Controller, agg *health.Aggregator) *Controller {
	return &Controller{
		Plan:          plan,
		Store:         store,
		Workload:      ctrl,
		Aggregator:    agg,
		Sink:          annotate.Noop{},
		ReadyAttempts: 10,
		ReadyInterval: 5 * time.Second,
	}
}

// Run executes the rollout until it reaches a terminal outcome. Configuration
// read/write failures are fatal and returned as errors; individual probe
// failures drive the state machine and are never fatal by themselves.
func (c *Controller) Run(ctx context.Context) (types.Outcome, error) {
	logger := log.WithComponent("canary")

	state, err := c.initialState()
	if err != nil {
		return "", err
	}
	c.snapshot(state)

	logger.Info().
		Ints("ladder", state.Ladder).
		Int("step", state.StepIndex).
		Int("percentage", state.Percentage()).
		Msg("starting rollout")
	annotate.BestEffort(ctx, c.Sink, annotate.Annotation{
		Text: fmt.Sprintf("canary rollout started at %d%%", state.Percentage()),
		Tags: []string{"shepherd", "canary"},
	})

	for {
		outcome, done, err := c.runStep(ctx, state)
		if err != nil {
			return "", err
		}
		if done {
			annotate.BestEffort(ctx, c.Sink, annotate.Annotation{
				Text: fmt.Sprintf("canary rollout finished: %s", outcome),
				Tags: []string{"shepherd", "canary"},
			})
			return outcome, nil
		}
	}
}

// initialState derives the state machine's starting index from the currently
// configured percentage. A configured value that is not on the ladder is a
// configuration error: the controller refuses to guess.
func (c *Controller) initialState() (*types.RolloutState, error) {
	pct, err := c.Store.Percentage()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read configured percentage: %v", types.ErrConfiguration, err)
	}

	index := -1
	for i, rung := range c.Plan.Ladder {
		if rung == pct {
			index = i
			break
		}
	}
	if index == -1 {
		return nil, fmt.Errorf("%w: configured percentage %d is not on ladder %v",
			types.ErrConfiguration, pct, c.Plan.Ladder)
	}

	return &types.RolloutState{
		Ladder:     c.Plan.Ladder,
		StepIndex:  index,
		MaxRetries: c.Plan.MaxRetries,
		UpdatedAt:  time.Now(),
	}, nil
}

// runStep runs one rung of the ladder: align configuration, then burn the
// step's full check budget. Returns done=true with a terminal outcome, or
// done=false after a rollback-one-rung transition.
func (c *Controller) runStep(ctx context.Context, state *types.RolloutState) (types.Outcome, bool, error) {
	logger := log.WithComponent("canary")
	target := state.Percentage()

	if err := c.alignPercentage(ctx, target); err != nil {
		return "", false, err
	}
	metrics.RolloutStep.Set(float64(target))

	state.CycleFailures = 0
	for cycle := 1; cycle <= c.Plan.ChecksPerStep; cycle++ {
		if cycle > 1 {
			select {
			case <-time.After(c.Plan.CheckInterval):
			case <-ctx.Done():
				return "", false, fmt.Errorf("rollout cancelled: %w", ctx.Err())
			}
		}

		_, failures := c.Aggregator.RunCycle(ctx)
		state.CycleFailures += failures
		state.UpdatedAt = time.Now()
		c.snapshot(state)

		logger.Info().
			Int("percentage", target).
			Int("cycle", cycle).
			Int("cycle_failures", state.CycleFailures).
			Int("threshold", c.Plan.FailureThreshold).
			Msg("check cycle complete")

		if state.CycleFailures >= c.Plan.FailureThreshold {
			return c.stepDown(ctx, state)
		}
	}

	// Step survived its full check budget: advance.
	state.StepIndex++
	state.CycleFailures = 0
	state.UpdatedAt = time.Now()

	if state.StepIndex >= len(state.Ladder) {
		state.StepIndex = len(state.Ladder) - 1
		c.snapshot(state)
		logger.Info().Msg("rollout completed: full traffic is on the canary path")
		return types.OutcomeCompleted, true, nil
	}

	c.snapshot(state)
	logger.Info().
		Int("percentage", state.Percentage()).
		Msg("advancing to next rung")
	annotate.BestEffort(ctx, c.Sink, annotate.Annotation{
		Text: fmt.Sprintf("canary advanced to %d%%", state.Percentage()),
		Tags: []string{"shepherd", "canary"},
	})
	return "", false, nil
}

// stepDown handles a failed step: roll back one rung, or disable the canary
// entirely when there is no lower rung left.
func (c *Controller) stepDown(ctx context.Context, state *types.RolloutState) (types.Outcome, bool, error) {
	logger := log.WithComponent("canary")

	if state.StepIndex == 0 {
		logger.Error().Msg("failure threshold hit at the lowest rung, disabling canary")
		if err := c.disable(ctx); err != nil {
			return "", false, err
		}
		state.StepIndex = types.DisabledStep
		state.UpdatedAt = time.Now()
		c.snapshot(state)
		annotate.BestEffort(ctx, c.Sink, annotate.Annotation{
			Text: "canary disabled after failures at lowest percentage",
			Tags: []string{"shepherd", "canary", "rollback"},
		})
		return types.OutcomeDisabled, true, nil
	}

	if state.RetryCount >= state.MaxRetries {
		logger.Error().
			Int("retries", state.RetryCount).
			Msg("retry budget exhausted, aborting rollout")
		return types.OutcomeMaxRetriesExceeded, true, nil
	}

	state.StepIndex--
	state.RetryCount++
	state.CycleFailures = 0
	state.UpdatedAt = time.Now()
	c.snapshot(state)
	metrics.RolloutRetries.Inc()

	logger.Warn().
		Int("percentage", state.Percentage()).
		Int("retry", state.RetryCount).
		Int("max_retries", state.MaxRetries).
		Msg("rolling back one rung")
	annotate.BestEffort(ctx, c.Sink, annotate.Annotation{
		Text: fmt.Sprintf("canary rolled back to %d%% (retry %d/%d)", state.Percentage(), state.RetryCount, state.MaxRetries),
		Tags: []string{"shepherd", "canary", "rollback"},
	})
	return "", false, nil
}

// alignPercentage writes the target percentage and restarts the workload if
// the live configuration differs.
func (c *Controller) alignPercentage(ctx context.Context, target int) error {
	logger := log.WithComponent("canary")

	current, err := c.Store.Percentage()
	if err != nil {
		return fmt.Errorf("%w: failed to read configured percentage: %v", types.ErrConfiguration, err)
	}
	if current == target {
		return nil
	}

	logger.Info().Int("from", current).Int("to", target).Msg("updating canary percentage")
	if err := c.Store.SetPercentage(target); err != nil {
		return fmt.Errorf("%w: failed to write canary percentage: %v", types.ErrConfiguration, err)
	}
	return c.restart(ctx)
}

// disable switches the canary off entirely and restarts the workload.
func (c *Controller) disable(ctx context.Context) error {
	if err := c.Store.SetEnabled(false); err != nil {
		return fmt.Errorf("%w: failed to disable canary: %v", types.ErrConfiguration, err)
	}
	return c.restart(ctx)
}

// restart bounces the canary services and waits for readiness.
func (c *Controller) restart(ctx context.Context) error {
	if err := c.Workload.Restart(ctx, c.CanaryServices...); err != nil {
		return fmt.Errorf("workload restart failed: %w", err)
	}
	if err := c.Workload.WaitReady(ctx, c.ReadyAttempts, c.ReadyInterval); err != nil {
		return fmt.Errorf("workload not ready after restart: %w", err)
	}
	return nil
}

// snapshot persists the rollout state for the audit trail. Journal failures
// are logged, not fatal: losing a snapshot must not kill a healthy rollout.
func (c *Controller) snapshot(state *types.RolloutState) {
	if c.Journal == nil {
		return
	}
	if err := c.Journal.SaveRolloutState(state); err != nil {
		logger := log.WithComponent("canary")
		logger.Warn().Err(err).Msg("failed to persist rollout state")
	}
}
