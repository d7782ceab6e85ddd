package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/shepherd/pkg/canary"
	"github.com/cuemby/shepherd/pkg/config"
	"github.com/cuemby/shepherd/pkg/lockfile"
	"github.com/cuemby/shepherd/pkg/log"
	"github.com/cuemby/shepherd/pkg/types"
)

var canaryCmd = &cobra.Command{
	Use:   "canary",
	Short: "Manage progressive canary rollouts",
}

var canaryRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the canary rollout to completion",
	Long: `Run the progressive rollout state machine.

Starting from the currently configured percentage, the controller steps
traffic up the ladder while all four health probes stay green, rolls back
one rung on a failed step, and disables the canary entirely if the lowest
rung fails.

Exits 0 only when the rollout completes the full ladder.`,
	RunE: runCanary,
}

func init() {
	canaryRunCmd.Flags().String("plan", "", "Rollout plan YAML file (optional)")
	canaryCmd.AddCommand(canaryRunCmd)
}

func runCanary(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := initLogging(cmd, cfg); err != nil {
		return err
	}

	plan := config.DefaultPlan()
	if planFile, _ := cmd.Flags().GetString("plan"); planFile != "" {
		plan, err = config.LoadPlan(planFile)
		if err != nil {
			return err
		}
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.close()

	lock, err := lockfile.Acquire(d.lockPath())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	ctrl := canary.NewController(plan, d.store, d.workload, d.agg)
	ctrl.Journal = d.journal
	ctrl.Sink = d.sink
	ctrl.CanaryServices = []string{cfg.ServiceName}

	outcome, err := ctrl.Run(cmd.Context())
	if err != nil {
		return err
	}

	switch outcome {
	case types.OutcomeCompleted:
		log.Info("rollout completed")
		return nil
	case types.OutcomeDisabled:
		return fmt.Errorf("rollout ended with canary disabled")
	case types.OutcomeMaxRetriesExceeded:
		return fmt.Errorf("rollout aborted: retry budget exhausted")
	}
	return fmt.Errorf("rollout ended in unexpected outcome %q", outcome)
}
