package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// planFile is the on-disk shape of a rollout plan. Durations are written as
// Go duration strings ("30s", "5m").
type planFile struct {
	Ladder           []int  `yaml:"ladder"`
	ChecksPerStep    int    `yaml:"checks_per_step"`
	CheckInterval    string `yaml:"check_interval"`
	FailureThreshold int    `yaml:"failure_threshold"`
	MaxRetries       int    `yaml:"max_retries"`
}

// LoadPlan reads a rollout plan from a YAML file. Fields left unset in the
// file keep their defaults.
func LoadPlan(path string) (Plan, error) {
	plan := DefaultPlan()

	data, err := os.ReadFile(path)
	if err != nil {
		return plan, fmt.Errorf("failed to read rollout plan: %w", err)
	}

	var file planFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return plan, fmt.Errorf("failed to parse rollout plan: %w", err)
	}

	if file.Ladder != nil {
		plan.Ladder = file.Ladder
	}
	if file.ChecksPerStep != 0 {
		plan.ChecksPerStep = file.ChecksPerStep
	}
	if file.CheckInterval != "" {
		interval, err := time.ParseDuration(file.CheckInterval)
		if err != nil {
			return plan, fmt.Errorf("invalid check_interval %q: %w", file.CheckInterval, err)
		}
		plan.CheckInterval = interval
	}
	if file.FailureThreshold != 0 {
		plan.FailureThreshold = file.FailureThreshold
	}
	if file.MaxRetries != 0 {
		plan.MaxRetries = file.MaxRetries
	}

	if err := plan.Validate(); err != nil {
		return plan, err
	}
	return plan, nil
}
