package health

import (
	"context"

	"github.com/cuemby/shepherd/pkg/log"
	"github.com/cuemby/shepherd/pkg/metrics"
	"github.com/cuemby/shepherd/pkg/types"
)

// Aggregator drives the per-cycle health assessment. Every cycle runs all
// probes: a single flaky probe must not mask a different, real failure, so
// accumulation across independent signals beats short-circuiting on the
// first failure.
type Aggregator struct {
	checkers []Checker
}

// NewAggregator creates an aggregator over the given probes.
func NewAggregator(checkers ...Checker) *Aggregator {
	return &Aggregator{checkers: checkers}
}

// RunCycle runs every probe once and returns all results plus the number of
// failures in this cycle.
func (a *Aggregator) RunCycle(ctx context.Context) ([]types.CheckResult, int) {
	logger := log.WithComponent("health")

	results := make([]types.CheckResult, 0, len(a.checkers))
	failures := 0

	for _, checker := range a.checkers {
		result := checker.Check(ctx)
		results = append(results, result)

		metrics.ChecksRun.WithLabelValues(string(result.Type)).Inc()
		if result.Pass {
			logger.Debug().
				Str("check", string(result.Type)).
				Dur("duration", result.Duration).
				Msg(result.Message)
		} else {
			failures++
			metrics.ChecksFailed.WithLabelValues(string(result.Type)).Inc()
			logger.Warn().
				Str("check", string(result.Type)).
				Dur("duration", result.Duration).
				Msg(result.Message)
		}
	}

	return results, failures
}

// SmokeTest runs only the smoke-test probe, used by the rollback orchestrator
// for post-operation validation.
func (a *Aggregator) SmokeTest(ctx context.Context) types.CheckResult {
	for _, checker := range a.checkers {
		if checker.Type() == types.CheckSmokeTest {
			result := checker.Check(ctx)
			metrics.ChecksRun.WithLabelValues(string(result.Type)).Inc()
			if !result.Pass {
				metrics.ChecksFailed.WithLabelValues(string(result.Type)).Inc()
			}
			return result
		}
	}
	return types.CheckResult{
		Type:    types.CheckSmokeTest,
		Pass:    false,
		Message: "no smoke-test probe configured",
	}
}
