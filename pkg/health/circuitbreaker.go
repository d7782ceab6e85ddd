package health

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/shepherd/pkg/types"
)

// Circuit breaker gauge values.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// StateQuerier reads the circuit-breaker gauge for a service. Implemented by
// metrics.QueryClient in production and a fake in tests.
type StateQuerier interface {
	CircuitBreakerState(ctx context.Context, service string) (float64, error)
}

// CircuitBreakerChecker passes only while the breaker is CLOSED. HALF_OPEN is
// a failure too: a breaker probing for recovery means the dependency was
// recently broken.
type CircuitBreakerChecker struct {
	// Service is the circuit breaker's service label
	Service string

	// Querier reads the gauge
	Querier StateQuerier

	// Timeout bounds the metrics query
	Timeout time.Duration
}

// NewCircuitBreakerChecker creates a circuit-breaker probe for a service.
func NewCircuitBreakerChecker(service string, querier StateQuerier) *CircuitBreakerChecker {
	return &CircuitBreakerChecker{
		Service: service,
		Querier: querier,
		Timeout: 10 * time.Second,
	}
}

// Check performs the circuit-breaker probe
func (c *CircuitBreakerChecker) Check(ctx context.Context) types.CheckResult {
	start := time.Now()

	queryCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	state, err := c.Querier.CircuitBreakerState(queryCtx, c.Service)
	if err != nil {
		return failure(types.CheckCircuitBreaker, start, fmt.Sprintf("breaker state query failed: %v", err))
	}

	pass := state == BreakerClosed
	message := fmt.Sprintf("breaker state %s for %s", stateName(state), c.Service)

	return types.CheckResult{
		Type:      types.CheckCircuitBreaker,
		Pass:      pass,
		RawValue:  fmt.Sprintf("%.0f", state),
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the probe type
func (c *CircuitBreakerChecker) Type() types.CheckType {
	return types.CheckCircuitBreaker
}

// WithTimeout sets the query timeout
func (c *CircuitBreakerChecker) WithTimeout(timeout time.Duration) *CircuitBreakerChecker {
	c.Timeout = timeout
	return c
}

func stateName(state float64) string {
	switch state {
	case BreakerClosed:
		return "CLOSED"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	case BreakerOpen:
		return "OPEN"
	}
	return fmt.Sprintf("UNKNOWN(%.0f)", state)
}
