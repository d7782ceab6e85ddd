package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/shepherd/pkg/types"
)

func healthHandler(status, canaryStatus string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":%q,"components":{"canary":%q,"database":"pass"}}`, status, canaryStatus)
	}
}

func TestLivenessChecker(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantPass bool
	}{
		{
			name:     "healthy with passing canary component",
			handler:  healthHandler("healthy", "pass"),
			wantPass: true,
		},
		{
			name:     "healthy overall but canary component degraded",
			handler:  healthHandler("healthy", "fail"),
			wantPass: false,
		},
		{
			name:     "degraded overall",
			handler:  healthHandler("degraded", "pass"),
			wantPass: false,
		},
		{
			name: "non-200 response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantPass: false,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "not json")
			},
			wantPass: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			checker := NewLivenessChecker(srv.URL, "canary")
			result := checker.Check(context.Background())

			assert.Equal(t, types.CheckLiveness, result.Type)
			assert.Equal(t, tt.wantPass, result.Pass, result.Message)
		})
	}
}

func TestLivenessCheckerUnreachableIsFailureNotPanic(t *testing.T) {
	checker := NewLivenessChecker("http://127.0.0.1:1/health", "canary").WithTimeout(time.Second)
	result := checker.Check(context.Background())
	assert.False(t, result.Pass)
	assert.NotEmpty(t, result.Message)
}

func TestLivenessCheckerSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		healthHandler("healthy", "pass")(w, r)
	}))
	defer srv.Close()

	checker := NewLivenessChecker(srv.URL, "canary").WithAPIKey("sekrit")
	result := checker.Check(context.Background())

	require.True(t, result.Pass)
	assert.Equal(t, "Bearer sekrit", gotAuth)
}

type fakeQuerier struct {
	state float64
	err   error
}

func (f *fakeQuerier) CircuitBreakerState(ctx context.Context, service string) (float64, error) {
	return f.state, f.err
}

func TestCircuitBreakerChecker(t *testing.T) {
	tests := []struct {
		name     string
		querier  *fakeQuerier
		wantPass bool
	}{
		{"closed passes", &fakeQuerier{state: BreakerClosed}, true},
		{"half-open fails", &fakeQuerier{state: BreakerHalfOpen}, false},
		{"open fails", &fakeQuerier{state: BreakerOpen}, false},
		{"query error fails", &fakeQuerier{err: fmt.Errorf("metrics endpoint down")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewCircuitBreakerChecker("api", tt.querier)
			result := checker.Check(context.Background())
			assert.Equal(t, types.CheckCircuitBreaker, result.Type)
			assert.Equal(t, tt.wantPass, result.Pass, result.Message)
		})
	}
}

type fakeLogs struct {
	lines []string
	err   error
}

func (f *fakeLogs) RecentLogs(ctx context.Context, service string, lines int) ([]string, error) {
	return f.lines, f.err
}

func TestErrorLogChecker(t *testing.T) {
	tests := []struct {
		name     string
		source   *fakeLogs
		budget   int
		wantPass bool
	}{
		{
			name:     "clean logs pass",
			source:   &fakeLogs{lines: []string{"request served", "request served"}},
			budget:   2,
			wantPass: true,
		},
		{
			name:     "errors at the budget still pass",
			source:   &fakeLogs{lines: []string{"ERROR: timeout", "error: retry", "ok"}},
			budget:   2,
			wantPass: true,
		},
		{
			name:     "errors over the budget fail",
			source:   &fakeLogs{lines: []string{"error one", "PANIC: boom", "fatal: gone"}},
			budget:   2,
			wantPass: false,
		},
		{
			name:     "one line with several markers counts once",
			source:   &fakeLogs{lines: []string{"fatal error: panic recovered"}},
			budget:   1,
			wantPass: true,
		},
		{
			name:     "log fetch failure fails the probe",
			source:   &fakeLogs{err: fmt.Errorf("compose unavailable")},
			budget:   2,
			wantPass: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewErrorLogChecker("api", tt.source).WithBudget(tt.budget)
			result := checker.Check(context.Background())
			assert.Equal(t, types.CheckErrorBudget, result.Type)
			assert.Equal(t, tt.wantPass, result.Pass, result.Message)
		})
	}
}

func TestSmokeTestChecker(t *testing.T) {
	t.Run("exit zero passes", func(t *testing.T) {
		checker := NewSmokeTestChecker([]string{"sh", "-c", "exit 0"})
		result := checker.Check(context.Background())
		assert.True(t, result.Pass, result.Message)
	})

	t.Run("exit non-zero fails with stderr detail", func(t *testing.T) {
		checker := NewSmokeTestChecker([]string{"sh", "-c", "echo '2 tests failed' >&2; exit 1"})
		result := checker.Check(context.Background())
		assert.False(t, result.Pass)
		assert.Contains(t, result.Message, "2 tests failed")
	})

	t.Run("timeout fails", func(t *testing.T) {
		checker := NewSmokeTestChecker([]string{"sleep", "10"}).WithTimeout(50 * time.Millisecond)
		result := checker.Check(context.Background())
		assert.False(t, result.Pass)
		assert.Contains(t, result.Message, "timed out")
	})

	t.Run("missing command fails", func(t *testing.T) {
		checker := NewSmokeTestChecker(nil)
		result := checker.Check(context.Background())
		assert.False(t, result.Pass)
	})
}

func TestTruncateRespectsRuneBoundaries(t *testing.T) {
	// 33 bytes falls in the middle of a two-byte rune.
	s := strings.Repeat("ü", 100)
	out := truncate(s, 33)

	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("ü", 16)+"...", out)

	assert.Equal(t, "abc", truncate("abc", 10), "short strings pass through unchanged")
}

type staticChecker struct {
	ct   types.CheckType
	pass bool
}

func (s *staticChecker) Check(ctx context.Context) types.CheckResult {
	return types.CheckResult{Type: s.ct, Pass: s.pass, CheckedAt: time.Now()}
}
func (s *staticChecker) Type() types.CheckType { return s.ct }

func TestAggregatorRunsEveryProbe(t *testing.T) {
	agg := NewAggregator(
		&staticChecker{ct: types.CheckLiveness, pass: false},
		&staticChecker{ct: types.CheckCircuitBreaker, pass: true},
		&staticChecker{ct: types.CheckErrorBudget, pass: false},
		&staticChecker{ct: types.CheckSmokeTest, pass: true},
	)

	results, failures := agg.RunCycle(context.Background())

	// An early failure must not short-circuit the remaining probes.
	require.Len(t, results, 4)
	assert.Equal(t, 2, failures)
}

func TestAggregatorSmokeTestOnly(t *testing.T) {
	agg := NewAggregator(
		&staticChecker{ct: types.CheckLiveness, pass: false},
		&staticChecker{ct: types.CheckSmokeTest, pass: true},
	)

	result := agg.SmokeTest(context.Background())
	assert.Equal(t, types.CheckSmokeTest, result.Type)
	assert.True(t, result.Pass)
}

func TestAggregatorSmokeTestMissingProbe(t *testing.T) {
	agg := NewAggregator(&staticChecker{ct: types.CheckLiveness, pass: true})

	result := agg.SmokeTest(context.Background())
	assert.False(t, result.Pass)
}
