package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cuemby/shepherd/pkg/types"
)

// QueryClient reads instant vectors from a Prometheus-compatible HTTP API.
// All lookups are by metric name and label, never by position.
type QueryClient struct {
	BaseURL string
	Client  *http.Client
}

// NewQueryClient creates a query client for the given Prometheus base URL.
func NewQueryClient(baseURL string) *QueryClient {
	return &QueryClient{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// queryResponse mirrors the Prometheus instant-query wire format.
type queryResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Value  []interface{}     `json:"value"` // [timestamp, "value"]
		} `json:"result"`
	} `json:"data"`
}

// Query executes an instant query and returns the first sample's value.
// An empty result set is an error: the caller asked about a series that
// should exist.
func (c *QueryClient) Query(ctx context.Context, expr string) (float64, error) {
	u := fmt.Sprintf("%s/api/v1/query?query=%s", c.BaseURL, url.QueryEscape(expr))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create query request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: metrics query failed: %v", types.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: metrics endpoint returned HTTP %d", types.ErrConnectivity, resp.StatusCode)
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return 0, fmt.Errorf("failed to decode query response: %w", err)
	}
	if qr.Status != "success" {
		return 0, fmt.Errorf("metrics query returned status %q", qr.Status)
	}
	if len(qr.Data.Result) == 0 {
		return 0, fmt.Errorf("no samples for query %q", expr)
	}

	value := qr.Data.Result[0].Value
	if len(value) != 2 {
		return 0, fmt.Errorf("malformed sample for query %q", expr)
	}
	raw, ok := value[1].(string)
	if !ok {
		return 0, fmt.Errorf("malformed sample value for query %q", expr)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse sample value %q: %w", raw, err)
	}
	return v, nil
}

// CircuitBreakerState returns the circuit-breaker gauge for a service.
// 0 = CLOSED, 1 = HALF_OPEN, 2 = OPEN.
func (c *QueryClient) CircuitBreakerState(ctx context.Context, service string) (float64, error) {
	return c.Query(ctx, fmt.Sprintf(`circuit_breaker_state{service=%q}`, service))
}

// Up returns the scrape-level up gauge for a job.
func (c *QueryClient) Up(ctx context.Context, job string) (float64, error) {
	return c.Query(ctx, fmt.Sprintf(`up{job=%q}`, job))
}

// GenerationCount returns the operation-labeled generation counter for a path.
func (c *QueryClient) GenerationCount(ctx context.Context, path, operation string) (float64, error) {
	return c.Query(ctx, fmt.Sprintf(`generation_count_total{path=%q,operation=%q}`, path, operation))
}

// RequestDuration returns the mean request duration over the last five
// minutes, derived from the request-duration histogram.
func (c *QueryClient) RequestDuration(ctx context.Context, service string) (float64, error) {
	expr := fmt.Sprintf(
		`rate(request_duration_seconds_sum{service=%q}[5m]) / rate(request_duration_seconds_count{service=%q}[5m])`,
		service, service)
	return c.Query(ctx, expr)
}
