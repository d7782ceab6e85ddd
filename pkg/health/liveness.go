package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/shepherd/pkg/types"
)

// LivenessChecker probes the service health endpoint. The check passes only
// when the overall status is "healthy" AND the component under canary reports
// "pass"; a healthy service with a degraded canary dependency still fails.
type LivenessChecker struct {
	// URL is the full health endpoint URL
	URL string

	// Component is the per-dependency status key for the canary code path
	Component string

	// APIKey, when set, is sent as a bearer token
	APIKey string

	// Client is the HTTP client to use (allows custom configuration)
	Client *http.Client
}

// healthResponse is the expected health endpoint body.
type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// NewLivenessChecker creates a liveness probe for the given endpoint and
// canary component.
func NewLivenessChecker(url, component string) *LivenessChecker {
	return &LivenessChecker{
		URL:       url,
		Component: component,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Check performs the liveness probe
func (l *LivenessChecker) Check(ctx context.Context) types.CheckResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return failure(types.CheckLiveness, start, fmt.Sprintf("failed to create request: %v", err))
	}
	if l.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.APIKey)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return failure(types.CheckLiveness, start, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failure(types.CheckLiveness, start, fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return failure(types.CheckLiveness, start, fmt.Sprintf("failed to decode health response: %v", err))
	}

	componentStatus := body.Components[l.Component]
	pass := body.Status == "healthy" && componentStatus == "pass"

	message := fmt.Sprintf("status=%s %s=%s", body.Status, l.Component, componentStatus)
	return types.CheckResult{
		Type:      types.CheckLiveness,
		Pass:      pass,
		RawValue:  body.Status,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the probe type
func (l *LivenessChecker) Type() types.CheckType {
	return types.CheckLiveness
}

// WithTimeout sets the HTTP client timeout
func (l *LivenessChecker) WithTimeout(timeout time.Duration) *LivenessChecker {
	l.Client.Timeout = timeout
	return l
}

// WithAPIKey sets the bearer token for authenticated health endpoints
func (l *LivenessChecker) WithAPIKey(key string) *LivenessChecker {
	l.APIKey = key
	return l
}
