package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/shepherd/pkg/log"
)

// Annotation is one timeline event posted to the observability sink.
type Annotation struct {
	Text string
	Tags []string
	Time time.Time
}

// Annotator posts annotations to an external dashboard or timeline. All
// implementations are best-effort: callers log failures and continue, so a
// broken sink can never affect the control loop.
type Annotator interface {
	Post(ctx context.Context, a Annotation) error
}

// Noop discards annotations. Used when no sink is configured.
type Noop struct{}

func (Noop) Post(ctx context.Context, a Annotation) error { return nil }

// Grafana posts annotations to the Grafana annotations API.
type Grafana struct {
	// BaseURL is the Grafana base URL
	BaseURL string

	// Token is the API token
	Token string

	// Client is the HTTP client to use
	Client *http.Client
}

// NewGrafana creates a Grafana annotator.
func NewGrafana(baseURL, token string) *Grafana {
	return &Grafana{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Post sends one annotation
func (g *Grafana) Post(ctx context.Context, a Annotation) error {
	when := a.Time
	if when.IsZero() {
		when = time.Now()
	}

	payload := map[string]interface{}{
		"text": a.Text,
		"tags": a.Tags,
		"time": when.UnixMilli(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode annotation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/api/annotations", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create annotation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.Token)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("annotation post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("annotation post returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Multi fans one annotation out to several sinks.
type Multi []Annotator

// Post sends the annotation to every sink, returning the first error for the
// caller's log line.
func (m Multi) Post(ctx context.Context, a Annotation) error {
	var first error
	for _, sink := range m {
		if err := sink.Post(ctx, a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BestEffort posts an annotation and swallows the error after logging it.
// This is the only way the control loops touch the sink.
func BestEffort(ctx context.Context, sink Annotator, a Annotation) {
	if sink == nil {
		return
	}
	if err := sink.Post(ctx, a); err != nil {
		logger := log.WithComponent("annotate")
		logger.Warn().Err(err).Str("text", a.Text).Msg("annotation dropped")
	}
}
