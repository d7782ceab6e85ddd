package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/shepherd/pkg/types"
)

func promServer(t *testing.T, handler func(query string, w http.ResponseWriter)) *QueryClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/query", r.URL.Path)
		handler(r.URL.Query().Get("query"), w)
	}))
	t.Cleanup(srv.Close)
	return NewQueryClient(srv.URL)
}

func sample(value string) string {
	return fmt.Sprintf(`{"status":"success","data":{"resultType":"vector","result":[{"metric":{},"value":[1700000000,%q]}]}}`, value)
}

func TestQueryReturnsFirstSample(t *testing.T) {
	client := promServer(t, func(query string, w http.ResponseWriter) {
		fmt.Fprint(w, sample("2"))
	})

	v, err := client.Query(context.Background(), `circuit_breaker_state{service="api"}`)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestQueryEmptyResultIsError(t *testing.T) {
	client := promServer(t, func(query string, w http.ResponseWriter) {
		fmt.Fprint(w, `{"status":"success","data":{"resultType":"vector","result":[]}}`)
	})

	_, err := client.Query(context.Background(), `up{job="api"}`)
	assert.Error(t, err)
}

func TestQueryHTTPErrorIsConnectivity(t *testing.T) {
	client := promServer(t, func(query string, w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Query(context.Background(), "up")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConnectivity)
}

func TestQueryUnreachableIsConnectivity(t *testing.T) {
	client := NewQueryClient("http://127.0.0.1:1")

	_, err := client.Query(context.Background(), "up")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConnectivity)
}

func TestQueryFailureStatusIsError(t *testing.T) {
	client := promServer(t, func(query string, w http.ResponseWriter) {
		fmt.Fprint(w, `{"status":"error","data":{}}`)
	})

	_, err := client.Query(context.Background(), "up")
	assert.Error(t, err)
}

func TestCircuitBreakerStateQueriesByLabel(t *testing.T) {
	var gotQuery string
	client := promServer(t, func(query string, w http.ResponseWriter) {
		gotQuery = query
		fmt.Fprint(w, sample("0"))
	})

	state, err := client.CircuitBreakerState(context.Background(), "api")
	require.NoError(t, err)
	assert.Equal(t, 0.0, state)
	assert.Equal(t, `circuit_breaker_state{service="api"}`, gotQuery)
}

func TestUpQueriesByJob(t *testing.T) {
	var gotQuery string
	client := promServer(t, func(query string, w http.ResponseWriter) {
		gotQuery = query
		fmt.Fprint(w, sample("1"))
	})

	up, err := client.Up(context.Background(), "api")
	require.NoError(t, err)
	assert.Equal(t, 1.0, up)
	assert.Equal(t, `up{job="api"}`, gotQuery)
}

func TestRequestDurationUsesHistogramRates(t *testing.T) {
	var gotQuery string
	client := promServer(t, func(query string, w http.ResponseWriter) {
		gotQuery = query
		fmt.Fprint(w, sample("0.042"))
	})

	mean, err := client.RequestDuration(context.Background(), "api")
	require.NoError(t, err)
	assert.Equal(t, 0.042, mean)
	assert.Contains(t, gotQuery, `rate(request_duration_seconds_sum{service="api"}[5m])`)
	assert.Contains(t, gotQuery, `rate(request_duration_seconds_count{service="api"}[5m])`)
}

func TestGenerationCountQueriesBothLabels(t *testing.T) {
	var gotQuery string
	client := promServer(t, func(query string, w http.ResponseWriter) {
		gotQuery = query
		fmt.Fprint(w, sample("41"))
	})

	v, err := client.GenerationCount(context.Background(), "/api/generate", "create")
	require.NoError(t, err)
	assert.Equal(t, 41.0, v)
	assert.Equal(t, `generation_count_total{path="/api/generate",operation="create"}`, gotQuery)
}
