package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/metric"
)

// fastConfig returns a test configuration with millisecond backoff so
// retry paths run quickly
func fastConfig(source string) Config {
	cfg := DefaultConfig(source)
	cfg.RateLimit = 0
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	return cfg
}

func newExecutor(t *testing.T, cfg Config, opts ...Option) *Executor {
	t.Helper()
	exec, err := New(cfg, opts...)
	require.NoError(t, err)
	return exec
}

func TestGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"pembrolizumab","phase":4}`))
	}))
	defer server.Close()

	exec := newExecutor(t, fastConfig("test"))

	var out struct {
		Name  string `json:"name"`
		Phase int    `json:"phase"`
	}
	err := exec.Get(context.Background(), server.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, "pembrolizumab", out.Name)
	assert.Equal(t, 4, out.Phase)
}

func TestGet_NilOutDiscardsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ignored":true}`))
	}))
	defer server.Close()

	exec := newExecutor(t, fastConfig("test"))
	assert.NoError(t, exec.Get(context.Background(), server.URL, nil))
}

func TestGet_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name": truncated`))
	}))
	defer server.Close()

	exec := newExecutor(t, fastConfig("test"))

	var out map[string]any
	err := exec.Get(context.Background(), server.URL, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrParsingFailed)
	assert.True(t, errors.IsInvalid(err))
}

func TestRetryBudget_SucceedsAfterRetryableFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Fail retryably exactly maxRetries times, then succeed
		if attempts.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	cfg := fastConfig("test")
	cfg.Retry.MaxRetries = 3
	exec := newExecutor(t, cfg)

	var out map[string]bool
	err := exec.Get(context.Background(), server.URL, &out)
	require.NoError(t, err)
	assert.True(t, out["ok"])
	assert.Equal(t, int32(4), attempts.Load())
}

func TestRetryBudget_ExhaustsAfterMaxRetriesPlusOne(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := fastConfig("test")
	cfg.Retry.MaxRetries = 3
	exec := newExecutor(t, cfg)

	err := exec.Get(context.Background(), server.URL, nil)
	require.Error(t, err)

	// Exactly maxRetries+1 total attempts
	assert.Equal(t, int32(4), attempts.Load())
	assert.ErrorIs(t, err, errors.ErrMaxRetriesExceeded)
	assert.True(t, errors.IsTransient(err))

	// The last observed status travels with the failure
	var statusErr *errors.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestTerminalStatus_NeverRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no such disease"}`))
	}))
	defer server.Close()

	cfg := fastConfig("test")
	cfg.Retry.MaxRetries = 3
	exec := newExecutor(t, cfg)

	err := exec.Get(context.Background(), server.URL, nil)
	require.Error(t, err)

	assert.Equal(t, int32(1), attempts.Load())
	assert.True(t, errors.IsInvalid(err))
	assert.False(t, errors.IsTransient(err))

	var statusErr *errors.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "test", statusErr.Source)
	assert.Contains(t, statusErr.Snippet, "no such disease")
}

func TestSnippet_Bounded(t *testing.T) {
	long := bytes.Repeat([]byte("x"), snippetLimit*4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(long)
	}))
	defer server.Close()

	exec := newExecutor(t, fastConfig("test"))

	err := exec.Get(context.Background(), server.URL, nil)
	require.Error(t, err)

	var statusErr *errors.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Len(t, statusErr.Snippet, snippetLimit)
}

func TestRetryAfter_ExtendsBackoff(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out an advertised Retry-After delay")
	}

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := fastConfig("test")
	cfg.Retry.MaxRetries = 1
	exec := newExecutor(t, cfg)

	start := time.Now()
	err := exec.Get(context.Background(), server.URL, nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
	// The advertised one second outweighs the millisecond backoff
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
}

func TestGraphQLPost_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "drug")
		assert.Equal(t, "CHEMBL25", req.Variables["chemblId"])

		_, _ = w.Write([]byte(`{"data":{"drug":{"id":"CHEMBL25","name":"ASPIRIN"}}}`))
	}))
	defer server.Close()

	exec := newExecutor(t, fastConfig("opentargets"))

	var out struct {
		Drug struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"drug"`
	}
	err := exec.GraphQLPost(context.Background(), server.URL,
		`query ($chemblId: String!) { drug(chemblId: $chemblId) { id name } }`,
		map[string]any{"chemblId": "CHEMBL25"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "CHEMBL25", out.Drug.ID)
	assert.Equal(t, "ASPIRIN", out.Drug.Name)
}

func TestGraphQLPost_ErrorsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Unknown drug CHEMBL0"},{"message":"Field deprecated"}]}`))
	}))
	defer server.Close()

	exec := newExecutor(t, fastConfig("opentargets"))

	err := exec.GraphQLPost(context.Background(), server.URL, "query { x }", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrGraphQLErrors)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "Unknown drug CHEMBL0")
	assert.Contains(t, err.Error(), "Field deprecated")
}

func TestGetText_ReturnsRawBody(t *testing.T) {
	const article = `<PubmedArticle><ArticleTitle>PD-1 blockade</ArticleTitle></PubmedArticle>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Text requests must not claim to want JSON
		assert.Empty(t, r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(article))
	}))
	defer server.Close()

	exec := newExecutor(t, fastConfig("pubmed"))

	text, err := exec.GetText(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, article, text)
}

func TestGetText_TerminalStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	exec := newExecutor(t, fastConfig("pubmed"))

	_, err := exec.GetText(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRateLimiter_GatesAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := fastConfig("test")
	cfg.RateLimit = 50 // one token per 20ms
	cfg.RateBurst = 1
	exec := newExecutor(t, cfg)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, exec.Get(context.Background(), server.URL, nil))
	}
	elapsed := time.Since(start)

	// First request spends the burst; the next two wait for refill
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestCorrelationIDInLogs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	exec := newExecutor(t, fastConfig("test"), WithLogger(logger))
	require.NoError(t, exec.Get(context.Background(), server.URL, nil))

	assert.Contains(t, buf.String(), "request_id=")
	assert.Contains(t, buf.String(), "source=test")
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	exec := newExecutor(t, fastConfig("test"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := exec.Get(ctx, server.URL, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(_ *Config) {}, false},
		{"missing source", func(c *Config) { c.Source = "" }, true},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, true},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }, true},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }, true},
		{"zero rate limit disables", func(c *Config) { c.RateLimit = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("test")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
		ok    bool
	}{
		{"", 0, false},
		{"0", 0, true},
		{"3", 3 * time.Second, true},
		{" 10 ", 10 * time.Second, true},
		{"-1", 0, false},
		{"soon", 0, false},
		{"Wed, 21 Oct 2026 07:28:00 GMT", 0, false},
	}

	for _, tt := range tests {
		delay, ok := parseRetryAfter(tt.value)
		assert.Equal(t, tt.ok, ok, "value %q", tt.value)
		assert.Equal(t, tt.want, delay, "value %q", tt.value)
	}
}

func TestRequestMetrics(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	registry := metric.NewMetricsRegistry()
	cfg := fastConfig("ctgov")
	exec := newExecutor(t, cfg, WithMetrics(registry))

	require.NoError(t, exec.Get(context.Background(), server.URL, nil))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily)
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	requests := byName["drugscout_requests_total"]
	require.NotNil(t, requests)
	total := 0.0
	for _, m := range requests.Metric {
		total += m.Counter.GetValue()
	}
	assert.Equal(t, 2.0, total)

	retries := byName["drugscout_requests_retries_total"]
	require.NotNil(t, retries)
	assert.Equal(t, 1.0, retries.Metric[0].Counter.GetValue())
	assert.Equal(t, "ctgov", retries.Metric[0].Label[0].GetValue())
}
