// Package httpclient provides the resilient request executor shared by the
// upstream data-source clients.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/c360/drugscout/errors"
	"github.com/c360/drugscout/metric"
	"github.com/c360/drugscout/pkg/retry"
)

// snippetLimit bounds how much of an upstream error body travels inside
// surfaced errors
const snippetLimit = 256

// Requester is the capability surface the data-source clients compose
// over. Executor is the production implementation; tests substitute
// fakes.
type Requester interface {
	Get(ctx context.Context, url string, out any) error
	GraphQLPost(ctx context.Context, endpoint, query string, variables map[string]any, out any) error
	GetText(ctx context.Context, url string) (string, error)
}

// Config holds executor configuration for one upstream source
type Config struct {
	Source    string             `json:"source"`
	Timeout   time.Duration      `json:"timeout"`
	UserAgent string             `json:"user_agent"`
	Headers   map[string]string  `json:"headers"`
	RateLimit float64            `json:"rate_limit"` // requests per second, 0 disables
	RateBurst int                `json:"rate_burst"`
	Retry     errors.RetryConfig `json:"retry"`
}

// DefaultConfig returns executor defaults for the given source name
func DefaultConfig(source string) Config {
	return Config{
		Source:    source,
		Timeout:   30 * time.Second,
		UserAgent: "drugscout/0.1",
		RateLimit: 5,
		RateBurst: 10,
		Retry:     errors.DefaultRetryConfig(),
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Source == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"Config", "Validate", "source name is required")
	}
	if c.Timeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Config", "Validate", "timeout cannot be negative")
	}
	if c.RateLimit < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Config", "Validate", "rate limit cannot be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Config", "Validate", "max retries cannot be negative")
	}
	return nil
}

// Executor performs HTTP calls with retry, rate limiting, and
// classification of failures. One executor serves one upstream source;
// its name threads through logs, metrics, and errors.
type Executor struct {
	source     string
	httpClient *http.Client
	userAgent  string
	headers    map[string]string
	retryCfg   errors.RetryConfig
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *metric.Metrics
}

var _ Requester = (*Executor)(nil)

// Option configures an Executor
type Option func(*Executor)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics wires request counters and latency histograms into the
// given registry
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(e *Executor) {
		if registry != nil {
			e.metrics = registry.CoreMetrics()
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Mainly a seam for
// tests injecting mock transports.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// New creates an executor from configuration
func New(cfg Config, opts ...Option) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// No configured limit means an always-full bucket
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	e := &Executor{
		source:     cfg.Source,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		headers:    cfg.Headers,
		retryCfg:   cfg.Retry,
		limiter:    limiter,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Source returns the upstream source name this executor serves
func (e *Executor) Source() string {
	return e.source
}

// Get performs a GET expecting a JSON body, decoded into out.
// Pass nil to discard the body.
func (e *Executor) Get(ctx context.Context, url string, out any) error {
	body, err := e.execute(ctx, request{
		op:     "Get",
		method: http.MethodGet,
		url:    url,
		accept: "application/json",
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrParsingFailed, err),
			e.source, "Get", "decode response")
	}
	return nil
}

// GraphQLPost sends a query document with variables to the endpoint and
// decodes the data envelope into out. Errors reported inside the GraphQL
// response surface as invalid errors wrapping ErrGraphQLErrors.
func (e *Executor) GraphQLPost(ctx context.Context, endpoint, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return errors.WrapInvalid(err, e.source, "GraphQLPost", "encode request")
	}

	body, err := e.execute(ctx, request{
		op:          "GraphQLPost",
		method:      http.MethodPost,
		url:         endpoint,
		body:        payload,
		contentType: "application/json",
		accept:      "application/json",
	})
	if err != nil {
		return err
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrParsingFailed, err),
			e.source, "GraphQLPost", "decode response")
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, len(envelope.Errors))
		for i, gqlErr := range envelope.Errors {
			messages[i] = gqlErr.Message
		}
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrGraphQLErrors, strings.Join(messages, "; ")),
			e.source, "GraphQLPost", "execute query")
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %w", errors.ErrParsingFailed, err),
				e.source, "GraphQLPost", "decode data")
		}
	}
	return nil
}

// GetText performs a GET returning the raw body without JSON decoding,
// for endpoints serving structured text such as XML.
func (e *Executor) GetText(ctx context.Context, url string) (string, error) {
	body, err := e.execute(ctx, request{
		op:     "GetText",
		method: http.MethodGet,
		url:    url,
	})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// request describes one logical call through the retry loop
type request struct {
	op          string
	method      string
	url         string
	body        []byte
	contentType string
	accept      string
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GraphQLError is a single error entry in a GraphQL response envelope
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// execute runs one logical request through the retry budget and maps the
// outcome onto the error taxonomy: terminal responses are invalid and
// never retried, transport failures and retryable statuses burn the
// budget and escalate to an exhausted-retry transient error.
func (e *Executor) execute(ctx context.Context, req request) ([]byte, error) {
	logger := e.logger.With(
		"source", e.source,
		"request_id", uuid.NewString(),
	)

	attempt := 0
	body, err := retry.DoWithResult(ctx, e.retryCfg.ToRetryConfig(), func() ([]byte, error) {
		attempt++
		return e.attempt(ctx, logger, req, attempt)
	})
	if err == nil {
		return body, nil
	}

	// Terminal failures come back marked non-retryable. An already
	// classified inner error keeps its class; a bare status error is
	// invalid by definition.
	var nre *retry.NonRetryableError
	if stderrors.As(err, &nre) {
		inner := nre.Err

		var ce *errors.ClassifiedError
		if stderrors.As(inner, &ce) {
			e.recordError(ce.Class)
			logger.Error("Request not retried",
				"method", req.method, "url", req.url, "error", inner)
			return nil, inner
		}

		e.recordError(errors.ErrorInvalid)
		logger.Error("Upstream rejected request",
			"method", req.method, "url", req.url, "error", inner)
		return nil, errors.WrapInvalid(inner, e.source, req.op, "upstream response")
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		e.recordError(errors.ErrorTransient)
		return nil, errors.WrapTransient(err, e.source, req.op, "request cancelled")
	}

	e.recordError(errors.ErrorTransient)
	logger.Error("Retry budget exhausted",
		"method", req.method, "url", req.url, "attempts", attempt, "error", err)

	exhausted := fmt.Errorf("%w: %w", errors.ErrMaxRetriesExceeded, err)
	return nil, errors.WrapTransient(exhausted, e.source, req.op, "retry budget exhausted")
}

// attempt performs a single HTTP round-trip and classifies the outcome
func (e *Executor) attempt(ctx context.Context, logger *slog.Logger, req request, attempt int) ([]byte, error) {
	if attempt > 1 {
		if e.metrics != nil {
			e.metrics.RecordRetry(e.source)
		}
		logger.Warn("Retrying request",
			"method", req.method, "url", req.url, "attempt", attempt)
	}

	// The limiter gates every attempt, retries included
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, retry.NonRetryable(errors.WrapTransient(err, e.source, req.op, "rate limit wait"))
	}

	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, reader)
	if err != nil {
		return nil, retry.NonRetryable(errors.WrapInvalid(err, e.source, req.op, "create request"))
	}

	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.accept != "" {
		httpReq.Header.Set("Accept", req.accept)
	}
	if e.userAgent != "" {
		httpReq.Header.Set("User-Agent", e.userAgent)
	}
	for key, value := range e.headers {
		httpReq.Header.Set(key, value)
	}

	logger.Debug("Executing request",
		"method", req.method, "url", req.url, "attempt", attempt)

	start := time.Now()
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordRequest(e.source, req.method, "error")
		}
		logger.Warn("Request failed",
			"method", req.method, "url", req.url, "attempt", attempt, "error", err)
		return nil, errors.WrapTransient(err, e.source, req.op, "execute request")
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordRequest(e.source, req.method, strconv.Itoa(resp.StatusCode))
		e.metrics.RecordRequestDuration(e.source, req.method, duration)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapTransient(err, e.source, req.op, "read response body")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Debug("Request succeeded",
			"status", resp.StatusCode, "bytes", len(body), "duration", duration)
		return body, nil
	}

	statusErr := &errors.StatusError{
		Source:     e.source,
		StatusCode: resp.StatusCode,
		Snippet:    snippet(body),
	}

	if e.retryCfg.RetryableStatus(resp.StatusCode) {
		logger.Warn("Upstream returned retryable status",
			"status", resp.StatusCode, "attempt", attempt)
		if resp.StatusCode == http.StatusTooManyRequests {
			// The advertised delay becomes a floor under the backoff
			if delay, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
				return nil, retry.RetryAfter(statusErr, delay)
			}
		}
		return nil, statusErr
	}

	// Anything else is terminal
	return nil, retry.NonRetryable(statusErr)
}

func (e *Executor) recordError(class errors.ErrorClass) {
	if e.metrics != nil {
		e.metrics.RecordError(e.source, class.String())
	}
}

// snippet trims a response body to the bounded diagnostic prefix
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > snippetLimit {
		s = s[:snippetLimit]
	}
	return s
}

// parseRetryAfter reads a Retry-After value given in seconds. HTTP-date
// values are ignored; the registries only send seconds.
func parseRetryAfter(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
