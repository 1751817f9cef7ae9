// Package retry provides simple exponential backoff retry logic for transient failures.
//
// # Overview
//
// This package offers a minimal retry mechanism with exponential backoff, designed to
// handle transient failures when calling external data sources: network errors,
// throttled responses, and temporary upstream outages.
//
// # Core Functions
//
//   - Do: Execute function with retry and exponential backoff
//   - DoWithResult: Execute function with retry, returns both result and error
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (internal operations)
//   - Quick(): 10 attempts, 50ms-1s delay (store/bucket initialization)
//   - Upstream(): 4 attempts, 1s-30s delay (external registry calls)
//
// # Usage Examples
//
// Basic retry with defaults:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Connect()
//	})
//
// Retry with result:
//
//	resp, err := retry.DoWithResult(ctx, retry.Upstream(), func() (*Response, error) {
//	    return executor.Get(ctx, url, params)
//	})
//
// # Controlling Retry Decisions
//
// Two wrappers let the operation steer the loop:
//
//	// Terminal failures stop immediately
//	return retry.NonRetryable(err)
//
//	// Throttled responses carry the server's minimum delay
//	return retry.RetryAfter(err, 10*time.Second)
//
// A RetryAfter hint extends the computed backoff for the next sleep, even past
// the configured MaxDelay. It never shortens the schedule.
//
// # Design Philosophy
//
// This package is intentionally minimal:
//
//   - No circuit breakers
//   - No metrics collection (use instrumentation at call site)
//   - No complex error classification (caller decides what to retry)
//   - Just exponential backoff with jitter, plus the two wrappers above
//
// # Context Cancellation
//
// All retry operations respect context cancellation and will immediately stop retrying
// when the context is cancelled, either during operation execution or during backoff delay.
//
// # Thread Safety
//
// All functions are safe for concurrent use. The jitter mechanism uses a thread-safe
// random source to avoid contention.
package retry
