// Package errors provides standardized error handling patterns for drugscout's
// data-source clients.
//
// # Overview
//
// The package implements a three-class error classification system for a
// layer whose failures are dominated by upstream HTTP behavior: Transient
// (temporary, retryable), Invalid (bad input, terminal upstream response,
// or malformed payload, never retried), and Fatal (unrecoverable, stop
// processing).
//
// Classification enables retry and escalation decisions throughout the
// retrieval layer without hardcoded error string matching, and integrates
// with Go's standard error handling (errors.Is, errors.As, wrapping chains).
//
// # Error Classification
//
//   - Transient: network timeouts, connection failures, rate limiting,
//     upstream 429/5xx statuses (retry recommended)
//   - Invalid: terminal upstream statuses (404, 400, ...), parse failures,
//     unresolvable names, GraphQL error payloads (do not retry)
//   - Fatal: invalid or missing configuration (stop processing)
//
// # Upstream Status Errors
//
// StatusError carries the originating source name, the HTTP status, and a
// bounded body snippet. Its classification follows the conventional
// retryable set:
//
//	err := &errors.StatusError{Source: "ctgov", StatusCode: 503}
//	errors.IsTransient(err) // true - 5xx is retryable
//
//	err = &errors.StatusError{Source: "opentargets", StatusCode: 404}
//	errors.IsInvalid(err) // true - terminal, never retried
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Client", "Get", "execute request")
//	errors.WrapInvalid(err, "Client", "Drug", "parse profile")
//	errors.WrapFatal(err, "Config", "Validate", "check endpoints")
//
// The generic Wrap() preserves the original error's classification through
// the chain.
//
// # Retry Configuration
//
// RetryConfig holds the per-client retry budget: retries beyond the first
// attempt, exponential backoff parameters, and the set of HTTP statuses
// treated as retryable. DefaultRetryConfig matches the defaults used against
// the external registries (3 retries, 1s initial delay doubling to a 30s
// cap, statuses 429/500/502/503/504). ToRetryConfig converts to the
// pkg/retry framework configuration, translating "additional retries" into
// the framework's "total attempts".
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error
// variables are immutable and safe for concurrent access.
package errors
