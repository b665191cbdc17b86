// Package errors provides a structured error taxonomy for request
// orchestration in requestkit. It defines the codes and categories that
// drive fallback, retry, and abort decisions when talking to rate-limited
// backends and interchangeable AI providers.
//
// # Error Categories
//
// Errors are classified into four categories:
//
//   - Transient: Temporary failures where another attempt may succeed
//     (network issues, provider outages, soft failures)
//   - Permanent: Failures where another attempt will not help
//     (invalid input, user authentication failures)
//   - Resource: Resource exhaustion (rate limits, usage quotas)
//   - Internal: Unexpected errors indicating bugs or system failures
//
// # Error Codes
//
// Each error has a specific code that identifies the type of failure:
//
//   - SOFT_FAILURE: Provider responded but produced no usable result
//   - PROVIDER_AUTH: Provider credential rejected (falls back)
//   - USER_AUTH: Caller session authentication failed (aborts)
//   - USAGE_LIMIT: Usage quota exhausted (aborts)
//   - ALL_PROVIDERS_FAILED: Every provider in the chain was attempted
//   - NO_PROVIDERS: No providers configured
//   - And more...
//
// The PROVIDER_AUTH / USER_AUTH split is deliberate: a rejected provider
// credential means the next provider should be tried, while a broken caller
// session means no provider can help. Callers distinguish them by code, not
// by message text.
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.ErrCodeUsageLimit, "monthly message quota exhausted")
//
// Wrap an existing error with context:
//
//	wrapped := errors.Wrap(err, "asking provider")
//
// Check markers on an error chain:
//
//	if errors.IsLimitReached(err) {
//	    // surface upgrade prompt, do not retry
//	}
//
// # JSON Serialization
//
// Errors support JSON serialization so structured error bodies survive
// transport boundaries:
//
//	data, err := json.Marshal(reqErr)
package errors
