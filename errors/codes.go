package errors

// ErrorCategory classifies errors by their nature and attempt semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where another attempt
	// (same provider later, or the next provider in a fallback chain) may
	// succeed. Examples: network timeouts, provider outages.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where another attempt will not
	// help. Examples: invalid input, user authentication failure.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates resource exhaustion or quota issues.
	// Examples: rate limiting, usage quota exceeded.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected errors, bugs, or system failures.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	return c == CategoryTransient
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for request orchestration failures.
const (
	// Transient errors
	ErrCodeTimeout      ErrorCode = "TIMEOUT"       // Operation timed out
	ErrCodeUnavailable  ErrorCode = "UNAVAILABLE"   // Backend temporarily unavailable
	ErrCodeNetworkErr   ErrorCode = "NETWORK_ERR"   // Network connectivity issue
	ErrCodeSoftFailure  ErrorCode = "SOFT_FAILURE"  // Provider answered but produced nothing usable
	ErrCodeProviderAuth ErrorCode = "PROVIDER_AUTH" // Provider rejected our credential

	// Permanent errors
	ErrCodeUserAuth     ErrorCode = "USER_AUTH"     // Caller session authentication failed
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT" // Malformed or invalid input
	ErrCodeUnsupported  ErrorCode = "UNSUPPORTED"   // Operation not supported by provider
	ErrCodeCanceled     ErrorCode = "CANCELED"      // Operation was canceled
	ErrCodeNoProviders  ErrorCode = "NO_PROVIDERS"  // Zero providers configured

	// Resource errors
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED" // Request rate ceiling hit
	ErrCodeUsageLimit  ErrorCode = "USAGE_LIMIT"  // Usage quota exhausted

	// Terminal orchestration errors
	ErrCodeAllProvidersFailed ErrorCode = "ALL_PROVIDERS_FAILED" // Every chain entry was attempted
	ErrCodeInternal           ErrorCode = "INTERNAL"             // Unexpected internal error
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeUnavailable, ErrCodeNetworkErr,
		ErrCodeSoftFailure, ErrCodeProviderAuth, ErrCodeAllProvidersFailed:
		return CategoryTransient

	case ErrCodeUserAuth, ErrCodeInvalidInput, ErrCodeUnsupported,
		ErrCodeCanceled, ErrCodeNoProviders:
		return CategoryPermanent

	case ErrCodeRateLimited, ErrCodeUsageLimit:
		return CategoryResource

	default:
		return CategoryInternal
	}
}

// FallsBack reports whether a provider attempt that failed with this code
// should advance to the next provider in the chain. Usage limits and user
// authentication failures abort the run instead; they are problems with the
// caller, not the provider.
func (c ErrorCode) FallsBack() bool {
	switch c {
	case ErrCodeUsageLimit, ErrCodeUserAuth, ErrCodeInvalidInput,
		ErrCodeCanceled, ErrCodeNoProviders:
		return false
	default:
		return true
	}
}

// Description returns a short human-readable description for the code.
func (c ErrorCode) Description() string {
	switch c {
	case ErrCodeTimeout:
		return "operation timed out"
	case ErrCodeUnavailable:
		return "backend temporarily unavailable"
	case ErrCodeNetworkErr:
		return "network error"
	case ErrCodeSoftFailure:
		return "provider returned no usable result"
	case ErrCodeProviderAuth:
		return "provider credential rejected"
	case ErrCodeUserAuth:
		return "user authentication failed"
	case ErrCodeInvalidInput:
		return "invalid input"
	case ErrCodeUnsupported:
		return "operation not supported"
	case ErrCodeCanceled:
		return "operation canceled"
	case ErrCodeNoProviders:
		return "no AI providers configured"
	case ErrCodeRateLimited:
		return "rate limit exceeded"
	case ErrCodeUsageLimit:
		return "usage limit reached"
	case ErrCodeAllProvidersFailed:
		return "all AI providers failed"
	default:
		return "internal error"
	}
}
