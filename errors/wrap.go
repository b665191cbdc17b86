package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a RequestError, it wraps it with the new message while
// preserving its code, category, and markers.
// Otherwise, it creates a new Internal error wrapping the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	// If it's already a requestkit error, preserve its properties
	var reqErr *Error
	if errors.As(err, &reqErr) {
		wrapped := &Error{
			code:      reqErr.code,
			category:  reqErr.category,
			message:   message,
			cause:     err,
			metadata:  reqErr.Metadata(),
			retryable: reqErr.retryable,
			provider:  reqErr.provider,
			attempted: reqErr.attempted,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	// Default to internal error for unknown errors
	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// AsRequestError attempts to extract a RequestError from an error chain.
// Returns nil if no RequestError is found.
func AsRequestError(err error) RequestError {
	var reqErr *Error
	if errors.As(err, &reqErr) {
		return reqErr
	}
	return nil
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var reqErr *Error
	if errors.As(err, &reqErr) {
		return reqErr.code == code
	}
	return false
}

// IsLimitReached reports whether the error chain carries a usage limit
// error. This is the caller-facing marker for quota exhaustion.
func IsLimitReached(err error) bool {
	return Is(err, ErrCodeUsageLimit)
}

// IsAllProvidersFailed reports whether the error chain carries the aggregate
// all-providers-exhausted error.
func IsAllProvidersFailed(err error) bool {
	return Is(err, ErrCodeAllProvidersFailed)
}

// AttemptedProviders returns the providers recorded on the error chain,
// in attempt order. Returns nil if none were recorded.
func AttemptedProviders(err error) []string {
	var reqErr *Error
	if errors.As(err, &reqErr) {
		return reqErr.Attempted()
	}
	return nil
}
