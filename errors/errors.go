package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// RequestError is the interface for all structured errors in requestkit.
// It extends the standard error interface with the context that fallback
// and retry decisions need.
type RequestError interface {
	error

	// Code returns the specific error code identifying the failure type.
	Code() ErrorCode

	// Category returns the error category for retry/handling decisions.
	Category() ErrorCategory

	// Retryable returns true if the operation may succeed on retry.
	Retryable() bool

	// Metadata returns additional context as key-value pairs.
	Metadata() map[string]string

	// Provider returns the provider that produced the error, if any.
	Provider() string

	// Attempted returns the providers attempted before this error
	// surfaced, in attempt order.
	Attempted() []string

	// Unwrap returns the underlying error, if any.
	Unwrap() error
}

// Error is the concrete implementation of RequestError.
type Error struct {
	code      ErrorCode
	category  ErrorCategory
	message   string
	cause     error
	metadata  map[string]string
	retryable *bool // nil means use default based on category
	timestamp time.Time
	provider  string   // provider that produced the error, if applicable
	attempted []string // providers attempted before this error surfaced
}

// Ensure Error implements RequestError and json.Marshaler/Unmarshaler.
var (
	_ RequestError     = (*Error)(nil)
	_ json.Marshaler   = (*Error)(nil)
	_ json.Unmarshaler = (*Error)(nil)
)

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Retryable returns whether this error is retryable.
func (e *Error) Retryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	return e.category.IsRetryable()
}

// Metadata returns the error metadata.
func (e *Error) Metadata() map[string]string {
	if e.metadata == nil {
		return make(map[string]string)
	}
	// Return a copy to prevent modification
	result := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		result[k] = v
	}
	return result
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Timestamp returns when the error occurred.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// Provider returns the provider that produced the error, if set.
func (e *Error) Provider() string {
	return e.provider
}

// Attempted returns the providers attempted before this error surfaced,
// in attempt order.
func (e *Error) Attempted() []string {
	if e.attempted == nil {
		return nil
	}
	result := make([]string, len(e.attempted))
	copy(result, e.attempted)
	return result
}

// errorJSON is the JSON representation of an Error.
type errorJSON struct {
	Code      ErrorCode         `json:"code"`
	Category  ErrorCategory     `json:"category"`
	Message   string            `json:"message"`
	Cause     string            `json:"cause,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Retryable bool              `json:"retryable"`
	Timestamp string            `json:"timestamp,omitempty"`
	Provider  string            `json:"provider,omitempty"`
	Attempted []string          `json:"attempted,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	j := errorJSON{
		Code:      e.code,
		Category:  e.category,
		Message:   e.message,
		Metadata:  e.metadata,
		Retryable: e.Retryable(),
		Provider:  e.provider,
		Attempted: e.attempted,
	}
	if e.cause != nil {
		j.Cause = e.cause.Error()
	}
	if !e.timestamp.IsZero() {
		j.Timestamp = e.timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Error) UnmarshalJSON(data []byte) error {
	var j errorJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	e.code = j.Code
	e.category = j.Category
	e.message = j.Message
	e.metadata = j.Metadata
	e.provider = j.Provider
	e.attempted = j.Attempted
	r := j.Retryable
	e.retryable = &r
	if j.Cause != "" {
		e.cause = fmt.Errorf("%s", j.Cause)
	}
	if j.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, j.Timestamp); err == nil {
			e.timestamp = t
		}
	}
	return nil
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithCategory overrides the default category.
func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) {
		e.category = cat
	}
}

// WithRetryable explicitly sets whether the error is retryable.
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithMetadata adds metadata key-value pairs.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithProvider sets the provider that produced the error.
func WithProvider(provider string) Option {
	return func(e *Error) {
		e.provider = provider
	}
}

// WithAttempted records the providers attempted, in attempt order.
func WithAttempted(providers []string) Option {
	return func(e *Error) {
		e.attempted = make([]string, len(providers))
		copy(e.attempted, providers)
	}
}

// WithTimestamp sets a custom timestamp.
func WithTimestamp(t time.Time) Option {
	return func(e *Error) {
		e.timestamp = t
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode creates an error with the default description for the code.
func FromCode(code ErrorCode, opts ...Option) *Error {
	return New(code, code.Description(), opts...)
}

// Timeout creates a timeout error.
func Timeout(message string, opts ...Option) *Error {
	return New(ErrCodeTimeout, message, opts...)
}

// NetworkErr creates a network error.
func NetworkErr(message string, opts ...Option) *Error {
	return New(ErrCodeNetworkErr, message, opts...)
}

// InvalidInput creates an invalid input error.
func InvalidInput(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidInput, message, opts...)
}

// Internal creates an internal error.
func Internal(message string, opts ...Option) *Error {
	return New(ErrCodeInternal, message, opts...)
}

// SoftFailure creates a soft failure error for a provider that answered
// without producing a usable result.
func SoftFailure(provider string, opts ...Option) *Error {
	opts = append([]Option{WithProvider(provider)}, opts...)
	return New(ErrCodeSoftFailure,
		fmt.Sprintf("provider %s returned no usable result", provider), opts...)
}

// ProviderAuth creates a provider credential error. These advance the
// fallback chain rather than aborting the run.
func ProviderAuth(provider string, opts ...Option) *Error {
	opts = append([]Option{WithProvider(provider)}, opts...)
	return New(ErrCodeProviderAuth,
		fmt.Sprintf("provider %s rejected credentials", provider), opts...)
}

// UserAuth creates a user authentication error. These abort the run.
func UserAuth(message string, opts ...Option) *Error {
	return New(ErrCodeUserAuth, message, opts...)
}

// UsageLimit creates a usage limit error. These abort the run.
func UsageLimit(message string, opts ...Option) *Error {
	return New(ErrCodeUsageLimit, message, opts...)
}

// NoProviders creates a configuration error for an empty provider list.
func NoProviders(opts ...Option) *Error {
	return New(ErrCodeNoProviders, ErrCodeNoProviders.Description(), opts...)
}

// AllProvidersFailed creates the aggregate error returned when every chain
// entry was attempted without success. The message names the attempted
// providers so the caller can surface them.
func AllProvidersFailed(attempted []string, lastErr error, opts ...Option) *Error {
	var message string
	switch len(attempted) {
	case 0:
		message = "no providers attempted"
	case 1:
		message = fmt.Sprintf("provider %s failed", attempted[0])
	default:
		message = fmt.Sprintf("all providers failed (attempted: %s)",
			joinProviders(attempted))
	}
	opts = append([]Option{WithAttempted(attempted), WithCause(lastErr)}, opts...)
	return New(ErrCodeAllProvidersFailed, message, opts...)
}

func joinProviders(providers []string) string {
	out := ""
	for i, p := range providers {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
