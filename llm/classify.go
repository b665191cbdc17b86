package llm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/api/googleapi"

	reqerrors "github.com/vinayprograms/requestkit/errors"
)

// Classify maps a provider SDK error onto the structured taxonomy. The
// fallback coordinator decides from the resulting code whether to advance
// the chain or abort; nothing downstream inspects message text.
//
// Errors that already carry a structured code pass through untouched, so
// a Provider backed by an org proxy can surface USER_AUTH or USAGE_LIMIT
// directly and have it honored.
func Classify(provider ProviderType, err error) error {
	if err == nil {
		return nil
	}

	var reqErr *reqerrors.Error
	if errors.As(err, &reqErr) {
		return err
	}

	status := statusOf(err)
	switch {
	case status == 401 || status == 403:
		// Our credential for this provider was rejected. The next
		// provider in the chain may still work.
		return reqerrors.ProviderAuth(string(provider),
			reqerrors.WithCause(err),
			reqerrors.WithMetadata("status", strconv.Itoa(status)))

	case status == 402 || isQuotaExhausted(err):
		return reqerrors.UsageLimit(
			fmt.Sprintf("%s usage limit reached", provider.DisplayName()),
			reqerrors.WithProvider(string(provider)),
			reqerrors.WithCause(err))

	case status == 429:
		return reqerrors.New(reqerrors.ErrCodeRateLimited,
			fmt.Sprintf("%s rate limit exceeded", provider.DisplayName()),
			reqerrors.WithProvider(string(provider)),
			reqerrors.WithCause(err))

	case status == 408:
		return reqerrors.Timeout(
			fmt.Sprintf("%s request timed out", provider.DisplayName()),
			reqerrors.WithProvider(string(provider)),
			reqerrors.WithCause(err))

	case status >= 500:
		return reqerrors.New(reqerrors.ErrCodeUnavailable,
			fmt.Sprintf("%s temporarily unavailable", provider.DisplayName()),
			reqerrors.WithProvider(string(provider)),
			reqerrors.WithCause(err))

	case status == 0 && isNetworkError(err):
		return reqerrors.NetworkErr(
			fmt.Sprintf("network error reaching %s", provider.DisplayName()),
			reqerrors.WithProvider(string(provider)),
			reqerrors.WithCause(err))
	}

	// Context cancellation and deadline map to CANCELED/TIMEOUT; anything
	// else stays an internal error, which still advances the chain.
	return reqerrors.Wrap(err,
		fmt.Sprintf("%s request failed", provider.DisplayName()),
		reqerrors.WithProvider(string(provider)))
}

// statusOf extracts the HTTP status carried by a provider SDK error.
// Returns 0 when the error has no transport status (network failures).
func statusOf(err error) int {
	var aerr *anthropic.Error
	if errors.As(err, &aerr) {
		return aerr.StatusCode
	}
	var oerr *openai.Error
	if errors.As(err, &oerr) {
		return oerr.StatusCode
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// isQuotaExhausted recognizes account-level quota exhaustion reported
// without a 402 status. OpenAI reports insufficient_quota inside a 429.
func isQuotaExhausted(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "insufficient_quota") ||
		strings.Contains(msg, "quota exceeded") ||
		strings.Contains(msg, "billing")
}

func isNetworkError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "eof")
}
