// Package fallback runs AI queries against an ordered chain of connected
// providers. The caller's preferred provider is tried first; on transient
// failure the coordinator advances to the next connected provider, and only
// when every provider has been attempted does the caller see an error.
//
// Failures that indicate a problem with the caller rather than the provider
// (usage limits, session authentication) abort the run immediately so the
// caller can act on the real cause instead of a misleading aggregate.
package fallback
