package fallback

import (
	reqerrors "github.com/vinayprograms/requestkit/errors"
	"github.com/vinayprograms/requestkit/llm"
)

// BuildChain orders the connected providers for one run. The preferred
// provider leads when it is connected; otherwise the first connected
// provider takes its place. The remaining providers follow in the order
// the source supplied them. Duplicates collapse to their first position.
//
// Returns a NO_PROVIDERS error when the connected list is empty, before
// any network call is made.
func BuildChain(preferred llm.ProviderType, connected []llm.ConnectedProvider) ([]llm.ProviderType, error) {
	if len(connected) == 0 {
		return nil, reqerrors.NoProviders()
	}

	seen := make(map[llm.ProviderType]bool, len(connected))
	chain := make([]llm.ProviderType, 0, len(connected))

	add := func(t llm.ProviderType) {
		if !seen[t] {
			seen[t] = true
			chain = append(chain, t)
		}
	}

	for _, c := range connected {
		if c.Type == preferred {
			add(preferred)
			break
		}
	}
	for _, c := range connected {
		add(c.Type)
	}
	return chain, nil
}
