package gateway

import (
	"context"
)

// Client is the chainable data-access surface a wrapped backend client
// must implement. Builder entry points return a Builder; non-builder
// members are plain delegated calls.
type Client interface {
	// From starts a query/mutation builder against a collection.
	From(collection string) Builder

	// Rpc starts a builder for a named server-side function call.
	Rpc(fn string, args map[string]interface{}) Builder

	// Ping checks connectivity. Not a terminal builder step, so it is
	// passed through without rate gating.
	Ping(ctx context.Context) error
}

// Builder is the fluent query/mutation surface. Every intermediate step
// returns another Builder; Exec is the single well-known hook that
// resolves the builder to its result and triggers the network.
type Builder interface {
	Select(columns ...string) Builder
	Filter(field string, value interface{}) Builder
	Order(field string, ascending bool) Builder
	Limit(n int) Builder
	Insert(values map[string]interface{}) Builder
	Update(values map[string]interface{}) Builder
	Delete() Builder

	// Exec resolves the builder: the only step that reaches the network.
	Exec(ctx context.Context) (interface{}, error)
}
