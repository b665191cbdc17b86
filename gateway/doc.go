// Package gateway rate-gates a chainable data-access client without
// changing its call shape.
//
// The wrapped client exposes fluent builders ending in a single terminal
// Exec step. Intercept returns a client with the identical surface whose
// intermediate chain steps pass through untouched and whose Exec — and
// only Exec — is admitted through a ratelimit.RequestQueue before the
// network call runs. Rejections from the underlying operation propagate
// unchanged; rate limiting itself never produces an error, only delay.
//
//	gated := gateway.Intercept(client, queue)
//	rows, err := gated.From("projects").
//	    Filter("owner", userID).
//	    Order("updated_at", false).
//	    Limit(20).
//	    Exec(ctx)
//
// One interceptor instance wraps one backend client; everything routed
// through it shares that client's queue and bucket.
package gateway
