// Package dedup collapses redundant concurrent operations on the same
// logical resource into one network round-trip.
//
// Two independent capabilities share a caller-chosen keyspace. The
// Deduplicator collapses concurrent calls with the same key into a single
// in-flight operation whose settlement every caller observes; a stale
// entry older than the TTL is evicted so a hung upstream call cannot
// block future callers forever. The Batcher merges rapid successive
// partial updates to one entity into a single flushed request after a
// quiet period, last write winning per field.
//
// # Usage
//
//	d := dedup.NewDeduplicator(0) // default 30s TTL
//	value, err := d.Deduplicate(ctx, "project:42", func(ctx context.Context) (interface{}, error) {
//	    return client.FetchProject(ctx, 42)
//	})
//
//	b := dedup.NewBatcher(0) // default 300ms window
//	handle := b.Batch("project:42", dedup.Fields{"title": "v2"}, flush)
//	result, err := handle.Wait(ctx)
//
// Neither capability guarantees exactly-once delivery to the network;
// only that duplicate caller-side invocations collapse into one in-flight
// operation. Construct instances explicitly and share them per process.
package dedup
