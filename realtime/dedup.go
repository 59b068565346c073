// Package realtime hosts the live-data machinery: the request deduplication
// ledger, the reconnecting connection coordinator, and the push reconciler
// that folds server events back into the cache.
package realtime

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-entity-cache/querykey"
)

// Deduper collapses concurrent identical requests into one network call.
// Callers derive a signature (typically the encoded query key); while a call
// for that signature is in flight every other caller with the same signature
// joins it and observes the same outcome. The ledger entry is dropped the
// instant the call settles, success or failure.
type Deduper struct {
	group   singleflight.Group
	pending *xsync.MapOf[string, struct{}]
}

// NewDeduper creates an empty ledger.
func NewDeduper() *Deduper {
	return &Deduper{pending: xsync.NewMapOf[string, struct{}]()}
}

// Do executes fn under the signature, deduplicating concurrent callers.
func (d *Deduper) Do(ctx context.Context, signature string, fn func(ctx context.Context) (any, error)) (any, error) {
	d.pending.Store(signature, struct{}{})
	value, err, _ := d.group.Do(signature, func() (any, error) {
		defer d.pending.Delete(signature)
		return fn(ctx)
	})
	// The executing call clears its own entry; duplicates that lost the race
	// to Store after settlement clean up here.
	d.pending.Delete(signature)
	return value, err
}

// DoKey is Do with the signature derived from a query key.
func (d *Deduper) DoKey(ctx context.Context, key querykey.Key, fn func(ctx context.Context) (any, error)) (any, error) {
	return d.Do(ctx, querykey.Encode(key), fn)
}

// Forget drops the ledger entry for a signature so the next caller issues a
// fresh call instead of joining a superseded one.
func (d *Deduper) Forget(signature string) {
	d.group.Forget(signature)
	d.pending.Delete(signature)
}

// InFlight reports how many signatures currently have a call in flight.
func (d *Deduper) InFlight() int {
	return d.pending.Size()
}

// Do is the typed wrapper over Deduper.Do for callers that know their result
// type.
func Do[T any](ctx context.Context, d *Deduper, signature string, fn func(ctx context.Context) (T, error)) (T, error) {
	raw, err := d.Do(ctx, signature, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return raw.(T), nil
}
