package crud

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-entity-cache/querykey"
)

// Prefetching is an optimization, not a correctness requirement: every method
// here is best effort. Missing capabilities make the call a silent no-op and
// fetch failures are logged at debug, never returned.

// PrefetchList warms the list cache for the given params.
func (r *Resource[T]) PrefetchList(ctx context.Context, params any) {
	r.prefetch(ctx, r.keys.List(params), func(ctx context.Context) (any, error) {
		return r.adapter.List(ctx, params)
	})
}

// PrefetchDetail warms the detail cache for one id. Non-positive ids are
// ignored.
func (r *Resource[T]) PrefetchDetail(ctx context.Context, id int64) {
	if id <= 0 {
		return
	}
	r.prefetch(ctx, r.keys.Detail(id), func(ctx context.Context) (any, error) {
		return r.adapter.GetByID(ctx, id)
	})
}

// PrefetchRelated warms a related collection of one entity. A no-op when the
// adapter has no related capability.
func (r *Resource[T]) PrefetchRelated(ctx context.Context, id int64, relation querykey.Namespace) {
	if r.caps.related == nil || id <= 0 {
		return
	}
	r.prefetch(ctx, r.keys.Children(id, relation), func(ctx context.Context) (any, error) {
		return r.caps.related.GetRelated(ctx, id, string(relation))
	})
}

// PrefetchMany warms the detail cache for a set of ids.
func (r *Resource[T]) PrefetchMany(ctx context.Context, ids []int64) {
	for _, id := range ids {
		r.PrefetchDetail(ctx, id)
	}
}

func (r *Resource[T]) prefetch(ctx context.Context, key querykey.Key, fetch func(ctx context.Context) (any, error)) {
	if err := r.store.Prefetch(ctx, key, fetch); err != nil {
		r.logger.Debug("prefetch failed", slog.String("key", querykey.Encode(key)), slog.String("error", err.Error()))
	}
}
