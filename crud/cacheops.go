package crud

import (
	"context"
)

// The cache-management surface: a uniform set of operations over this
// resource's slice of the cache, independent of entity specifics. These are
// the only sanctioned write paths into cached entity data besides the
// mutation pipeline itself.

// InvalidateAll evicts everything cached under the namespace.
func (r *Resource[T]) InvalidateAll(ctx context.Context) error {
	return r.store.InvalidateQueries(ctx, r.keys.All())
}

// InvalidateLists evicts every cached list.
func (r *Resource[T]) InvalidateLists(ctx context.Context) error {
	return r.store.InvalidateQueries(ctx, r.keys.Lists())
}

// InvalidateList evicts the one list addressed by params.
func (r *Resource[T]) InvalidateList(ctx context.Context, params any) error {
	return r.store.InvalidateQueries(ctx, r.keys.List(params))
}

// InvalidateDetail evicts one detail entry.
func (r *Resource[T]) InvalidateDetail(ctx context.Context, id int64) error {
	return r.store.InvalidateQueries(ctx, r.keys.Detail(id))
}

// SetDetail writes an entity into its detail entry directly, bypassing the
// network. Used to seed caches from data obtained elsewhere.
func (r *Resource[T]) SetDetail(ctx context.Context, entity T) error {
	id := r.handlers.ID(entity)
	return r.store.SetQueryData(ctx, r.keys.Detail(id.Segment()), func(any) (any, bool) {
		return entity, true
	})
}

// RemoveDetail removes one detail entry outright.
func (r *Resource[T]) RemoveDetail(ctx context.Context, id int64) error {
	return r.store.RemoveQueries(ctx, r.keys.Detail(id))
}

// Reset removes everything cached under the namespace, lists and details
// alike, and aborts any in-flight fetches.
func (r *Resource[T]) Reset(ctx context.Context) error {
	return r.store.RemoveQueries(ctx, r.keys.All())
}
