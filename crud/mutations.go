package crud

import (
	"context"

	"github.com/goliatone/go-entity-cache/invalidation"
)

// Create persists a new entity. With optimism enabled the pipeline is:
// cancel in-flight list fetches, snapshot every cached list, insert a
// placeholder row bearing a pending id, then call the API. Failure restores
// the snapshots verbatim and surfaces an error notification; success replaces
// exactly the placeholder row with the authoritative entity and seeds its
// detail entry. Settle-time invalidation runs on both paths.
func (r *Resource[T]) Create(ctx context.Context, data T) (T, error) {
	var (
		snapshots []invalidation.KeyedValue
		pending   ID
	)

	if r.optimistic {
		_ = r.store.CancelQueries(ctx, r.keys.Lists())
		snapshots = r.store.GetQueriesData(ctx, r.keys.Lists())

		pending = PendingID()
		placeholder := r.handlers.WithID(data, pending)
		_ = r.store.SetQueriesData(ctx, r.keys.Lists(), func(current any) (any, bool) {
			list, ok := current.([]T)
			if !ok {
				return nil, false
			}
			next := make([]T, 0, len(list)+1)
			next = append(next, list...)
			next = append(next, placeholder)
			return next, true
		})
	}

	created, err := r.adapter.Create(ctx, data)
	if err != nil {
		if r.optimistic {
			_ = r.store.Restore(ctx, snapshots)
		}
		r.notifyError(r.messages.CreateFailed)
		r.settle(ctx, ID{})
		var zero T
		return zero, err
	}

	realID := r.handlers.ID(created)
	if r.optimistic {
		r.replacePendingRow(ctx, pending, created)
	}
	_ = r.store.SetQueryData(ctx, r.keys.Detail(realID.Segment()), func(any) (any, bool) {
		return created, true
	})

	r.notifySuccess(r.messages.Created)
	r.settle(ctx, realID)
	return created, nil
}

// Update modifies the entity with the given id. Optimism snapshots the detail
// entry and every cached list, merges the incoming data into both, and rolls
// both back verbatim on failure. Success writes the authoritative response
// into the detail entry and the matching list row.
func (r *Resource[T]) Update(ctx context.Context, id int64, data T) (T, error) {
	realID := RealID(id)
	detailKey := r.keys.Detail(id)

	var detailSnapshot, listSnapshot []invalidation.KeyedValue
	if r.optimistic {
		_ = r.store.CancelQueries(ctx, detailKey)
		_ = r.store.CancelQueries(ctx, r.keys.Lists())
		detailSnapshot = r.store.GetQueriesData(ctx, detailKey)
		listSnapshot = r.store.GetQueriesData(ctx, r.keys.Lists())

		_ = r.store.SetQueryData(ctx, detailKey, func(current any) (any, bool) {
			cached, ok := current.(T)
			if !ok {
				return nil, false
			}
			return r.merge(cached, data, realID), true
		})
		r.patchRow(ctx, realID, func(cached T) T {
			return r.merge(cached, data, realID)
		})
	}

	updated, err := r.adapter.Update(ctx, id, data)
	if err != nil {
		if r.optimistic {
			_ = r.store.Restore(ctx, detailSnapshot)
			_ = r.store.Restore(ctx, listSnapshot)
		}
		r.notifyError(r.messages.UpdateFailed)
		r.settle(ctx, realID)
		var zero T
		return zero, err
	}

	_ = r.store.SetQueryData(ctx, detailKey, func(any) (any, bool) {
		return updated, true
	})
	r.patchRow(ctx, realID, func(T) T { return updated })

	r.notifySuccess(r.messages.Updated)
	r.settle(ctx, realID)
	return updated, nil
}

// Delete removes the entity with the given id. Optimism filters the row out
// of every cached list (restored on failure); success removes the detail
// entry outright rather than merely invalidating it.
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	realID := RealID(id)

	var snapshots []invalidation.KeyedValue
	if r.optimistic {
		_ = r.store.CancelQueries(ctx, r.keys.Lists())
		snapshots = r.store.GetQueriesData(ctx, r.keys.Lists())
		r.filterRows(ctx, map[int64]bool{id: true})
	}

	if err := r.adapter.Delete(ctx, id); err != nil {
		if r.optimistic {
			_ = r.store.Restore(ctx, snapshots)
		}
		r.notifyError(r.messages.DeleteFailed)
		r.settle(ctx, realID)
		return err
	}

	_ = r.store.RemoveQueries(ctx, r.keys.Detail(id))
	r.notifySuccess(r.messages.Deleted)
	r.settle(ctx, realID)
	return nil
}

// merge applies incoming data onto a cached row, preserving the row's id.
func (r *Resource[T]) merge(current, incoming T, id ID) T {
	if r.handlers.Merge != nil {
		return r.handlers.Merge(current, incoming)
	}
	return r.handlers.WithID(incoming, id)
}

// replacePendingRow swaps the row bearing the exact pending token for the
// authoritative entity in every cached list. Matching is by token identity;
// a different row is never touched.
func (r *Resource[T]) replacePendingRow(ctx context.Context, pending ID, authoritative T) {
	_ = r.store.SetQueriesData(ctx, r.keys.Lists(), func(current any) (any, bool) {
		list, ok := current.([]T)
		if !ok {
			return nil, false
		}
		replaced := false
		next := make([]T, len(list))
		copy(next, list)
		for i, row := range list {
			if r.handlers.ID(row).Equal(pending) {
				next[i] = authoritative
				replaced = true
			}
		}
		return next, replaced
	})
}

// patchRow rewrites the list row with the given real id in every cached list.
func (r *Resource[T]) patchRow(ctx context.Context, id ID, patch func(T) T) {
	_ = r.store.SetQueriesData(ctx, r.keys.Lists(), func(current any) (any, bool) {
		list, ok := current.([]T)
		if !ok {
			return nil, false
		}
		patched := false
		next := make([]T, len(list))
		copy(next, list)
		for i, row := range list {
			if r.handlers.ID(row).Equal(id) {
				next[i] = patch(row)
				patched = true
			}
		}
		return next, patched
	})
}

// filterRows drops the rows with the given real ids from every cached list.
func (r *Resource[T]) filterRows(ctx context.Context, ids map[int64]bool) {
	_ = r.store.SetQueriesData(ctx, r.keys.Lists(), func(current any) (any, bool) {
		list, ok := current.([]T)
		if !ok {
			return nil, false
		}
		next := make([]T, 0, len(list))
		dropped := false
		for _, row := range list {
			rowID := r.handlers.ID(row)
			if !rowID.IsPending() && ids[rowID.Int64()] {
				dropped = true
				continue
			}
			next = append(next, row)
		}
		return next, dropped
	})
}
