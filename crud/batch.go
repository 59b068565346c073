package crud

import (
	"context"

	"github.com/goliatone/go-entity-cache/invalidation"
)

// BatchCreate persists several entities through the batch capability, with
// the same optimistic discipline as Create: placeholder rows with pending ids
// go in first, failure restores the snapshots, success replaces each
// placeholder with its authoritative counterpart (matched positionally, the
// batch contract returns results in input order).
func (r *Resource[T]) BatchCreate(ctx context.Context, items []T) ([]T, error) {
	if r.caps.batch == nil {
		return nil, r.batchUnsupported()
	}
	if len(items) == 0 {
		return nil, nil
	}

	var (
		snapshots []invalidation.KeyedValue
		pendings  []ID
	)
	if r.optimistic {
		_ = r.store.CancelQueries(ctx, r.keys.Lists())
		snapshots = r.store.GetQueriesData(ctx, r.keys.Lists())

		placeholders := make([]T, len(items))
		pendings = make([]ID, len(items))
		for i, item := range items {
			pendings[i] = PendingID()
			placeholders[i] = r.handlers.WithID(item, pendings[i])
		}
		_ = r.store.SetQueriesData(ctx, r.keys.Lists(), func(current any) (any, bool) {
			list, ok := current.([]T)
			if !ok {
				return nil, false
			}
			next := make([]T, 0, len(list)+len(placeholders))
			next = append(next, list...)
			next = append(next, placeholders...)
			return next, true
		})
	}

	created, err := r.caps.batch.BatchCreate(ctx, items)
	if err != nil {
		if r.optimistic {
			_ = r.store.Restore(ctx, snapshots)
		}
		r.notifyError(r.messages.CreateFailed)
		r.settle(ctx, ID{})
		return nil, err
	}

	if r.optimistic {
		for i, entity := range created {
			if i < len(pendings) {
				r.replacePendingRow(ctx, pendings[i], entity)
			}
		}
	}
	for _, entity := range created {
		entity := entity
		id := r.handlers.ID(entity)
		_ = r.store.SetQueryData(ctx, r.keys.Detail(id.Segment()), func(any) (any, bool) {
			return entity, true
		})
	}

	r.notifySuccess(r.messages.Created)
	r.settle(ctx, ID{})
	return created, nil
}

// BatchUpdate applies several updates through the batch capability.
func (r *Resource[T]) BatchUpdate(ctx context.Context, items []BatchUpdateItem[T]) ([]T, error) {
	if r.caps.batch == nil {
		return nil, r.batchUnsupported()
	}
	if len(items) == 0 {
		return nil, nil
	}

	var detailSnapshot, listSnapshot []invalidation.KeyedValue
	if r.optimistic {
		_ = r.store.CancelQueries(ctx, r.keys.Lists())
		_ = r.store.CancelQueries(ctx, r.keys.Details())
		detailSnapshot = r.store.GetQueriesData(ctx, r.keys.Details())
		listSnapshot = r.store.GetQueriesData(ctx, r.keys.Lists())

		for _, item := range items {
			item := item
			id := RealID(item.ID)
			_ = r.store.SetQueryData(ctx, r.keys.Detail(item.ID), func(current any) (any, bool) {
				cached, ok := current.(T)
				if !ok {
					return nil, false
				}
				return r.merge(cached, item.Data, id), true
			})
			r.patchRow(ctx, id, func(cached T) T {
				return r.merge(cached, item.Data, id)
			})
		}
	}

	updated, err := r.caps.batch.BatchUpdate(ctx, items)
	if err != nil {
		if r.optimistic {
			_ = r.store.Restore(ctx, detailSnapshot)
			_ = r.store.Restore(ctx, listSnapshot)
		}
		r.notifyError(r.messages.UpdateFailed)
		r.settle(ctx, ID{})
		return nil, err
	}

	for _, entity := range updated {
		entity := entity
		id := r.handlers.ID(entity)
		_ = r.store.SetQueryData(ctx, r.keys.Detail(id.Segment()), func(any) (any, bool) {
			return entity, true
		})
		r.patchRow(ctx, id, func(T) T { return entity })
	}

	r.notifySuccess(r.messages.Updated)
	r.settle(ctx, ID{})
	return updated, nil
}

// BatchDelete removes several entities through the batch capability.
func (r *Resource[T]) BatchDelete(ctx context.Context, ids []int64) error {
	if r.caps.batch == nil {
		return r.batchUnsupported()
	}
	if len(ids) == 0 {
		return nil
	}

	var snapshots []invalidation.KeyedValue
	if r.optimistic {
		_ = r.store.CancelQueries(ctx, r.keys.Lists())
		snapshots = r.store.GetQueriesData(ctx, r.keys.Lists())

		drop := make(map[int64]bool, len(ids))
		for _, id := range ids {
			drop[id] = true
		}
		r.filterRows(ctx, drop)
	}

	if err := r.caps.batch.BatchDelete(ctx, ids); err != nil {
		if r.optimistic {
			_ = r.store.Restore(ctx, snapshots)
		}
		r.notifyError(r.messages.DeleteFailed)
		r.settle(ctx, ID{})
		return err
	}

	for _, id := range ids {
		_ = r.store.RemoveQueries(ctx, r.keys.Detail(id))
	}

	r.notifySuccess(r.messages.Deleted)
	r.settle(ctx, ID{})
	return nil
}

func (r *Resource[T]) batchUnsupported() error {
	return &ConfigError{Entity: string(r.entity), Message: "batch operations not supported"}
}
