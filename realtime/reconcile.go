package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-entity-cache/crud"
	"github.com/goliatone/go-entity-cache/invalidation"
	"github.com/goliatone/go-entity-cache/querykey"
)

// Reconciler folds push messages for one entity family back into the cache:
// the locally held lists are patched immediately (insert / merge-by-id /
// filter-by-id / full replace) and the dependent namespaces are invalidated,
// so the local patch and the authoritative cache converge even when messages
// are lost. Patched entries keep their freshness clock, so the regular
// staleness window still forces an authoritative refetch eventually.
type Reconciler[T any] struct {
	entity      querykey.Namespace
	keys        querykey.Keys
	store       invalidation.Store
	invalidator *invalidation.Invalidator
	handlers    crud.Handlers[T]
	logger      *slog.Logger
}

// NewReconciler builds a reconciler for one entity family.
func NewReconciler[T any](entity querykey.Namespace, store invalidation.Store, invalidator *invalidation.Invalidator, handlers crud.Handlers[T], logger *slog.Logger) *Reconciler[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler[T]{
		entity:      entity,
		keys:        querykey.New(entity),
		store:       store,
		invalidator: invalidator,
		handlers:    handlers,
		logger:      logger.With(slog.String("component", "reconciler"), slog.String("entity", string(entity))),
	}
}

// Bind subscribes the reconciler to a connector, handling only this entity's
// messages. Reconciliation failures are logged; a push message must never
// take the read loop down.
func (rc *Reconciler[T]) Bind(c *Connector) {
	c.OnMessage(func(msg Message) {
		if msg.Entity != rc.entity {
			return
		}
		if err := rc.Apply(context.Background(), msg); err != nil {
			rc.logger.Warn("reconciliation failed", slog.String("type", string(msg.Type)), slog.String("error", err.Error()))
		}
	})
}

// Apply reconciles one push message into the cache.
func (rc *Reconciler[T]) Apply(ctx context.Context, msg Message) error {
	switch msg.Type {
	case MessageCreate:
		return rc.applyCreate(ctx, msg)
	case MessageUpdate:
		return rc.applyUpdate(ctx, msg)
	case MessageDelete:
		return rc.applyDelete(ctx, msg)
	case MessageSync:
		return rc.applySync(ctx, msg)
	default:
		return fmt.Errorf("realtime: unhandled message type %q", msg.Type)
	}
}

func (rc *Reconciler[T]) applyCreate(ctx context.Context, msg Message) error {
	entity, err := rc.decodeEntity(msg.Data)
	if err != nil {
		return err
	}
	id := rc.handlers.ID(entity)

	_ = rc.store.SetQueriesData(ctx, rc.keys.Lists(), func(current any) (any, bool) {
		list, ok := current.([]T)
		if !ok {
			return nil, false
		}
		for _, row := range list {
			if rc.handlers.ID(row).Equal(id) {
				return nil, false // already present, e.g. our own optimistic create
			}
		}
		next := make([]T, 0, len(list)+1)
		next = append(next, list...)
		next = append(next, entity)
		return next, true
	})
	_ = rc.store.SetQueryData(ctx, rc.keys.Detail(id.Segment()), func(any) (any, bool) {
		return entity, true
	})
	return rc.invalidator.InvalidateDependents(ctx, rc.entity)
}

func (rc *Reconciler[T]) applyUpdate(ctx context.Context, msg Message) error {
	entity, err := rc.decodeEntity(msg.Data)
	if err != nil {
		return err
	}
	id := rc.handlers.ID(entity)

	_ = rc.store.SetQueriesData(ctx, rc.keys.Lists(), func(current any) (any, bool) {
		list, ok := current.([]T)
		if !ok {
			return nil, false
		}
		merged := false
		next := make([]T, len(list))
		copy(next, list)
		for i, row := range list {
			if rc.handlers.ID(row).Equal(id) {
				next[i] = entity
				merged = true
			}
		}
		return next, merged
	})
	_ = rc.store.SetQueryData(ctx, rc.keys.Detail(id.Segment()), func(any) (any, bool) {
		return entity, true
	})
	return rc.invalidator.InvalidateDependents(ctx, rc.entity)
}

func (rc *Reconciler[T]) applyDelete(ctx context.Context, msg Message) error {
	id := crud.RealID(msg.ID)

	_ = rc.store.SetQueriesData(ctx, rc.keys.Lists(), func(current any) (any, bool) {
		list, ok := current.([]T)
		if !ok {
			return nil, false
		}
		next := make([]T, 0, len(list))
		dropped := false
		for _, row := range list {
			if rc.handlers.ID(row).Equal(id) {
				dropped = true
				continue
			}
			next = append(next, row)
		}
		return next, dropped
	})
	_ = rc.store.RemoveQueries(ctx, rc.keys.Detail(msg.ID))
	return rc.invalidator.InvalidateDependents(ctx, rc.entity)
}

func (rc *Reconciler[T]) applySync(ctx context.Context, msg Message) error {
	var full []T
	if err := json.Unmarshal(msg.Data, &full); err != nil {
		return fmt.Errorf("realtime: decode sync payload: %w", err)
	}

	// Full replace: every cached list for the namespace becomes the
	// authoritative snapshot, and details are reseeded from it.
	_ = rc.store.SetQueriesData(ctx, rc.keys.Lists(), func(current any) (any, bool) {
		if _, ok := current.([]T); !ok {
			return nil, false
		}
		next := make([]T, len(full))
		copy(next, full)
		return next, true
	})
	for _, entity := range full {
		entity := entity
		id := rc.handlers.ID(entity)
		_ = rc.store.SetQueryData(ctx, rc.keys.Detail(id.Segment()), func(any) (any, bool) {
			return entity, true
		})
	}
	return rc.invalidator.InvalidateDependents(ctx, rc.entity)
}

func (rc *Reconciler[T]) decodeEntity(data json.RawMessage) (T, error) {
	var entity T
	if err := json.Unmarshal(data, &entity); err != nil {
		return entity, fmt.Errorf("realtime: decode %s payload: %w", rc.entity, err)
	}
	return entity, nil
}
