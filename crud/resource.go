// Package crud builds uniform cached resource managers for remote entities:
// read-through list/detail queries, optimistic create/update/delete with
// snapshot rollback, batch variants, prefetching, and a uniform cache
// management surface. One Resource is constructed per entity family and wired
// with the shared store and invalidator.
package crud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-entity-cache/entitygraph"
	"github.com/goliatone/go-entity-cache/invalidation"
	"github.com/goliatone/go-entity-cache/querykey"
)

// Default freshness windows, overridable per resource.
const (
	DefaultStaleTime = 5 * time.Minute
	DefaultGCTime    = 10 * time.Minute
)

// Handlers gives the resource access to an entity's identity without
// reflection. Merge is optional; when nil, an optimistic update replaces the
// cached row with the incoming data (re-stamped with the row's id).
type Handlers[T any] struct {
	ID     func(T) ID
	WithID func(T, ID) T
	Merge  func(current, incoming T) T
}

// Config assembles one resource manager.
type Config[T any] struct {
	// Entity is the namespace this resource manages. Required.
	Entity querykey.Namespace

	// Adapter is the remote API port. Required. Optional capabilities
	// (pagination, batch, search, count, related) are detected here, once.
	Adapter Adapter[T]

	// Handlers provide entity identity access. ID and WithID are required.
	Handlers Handlers[T]

	// Store is the shared cache backend. Required.
	Store invalidation.Store

	// Invalidator applies settle-time invalidation plans. Required.
	Invalidator *invalidation.Invalidator

	// Notifier surfaces mutation outcomes to the user. Defaults to a
	// slog-backed notifier.
	Notifier Notifier

	// StaleTime bounds how old a cached read may be before it is refetched.
	// Defaults to DefaultStaleTime.
	StaleTime time.Duration

	// GCTime documents how long unused entries should survive; the store's
	// TTL enforces it. Defaults to DefaultGCTime.
	GCTime time.Duration

	// DisableOptimistic turns the optimistic phase off entirely: mutations
	// run without cancel/snapshot/patch and rely on settle-time invalidation
	// alone.
	DisableOptimistic bool

	// Strategy is the settle-time invalidation breadth. Defaults to targeted.
	Strategy entitygraph.Strategy

	// Messages overrides the user-facing mutation texts.
	Messages Messages

	Logger *slog.Logger
}

// Resource is the uniform operation set for one entity family.
type Resource[T any] struct {
	entity      querykey.Namespace
	keys        querykey.Keys
	adapter     Adapter[T]
	caps        capabilities[T]
	handlers    Handlers[T]
	store       invalidation.Store
	invalidator *invalidation.Invalidator
	notifier    Notifier
	staleTime   time.Duration
	gcTime      time.Duration
	optimistic  bool
	strategy    entitygraph.Strategy
	messages    Messages
	logger      *slog.Logger
}

// New validates the configuration and builds the resource. Configuration
// mistakes return a ConfigError immediately; nothing is deferred to first use
// except the optional capabilities, which fail with a ConfigError from the
// operations that need them.
func New[T any](cfg Config[T]) (*Resource[T], error) {
	entity := string(cfg.Entity)
	switch {
	case cfg.Entity == "":
		return nil, &ConfigError{Entity: entity, Field: "Entity", Message: "is required"}
	case cfg.Adapter == nil:
		return nil, &ConfigError{Entity: entity, Field: "Adapter", Message: "is required"}
	case cfg.Handlers.ID == nil:
		return nil, &ConfigError{Entity: entity, Field: "Handlers.ID", Message: "is required"}
	case cfg.Handlers.WithID == nil:
		return nil, &ConfigError{Entity: entity, Field: "Handlers.WithID", Message: "is required"}
	case cfg.Store == nil:
		return nil, &ConfigError{Entity: entity, Field: "Store", Message: "is required"}
	case cfg.Invalidator == nil:
		return nil, &ConfigError{Entity: entity, Field: "Invalidator", Message: "is required"}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "crud"), slog.String("entity", entity))

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}

	staleTime := cfg.StaleTime
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	gcTime := cfg.GCTime
	if gcTime <= 0 {
		gcTime = DefaultGCTime
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = entitygraph.StrategyTargeted
	}

	return &Resource[T]{
		entity:      cfg.Entity,
		keys:        querykey.New(cfg.Entity),
		adapter:     cfg.Adapter,
		caps:        resolveCapabilities(cfg.Adapter),
		handlers:    cfg.Handlers,
		store:       cfg.Store,
		invalidator: cfg.Invalidator,
		notifier:    notifier,
		staleTime:   staleTime,
		gcTime:      gcTime,
		optimistic:  !cfg.DisableOptimistic,
		strategy:    strategy,
		messages:    cfg.Messages.withDefaults(entity),
		logger:      logger,
	}, nil
}

// Keys exposes the query-key builders for this resource's namespace.
func (r *Resource[T]) Keys() querykey.Keys {
	return r.keys
}

// Entity returns the namespace this resource manages.
func (r *Resource[T]) Entity() querykey.Namespace {
	return r.entity
}

// List returns the entity list for the given params, read through the cache.
func (r *Resource[T]) List(ctx context.Context, params any) ([]T, error) {
	raw, err := r.store.Fetch(ctx, r.keys.List(params), r.staleTime, func(ctx context.Context) (any, error) {
		return r.adapter.List(ctx, params)
	})
	if err != nil {
		return nil, err
	}
	return castList[T](raw), nil
}

// GetByID returns one entity, read through the cache. Non-positive ids
// disable the query: no network call is made and ErrQueryDisabled is
// returned.
func (r *Resource[T]) GetByID(ctx context.Context, id int64) (T, error) {
	var zero T
	if id <= 0 {
		return zero, fmt.Errorf("%s id %d: %w", r.entity, id, ErrQueryDisabled)
	}
	raw, err := r.store.Fetch(ctx, r.keys.Detail(id), r.staleTime, func(ctx context.Context) (any, error) {
		return r.adapter.GetByID(ctx, id)
	})
	if err != nil {
		return zero, err
	}
	if entity, ok := raw.(T); ok {
		return entity, nil
	}
	return zero, fmt.Errorf("%s detail %d: unexpected cached type %T", r.entity, id, raw)
}

// Search runs a server-side search, read through the cache. Requires the
// search capability.
func (r *Resource[T]) Search(ctx context.Context, query string, params any) ([]T, error) {
	if r.caps.search == nil {
		return nil, &ConfigError{Entity: string(r.entity), Message: "search not supported"}
	}
	raw, err := r.store.Fetch(ctx, r.keys.Search(query, params), r.staleTime, func(ctx context.Context) (any, error) {
		return r.caps.search.Search(ctx, query, params)
	})
	if err != nil {
		return nil, err
	}
	return castList[T](raw), nil
}

// Count returns the server-side count for the given params, read through the
// cache. Requires the count capability.
func (r *Resource[T]) Count(ctx context.Context, params any) (int, error) {
	if r.caps.count == nil {
		return 0, &ConfigError{Entity: string(r.entity), Message: "count not supported"}
	}
	key := append(r.keys.All(), "count")
	if params != nil {
		key = append(key, params)
	}
	raw, err := r.store.Fetch(ctx, key, r.staleTime, func(ctx context.Context) (any, error) {
		return r.caps.count.Count(ctx, params)
	})
	if err != nil {
		return 0, err
	}
	if n, ok := raw.(int); ok {
		return n, nil
	}
	return 0, fmt.Errorf("%s count: unexpected cached type %T", r.entity, raw)
}

// castList tolerates both []T and bare T cache shapes; anything else yields
// an empty list, which the caller treats as a miss.
func castList[T any](raw any) []T {
	switch v := raw.(type) {
	case []T:
		return v
	case T:
		return []T{v}
	case nil:
		return nil
	default:
		return nil
	}
}

// notify helpers shield the pipeline from misbehaving notifier
// implementations; the channel is fire-and-forget by contract.

func (r *Resource[T]) notifySuccess(message string) {
	defer func() { _ = recover() }()
	r.notifier.Success(message)
}

func (r *Resource[T]) notifyError(message string) {
	defer func() { _ = recover() }()
	r.notifier.Error(message)
}

// settle runs the settle-time invalidation that both success and failure
// paths owe, guaranteeing eventual consistency even when optimistic patching
// missed an edge case.
func (r *Resource[T]) settle(ctx context.Context, id ID) {
	opts := invalidation.Options{Strategy: r.strategy}
	if !id.IsZero() && !id.IsPending() {
		opts.ID = id.Segment()
	}
	if err := r.invalidator.InvalidateEntity(ctx, r.entity, opts); err != nil {
		r.logger.Warn("settle-time invalidation failed", slog.String("error", err.Error()))
	}
}
