// Package di wires the cache coordination components together. It manages
// singleton instances of the store, the relationship graph, the invalidator,
// and the request deduper, and provides factory functions for building typed
// resources on top of them.
package di

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-entity-cache/crud"
	"github.com/goliatone/go-entity-cache/entitygraph"
	"github.com/goliatone/go-entity-cache/internal/cachestore"
	"github.com/goliatone/go-entity-cache/invalidation"
	"github.com/goliatone/go-entity-cache/querykey"
	"github.com/goliatone/go-entity-cache/realtime"
)

// Config exposes the store tuning knobs without leaking the internal package.
type Config struct {
	// Capacity is the maximum number of entries the store can hold.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	NumShards int

	// TTL is how long an entry may live before the store garbage-collects it.
	TTL time.Duration

	// EvictionPercentage is the share of entries evicted when capacity is
	// reached, between 1 and 100.
	EvictionPercentage int

	// EarlyRefresh configures stampede-protective refreshes. Nil disables it.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage remembers keys that resolved to nothing.
	MissingRecordStorage bool

	// EvictionInterval sets how often expired entries are collected.
	EvictionInterval time.Duration

	// Graph overrides the entity relationship graph. Nil uses DefaultGraph.
	Graph *entitygraph.Graph

	Logger *slog.Logger
}

// EarlyRefreshConfig mirrors the store's early refresh windows.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns settings suitable for a dashboard-sized working set.
func DefaultConfig() Config {
	internal := cachestore.DefaultConfig()
	return convertFromInternal(internal)
}

func convertToInternal(c Config) cachestore.Config {
	internal := cachestore.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
	}
	if c.EarlyRefresh != nil {
		internal.EarlyRefresh = &cachestore.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}
	return internal
}

func convertFromInternal(c cachestore.Config) Config {
	public := Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
	}
	if c.EarlyRefresh != nil {
		public.EarlyRefresh = &EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}
	return public
}

// Container provides dependency injection for the cache coordination
// components. It manages singleton instances of the store, graph,
// invalidator, and deduper, and provides factory methods for building
// resources that share them.
type Container struct {
	store       invalidation.Store
	graph       *entitygraph.Graph
	invalidator *invalidation.Invalidator
	deduper     *realtime.Deduper
	logger      *slog.Logger
	config      Config
}

// NewContainer creates a container from the provided configuration. The
// relationship graph is checked for symmetric children edges so a
// misconfigured graph fails at startup rather than at invalidation time.
func NewContainer(config Config) (*Container, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	graph := config.Graph
	if graph == nil {
		graph = entitygraph.DefaultGraph()
	}
	if err := graph.CheckSymmetry(); err != nil {
		return nil, err
	}

	internal := convertToInternal(config)
	if err := internal.Validate(); err != nil {
		return nil, err
	}
	store, err := cachestore.New(internal)
	if err != nil {
		return nil, err
	}

	return &Container{
		store:       store,
		graph:       graph,
		invalidator: invalidation.New(graph, store, logger),
		deduper:     realtime.NewDeduper(),
		logger:      logger,
		config:      config,
	}, nil
}

// NewContainerWithDefaults creates a container using default configuration.
// This is a convenience constructor for typical use cases where custom
// configuration is not required.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(DefaultConfig())
}

// Store returns the singleton cache store instance.
func (c *Container) Store() invalidation.Store {
	return c.store
}

// Graph returns the entity relationship graph the container was built with.
func (c *Container) Graph() *entitygraph.Graph {
	return c.graph
}

// Invalidator returns the singleton invalidator instance.
func (c *Container) Invalidator() *invalidation.Invalidator {
	return c.invalidator
}

// Deduper returns the singleton request deduper instance.
func (c *Container) Deduper() *realtime.Deduper {
	return c.deduper
}

// Logger returns the container's base logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() Config {
	return c.config
}

// ResourceOptions carries the per-entity pieces of a resource; the shared
// pieces come from the container.
type ResourceOptions[T any] struct {
	Entity            querykey.Namespace
	Adapter           crud.Adapter[T]
	Handlers          crud.Handlers[T]
	Notifier          crud.Notifier
	StaleTime         time.Duration
	GCTime            time.Duration
	DisableOptimistic bool
	Strategy          entitygraph.Strategy
	Messages          crud.Messages
}

// NewResource builds a typed resource manager wired to the container's store
// and invalidator.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function. Example: NewResource[Ticket](container, opts)
func NewResource[T any](container *Container, opts ResourceOptions[T]) (*crud.Resource[T], error) {
	return crud.New(crud.Config[T]{
		Entity:            opts.Entity,
		Adapter:           opts.Adapter,
		Handlers:          opts.Handlers,
		Store:             container.store,
		Invalidator:       container.invalidator,
		Notifier:          opts.Notifier,
		StaleTime:         opts.StaleTime,
		GCTime:            opts.GCTime,
		DisableOptimistic: opts.DisableOptimistic,
		Strategy:          opts.Strategy,
		Messages:          opts.Messages,
		Logger:            container.logger,
	})
}

// NewResourceFor is NewResource with the namespace derived from the entity
// name, normalized to the registry's snake_case convention.
func NewResourceFor[T any](container *Container, name string, opts ResourceOptions[T]) (*crud.Resource[T], error) {
	opts.Entity = querykey.Normalize(name)
	return NewResource(container, opts)
}

// NewReconciler builds a push reconciler for one entity family wired to the
// container's store and invalidator.
func NewReconciler[T any](container *Container, entity querykey.Namespace, handlers crud.Handlers[T]) *realtime.Reconciler[T] {
	return realtime.NewReconciler(entity, container.store, container.invalidator, handlers, container.logger)
}
