package invalidation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/goliatone/go-entity-cache/entitygraph"
	"github.com/goliatone/go-entity-cache/querykey"
)

// Options adjusts the scope of a single InvalidateEntity call.
type Options struct {
	// ID, when set, additionally invalidates the source namespace's detail
	// entry for that id.
	ID any

	// Strategy defaults to targeted when empty.
	Strategy entitygraph.Strategy
}

// Entry names one changed entity for InvalidateMultiple.
type Entry struct {
	Namespace querykey.Namespace
	ID        any
	Strategy  entitygraph.Strategy
}

// Invalidator applies invalidation plans against the cache store. It is a
// best-effort component: unknown namespaces are skipped with a log line and
// store failures are collected, never panicked on, so a stale cache entry can
// never take the caller down with it.
type Invalidator struct {
	graph  *entitygraph.Graph
	store  Store
	logger *slog.Logger
}

// New builds an Invalidator. A nil logger falls back to slog.Default.
func New(graph *entitygraph.Graph, store Store, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{
		graph:  graph,
		store:  store,
		logger: logger.With(slog.String("component", "invalidator")),
	}
}

// InvalidateEntity computes the invalidation plan for a changed namespace and
// evicts the list caches of every target, plus the source's detail entry when
// an id is provided. The returned error joins store failures; callers on
// fire-and-forget paths may ignore it.
func (inv *Invalidator) InvalidateEntity(ctx context.Context, ns querykey.Namespace, opts Options) error {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = entitygraph.StrategyTargeted
	}
	return inv.apply(ctx, entitygraph.Targets(inv.graph, ns, strategy), ns, opts.ID)
}

// InvalidateMultiple applies the union of the per-entry plans. Overlapping
// targets are de-duplicated (first-seen order) so each namespace's lists are
// evicted once, though the detail entries of every entry with an id are still
// handled individually.
func (inv *Invalidator) InvalidateMultiple(ctx context.Context, entries []Entry) error {
	var (
		errs  []error
		order []querykey.Namespace
		seen  = make(map[querykey.Namespace]bool)
	)

	for _, entry := range entries {
		strategy := entry.Strategy
		if strategy == "" {
			strategy = entitygraph.StrategyTargeted
		}
		for _, target := range entitygraph.Targets(inv.graph, entry.Namespace, strategy) {
			if !seen[target] {
				seen[target] = true
				order = append(order, target)
			}
		}
		if entry.ID != nil && inv.graph.Has(entry.Namespace) {
			key := querykey.New(entry.Namespace).Detail(entry.ID)
			if err := inv.store.InvalidateQueries(ctx, key); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for _, target := range order {
		if err := inv.invalidateLists(ctx, target); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InvalidateDependents evicts the list caches of the namespaces that depend
// on ns, leaving ns's own entries alone. Used by push reconciliation, which
// has already patched the source namespace with authoritative data.
func (inv *Invalidator) InvalidateDependents(ctx context.Context, ns querykey.Namespace) error {
	var errs []error
	for _, target := range entitygraph.Targets(inv.graph, ns, entitygraph.StrategyTargeted) {
		if target == ns {
			continue
		}
		if err := inv.invalidateLists(ctx, target); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InvalidateProject evicts the project's detail entry and the project-scoped
// keys of every namespace flagged as project scoped.
func (inv *Invalidator) InvalidateProject(ctx context.Context, projectID any) error {
	var errs []error

	projectKeys := querykey.New(entitygraph.Projects)
	if err := inv.store.InvalidateQueries(ctx, projectKeys.Detail(projectID)); err != nil {
		errs = append(errs, err)
	}

	for _, ns := range inv.graph.ProjectScoped() {
		keys := querykey.New(ns)
		if err := inv.store.InvalidateQueries(ctx, keys.Project(projectID)); err != nil {
			errs = append(errs, err)
		}
		if err := inv.store.InvalidateQueries(ctx, keys.ProjectList(projectID, nil)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (inv *Invalidator) apply(ctx context.Context, targets []querykey.Namespace, source querykey.Namespace, id any) error {
	var errs []error
	for _, target := range targets {
		if err := inv.invalidateLists(ctx, target); err != nil {
			errs = append(errs, err)
			continue
		}
		if id != nil && target == source && inv.graph.Has(target) {
			key := querykey.New(target).Detail(id)
			if err := inv.store.InvalidateQueries(ctx, key); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (inv *Invalidator) invalidateLists(ctx context.Context, ns querykey.Namespace) error {
	if !inv.graph.Has(ns) {
		inv.logger.Warn("skipping unregistered namespace", slog.String("namespace", string(ns)))
		return nil
	}
	key := querykey.New(ns).Lists()
	if err := querykey.Validate(inv.graph, key); err != nil {
		inv.logger.Warn("skipping malformed key", slog.String("namespace", string(ns)), slog.String("error", err.Error()))
		return nil
	}
	if err := inv.store.InvalidateQueries(ctx, key); err != nil {
		inv.logger.Warn("list invalidation failed", slog.String("namespace", string(ns)), slog.String("error", err.Error()))
		return err
	}
	return nil
}
