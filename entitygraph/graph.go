// Package entitygraph holds the static relationship map between entity
// namespaces and the invalidation planner that walks it.
//
// The graph is an explicitly constructed value threaded into the components
// that need it, not a package-level singleton. Build it once at startup,
// register every namespace, and treat it as read-only afterwards.
package entitygraph

import (
	"fmt"

	"github.com/goliatone/go-entity-cache/querykey"
)

// Relationship describes how one namespace relates to the rest of the graph.
//
// Dependents are namespaces whose cached data becomes stale when this one
// changes. Dependencies point the other way. Children are owned sub-resources;
// every children edge A->B must be mirrored by a dependencies edge B->A, which
// CheckSymmetry verifies.
type Relationship struct {
	Dependents    []querykey.Namespace
	Dependencies  []querykey.Namespace
	Children      []querykey.Namespace
	ProjectScoped bool
}

// Graph is the registry of namespaces and their relationships. Registration
// order is preserved and determines traversal tie-breaks, so plans computed
// from the same graph are deterministic.
type Graph struct {
	order   []querykey.Namespace
	entries map[querykey.Namespace]Relationship
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{entries: make(map[querykey.Namespace]Relationship)}
}

// Register adds a namespace with its relationships. Registering the same
// namespace twice is a configuration mistake and returns an error.
func (g *Graph) Register(ns querykey.Namespace, rel Relationship) error {
	if ns == "" {
		return fmt.Errorf("entitygraph: namespace cannot be empty")
	}
	if _, exists := g.entries[ns]; exists {
		return fmt.Errorf("entitygraph: namespace %q already registered", ns)
	}
	g.order = append(g.order, ns)
	g.entries[ns] = rel
	return nil
}

// MustRegister is Register for static graph construction; it panics on error.
func (g *Graph) MustRegister(ns querykey.Namespace, rel Relationship) {
	if err := g.Register(ns, rel); err != nil {
		panic(err)
	}
}

// Has reports whether the namespace is registered. Satisfies
// querykey.NamespaceSet.
func (g *Graph) Has(ns querykey.Namespace) bool {
	_, ok := g.entries[ns]
	return ok
}

// Entry returns the relationship record for a namespace.
func (g *Graph) Entry(ns querykey.Namespace) (Relationship, bool) {
	rel, ok := g.entries[ns]
	return rel, ok
}

// Dependents returns the direct dependents of a namespace.
func (g *Graph) Dependents(ns querykey.Namespace) []querykey.Namespace {
	return g.entries[ns].Dependents
}

// Namespaces returns every registered namespace in registration order.
func (g *Graph) Namespaces() []querykey.Namespace {
	out := make([]querykey.Namespace, len(g.order))
	copy(out, g.order)
	return out
}

// ProjectScoped returns the namespaces flagged as scoped to a project, in
// registration order.
func (g *Graph) ProjectScoped() []querykey.Namespace {
	var out []querykey.Namespace
	for _, ns := range g.order {
		if g.entries[ns].ProjectScoped {
			out = append(out, ns)
		}
	}
	return out
}

// CheckSymmetry verifies the structural invariants the planner relies on:
// every referenced namespace exists, and every children edge A->B has a
// reciprocal dependencies edge B->A. Intended to be called from a test (or
// once at startup), not on the hot path.
func (g *Graph) CheckSymmetry() error {
	for _, ns := range g.order {
		rel := g.entries[ns]
		for _, group := range [][]querykey.Namespace{rel.Dependents, rel.Dependencies, rel.Children} {
			for _, ref := range group {
				if !g.Has(ref) {
					return fmt.Errorf("entitygraph: %q references unregistered namespace %q", ns, ref)
				}
			}
		}
		for _, child := range rel.Children {
			childRel := g.entries[child]
			if !contains(childRel.Dependencies, ns) {
				return fmt.Errorf("entitygraph: children edge %q->%q has no reciprocal dependency", ns, child)
			}
		}
	}
	return nil
}

func contains(set []querykey.Namespace, ns querykey.Namespace) bool {
	for _, candidate := range set {
		if candidate == ns {
			return true
		}
	}
	return false
}
