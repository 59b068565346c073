package entitygraph

import "github.com/goliatone/go-entity-cache/querykey"

// Strategy controls the blast radius of an invalidation plan.
type Strategy string

const (
	// StrategyMinimal invalidates only the changed namespace.
	StrategyMinimal Strategy = "minimal"
	// StrategyTargeted adds the direct dependents (one hop).
	StrategyTargeted Strategy = "targeted"
	// StrategyCascade follows dependents transitively, breadth first.
	StrategyCascade Strategy = "cascade"
	// StrategyAggressive invalidates every registered namespace.
	StrategyAggressive Strategy = "aggressive"
)

// ParseStrategy maps a string onto a Strategy, defaulting to targeted for
// unknown input so a typo widens rather than narrows the plan.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyMinimal, StrategyTargeted, StrategyCascade, StrategyAggressive:
		return Strategy(s)
	default:
		return StrategyTargeted
	}
}

// Targets computes the ordered, de-duplicated set of namespaces whose cached
// data must be treated as stale after a change in ns.
//
// Ordering is deterministic: the source namespace first, then dependents in
// declaration order, breadth first for cascade. Aggressive returns the full
// registry in registration order (source still listed first if registered).
// An unregistered source namespace yields just itself for the non-aggressive
// strategies; the caller decides whether that is worth logging.
func Targets(g *Graph, ns querykey.Namespace, strategy Strategy) []querykey.Namespace {
	switch strategy {
	case StrategyMinimal:
		return []querykey.Namespace{ns}

	case StrategyAggressive:
		all := g.Namespaces()
		out := make([]querykey.Namespace, 0, len(all)+1)
		seen := make(map[querykey.Namespace]bool, len(all)+1)
		if g.Has(ns) {
			out = append(out, ns)
			seen[ns] = true
		}
		for _, candidate := range all {
			if !seen[candidate] {
				out = append(out, candidate)
				seen[candidate] = true
			}
		}
		return out

	case StrategyCascade:
		out := []querykey.Namespace{ns}
		seen := map[querykey.Namespace]bool{ns: true}
		queue := []querykey.Namespace{ns}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			for _, dependent := range g.Dependents(current) {
				if seen[dependent] {
					continue
				}
				seen[dependent] = true
				out = append(out, dependent)
				queue = append(queue, dependent)
			}
		}
		return out

	default: // StrategyTargeted
		out := []querykey.Namespace{ns}
		seen := map[querykey.Namespace]bool{ns: true}
		for _, dependent := range g.Dependents(ns) {
			if !seen[dependent] {
				seen[dependent] = true
				out = append(out, dependent)
			}
		}
		return out
	}
}
