package querykey

// Version is the stable version tag embedded as the second segment of every
// key. Bump it to orphan all previously written cache entries at once.
const Version = "v1"

// MaxDepth is the maximum number of segments a key may carry.
const MaxDepth = 10

// Namespace identifies one entity family (e.g. "projects", "tickets").
// Namespaces are globally unique and immutable once registered.
type Namespace string

// Key is an ordered sequence of segments uniquely addressing one cached value.
// Segments must be primitives, plain structs/maps, or slices thereof.
type Key []any

// Keys builds the full set of key shapes for a single namespace. All builders
// are pure: calling one twice with equal arguments yields structurally equal
// keys.
type Keys struct {
	ns Namespace
}

// New returns the key builders for the given namespace.
func New(ns Namespace) Keys {
	return Keys{ns: ns}
}

// Namespace returns the namespace these builders are bound to.
func (k Keys) Namespace() Namespace {
	return k.ns
}

// All addresses everything cached under the namespace.
func (k Keys) All() Key {
	return Key{string(k.ns), Version}
}

// Lists addresses every list-shaped entry for the namespace.
func (k Keys) Lists() Key {
	return append(k.All(), "list")
}

// List addresses one list identified by its query params. A nil params value
// addresses the default (unfiltered) list.
func (k Keys) List(params any) Key {
	key := k.Lists()
	if params != nil {
		key = append(key, params)
	}
	return key
}

// Details addresses every detail-shaped entry for the namespace.
func (k Keys) Details() Key {
	return append(k.All(), "detail")
}

// Detail addresses the single entity with the given id.
func (k Keys) Detail(id any) Key {
	return append(k.Details(), id)
}

// Infinite addresses a cursor-paginated list for the given params.
func (k Keys) Infinite(params any) Key {
	key := append(k.All(), "infinite")
	if params != nil {
		key = append(key, params)
	}
	return key
}

// Search addresses a search result set for the given query string.
func (k Keys) Search(query string, params any) Key {
	key := append(k.All(), "search", query)
	if params != nil {
		key = append(key, params)
	}
	return key
}

// Project addresses all entries scoped to one project.
func (k Keys) Project(id any) Key {
	return append(k.All(), "project", id)
}

// ProjectList addresses a list of this namespace's entities within a project.
func (k Keys) ProjectList(id any, params any) Key {
	key := append(k.Project(id), "list")
	if params != nil {
		key = append(key, params)
	}
	return key
}

// Parent addresses the relation from entity id to a child namespace.
func (k Keys) Parent(id any, child Namespace) Key {
	return append(k.All(), "parent", id, string(child))
}

// Children addresses the child collection of entity id in another namespace.
func (k Keys) Children(id any, child Namespace) Key {
	return append(k.All(), "children", id, string(child))
}

// Mutation addresses transient mutation state (e.g. an in-flight update).
func (k Keys) Mutation(kind string, id any) Key {
	return append(k.All(), "mutation", kind, id)
}

// Optimistic addresses an optimistic placeholder entry for a pending id.
func (k Keys) Optimistic(id any) Key {
	return append(k.All(), "optimistic", id)
}

// Match reports whether the candidate key belongs to this namespace's
// versioned key space: its first two segments must equal the namespace and
// version exactly.
func (k Keys) Match(candidate Key) bool {
	if len(candidate) < 2 {
		return false
	}
	ns, ok := candidate[0].(string)
	if !ok || ns != string(k.ns) {
		return false
	}
	v, ok := candidate[1].(string)
	return ok && v == Version
}
