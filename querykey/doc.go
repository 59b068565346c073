// Package querykey defines the canonical, versioned key space used to address
// cached entity data.
//
// Every cached value is addressed by a Key: an ordered sequence of primitive or
// plain-value segments of the shape [namespace, version, operation, ...params].
// Keys are values; they are never mutated after construction and are compared
// structurally. Builders for one namespace are obtained via New:
//
//	keys := querykey.New("tickets")
//	keys.List(params)          // ["tickets", "v1", "list", params]
//	keys.Detail(42)            // ["tickets", "v1", "detail", 42]
//
// Encode produces a deterministic string form of a Key for backends that
// address entries by string. Encoded builder keys are strict prefixes of the
// encoded keys they logically cover, which is what makes prefix invalidation
// work:
//
//	Encode(keys.Lists()) == "tickets::v1::list"
//	Encode(keys.List(p)) == "tickets::v1::list::..."
//
// Validate enforces the structural invariants (maximum depth, no callables,
// registered namespace), Migrate upgrades keys that predate the versioned
// scheme, and Memo provides reference-stable memoized construction for callers
// that are sensitive to key identity.
package querykey
