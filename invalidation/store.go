// Package invalidation translates changed-entity events into the set of cache
// evictions required for consistency, applying invalidation plans computed by
// the entity graph against an injected cache store.
package invalidation

import (
	"context"
	"time"

	"github.com/goliatone/go-entity-cache/querykey"
)

// FetchFunc loads a value from the source of truth.
type FetchFunc func(ctx context.Context) (any, error)

// UpdateFunc transforms a cached value. current is nil when the entry is
// absent; returning (nil, false) leaves the entry untouched.
type UpdateFunc func(current any) (next any, write bool)

// KeyedValue pairs an encoded key with its cached value. Snapshots taken with
// GetQueriesData are restored verbatim through Restore.
type KeyedValue struct {
	Key   string
	Value any
}

// Store is the cache backend port. Keys are querykey values; the plural
// operations treat their key as a segment-granular prefix covering every entry
// beneath it.
//
// Implementations must be safe for concurrent use. All writes to cached entity
// data go through this interface (or the crud snapshot/rollback discipline
// built on it); nothing else may mutate cached entries.
type Store interface {
	// InvalidateQueries evicts every entry under the key so the next read
	// refetches from the source of truth.
	InvalidateQueries(ctx context.Context, key querykey.Key) error

	// RemoveQueries hard-removes every entry under the key.
	RemoveQueries(ctx context.Context, key querykey.Key) error

	// CancelQueries aborts in-flight fetches under the key, preventing a
	// stale response from clobbering a newer optimistic write.
	CancelQueries(ctx context.Context, key querykey.Key) error

	// SetQueryData applies an update to the single entry at key.
	SetQueryData(ctx context.Context, key querykey.Key, update UpdateFunc) error

	// GetQueryData returns the entry at key, if present.
	GetQueryData(ctx context.Context, key querykey.Key) (any, bool)

	// SetQueriesData applies an update to every entry under the prefix.
	SetQueriesData(ctx context.Context, prefix querykey.Key, update UpdateFunc) error

	// GetQueriesData snapshots every entry under the prefix.
	GetQueriesData(ctx context.Context, prefix querykey.Key) []KeyedValue

	// Restore writes snapshot entries back verbatim, replacing whatever is
	// cached under those keys now.
	Restore(ctx context.Context, entries []KeyedValue) error

	// Fetch reads through the cache: a cached entry younger than freshFor is
	// returned as-is, otherwise fetch runs and its result is cached.
	// freshFor <= 0 means any cached entry is fresh enough.
	Fetch(ctx context.Context, key querykey.Key, freshFor time.Duration, fetch FetchFunc) (any, error)

	// Prefetch warms the entry at key. Best effort: failures are reported but
	// must not be treated as correctness problems by callers.
	Prefetch(ctx context.Context, key querykey.Key, fetch FetchFunc) error
}
