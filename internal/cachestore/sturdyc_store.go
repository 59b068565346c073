// Package cachestore implements the invalidation.Store port on top of a
// sturdyc in-memory cache: read-through fetches with stampede protection,
// segment-prefix invalidation, and a cancellation registry for in-flight
// fetches.
package cachestore

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-entity-cache/invalidation"
	"github.com/goliatone/go-entity-cache/querykey"
)

// record wraps every stored value with its write time so per-call freshness
// windows can be enforced on top of sturdyc's single TTL.
type record struct {
	Value    any
	StoredAt time.Time
}

// SturdycStore is the sturdyc-backed implementation of invalidation.Store.
type SturdycStore struct {
	client   *sturdyc.Client[any]
	inflight *xsync.MapOf[string, context.CancelFunc]
}

var _ invalidation.Store = (*SturdycStore)(nil)

// New validates the configuration and builds the store.
func New(cfg Config) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var options []sturdyc.Option
	if cfg.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			cfg.EarlyRefresh.MinAsyncRefreshTime,
			cfg.EarlyRefresh.MaxAsyncRefreshTime,
			cfg.EarlyRefresh.SyncRefreshTime,
			cfg.EarlyRefresh.RetryBaseDelay,
		))
	}
	if cfg.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}
	if cfg.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(cfg.EvictionInterval))
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		options...,
	)

	return &SturdycStore{
		client:   client,
		inflight: xsync.NewMapOf[string, context.CancelFunc](),
	}, nil
}

// InvalidateQueries evicts every entry under the key prefix.
func (s *SturdycStore) InvalidateQueries(ctx context.Context, key querykey.Key) error {
	s.deleteByPrefix(querykey.Encode(key))
	return nil
}

// RemoveQueries hard-removes every entry under the key prefix. For an
// in-memory store removal and eviction coincide, but removal also aborts
// in-flight fetches so nothing re-materializes the entry.
func (s *SturdycStore) RemoveQueries(ctx context.Context, key querykey.Key) error {
	if err := s.CancelQueries(ctx, key); err != nil {
		return err
	}
	s.deleteByPrefix(querykey.Encode(key))
	return nil
}

// CancelQueries aborts in-flight fetches whose keys sit under the prefix.
func (s *SturdycStore) CancelQueries(ctx context.Context, key querykey.Key) error {
	prefix := querykey.Encode(key)
	s.inflight.Range(func(encoded string, cancel context.CancelFunc) bool {
		if querykey.HasPrefix(encoded, prefix) {
			cancel()
		}
		return true
	})
	return nil
}

// SetQueryData applies an update to the single entry at key.
func (s *SturdycStore) SetQueryData(ctx context.Context, key querykey.Key, update invalidation.UpdateFunc) error {
	encoded := querykey.Encode(key)
	current, _ := s.get(encoded)
	next, write := update(current)
	if write {
		s.client.Set(encoded, record{Value: next, StoredAt: time.Now()})
	}
	return nil
}

// GetQueryData returns the entry at key, if present.
func (s *SturdycStore) GetQueryData(ctx context.Context, key querykey.Key) (any, bool) {
	return s.get(querykey.Encode(key))
}

// SetQueriesData applies an update to every entry under the prefix.
func (s *SturdycStore) SetQueriesData(ctx context.Context, prefix querykey.Key, update invalidation.UpdateFunc) error {
	encodedPrefix := querykey.Encode(prefix)
	for _, encoded := range s.client.ScanKeys() {
		if !querykey.HasPrefix(encoded, encodedPrefix) {
			continue
		}
		current, ok := s.get(encoded)
		if !ok {
			continue
		}
		if next, write := update(current); write {
			s.client.Set(encoded, record{Value: next, StoredAt: time.Now()})
		}
	}
	return nil
}

// GetQueriesData snapshots every entry under the prefix.
func (s *SturdycStore) GetQueriesData(ctx context.Context, prefix querykey.Key) []invalidation.KeyedValue {
	encodedPrefix := querykey.Encode(prefix)
	var out []invalidation.KeyedValue
	for _, encoded := range s.client.ScanKeys() {
		if !querykey.HasPrefix(encoded, encodedPrefix) {
			continue
		}
		if value, ok := s.get(encoded); ok {
			out = append(out, invalidation.KeyedValue{Key: encoded, Value: value})
		}
	}
	return out
}

// Restore writes snapshot entries back verbatim.
func (s *SturdycStore) Restore(ctx context.Context, entries []invalidation.KeyedValue) error {
	now := time.Now()
	for _, entry := range entries {
		s.client.Set(entry.Key, record{Value: entry.Value, StoredAt: now})
	}
	return nil
}

// Fetch reads through the cache. A cached entry younger than freshFor wins;
// otherwise the entry is evicted and refetched. Concurrent fetches for the
// same key are collapsed by sturdyc, and the fetch context is registered so
// CancelQueries can abort it.
func (s *SturdycStore) Fetch(ctx context.Context, key querykey.Key, freshFor time.Duration, fetch invalidation.FetchFunc) (any, error) {
	encoded := querykey.Encode(key)

	if raw, ok := s.client.Get(encoded); ok {
		if rec, ok := raw.(record); ok {
			if freshFor <= 0 || time.Since(rec.StoredAt) < freshFor {
				return rec.Value, nil
			}
			s.client.Delete(encoded)
		}
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	s.inflight.Store(encoded, cancel)
	defer func() {
		s.inflight.Delete(encoded)
		cancel()
	}()

	raw, err := s.client.GetOrFetch(fetchCtx, encoded, func(ctx context.Context) (any, error) {
		value, err := fetch(ctx)
		if err != nil {
			// Return a zero record rather than nil: sturdyc's wrap helper
			// type-asserts the result even on error, and a nil interface
			// fails the assertion, replacing err with ErrInvalidType.
			return record{}, err
		}
		return record{Value: value, StoredAt: time.Now()}, nil
	})
	if err != nil {
		return nil, err
	}
	if rec, ok := raw.(record); ok {
		return rec.Value, nil
	}
	return raw, nil
}

// Prefetch warms the entry at key when it is absent.
func (s *SturdycStore) Prefetch(ctx context.Context, key querykey.Key, fetch invalidation.FetchFunc) error {
	encoded := querykey.Encode(key)
	if _, ok := s.get(encoded); ok {
		return nil
	}
	value, err := fetch(ctx)
	if err != nil {
		return err
	}
	s.client.Set(encoded, record{Value: value, StoredAt: time.Now()})
	return nil
}

// Size reports the number of stored entries.
func (s *SturdycStore) Size() int {
	return s.client.Size()
}

func (s *SturdycStore) get(encoded string) (any, bool) {
	raw, ok := s.client.Get(encoded)
	if !ok {
		return nil, false
	}
	if rec, ok := raw.(record); ok {
		return rec.Value, true
	}
	return raw, true
}

func (s *SturdycStore) deleteByPrefix(prefix string) {
	for _, encoded := range s.client.ScanKeys() {
		if querykey.HasPrefix(encoded, prefix) {
			s.client.Delete(encoded)
		}
	}
}
