// Package testsupport provides in-memory doubles and fixture entities for
// exercising the cache coordination pipeline in tests: a map-backed store that
// records the calls made against it, a recording notifier, and a scriptable
// adapter.
package testsupport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-entity-cache/crud"
	"github.com/goliatone/go-entity-cache/invalidation"
	"github.com/goliatone/go-entity-cache/querykey"
)

// Ticket is a fixture entity shaped like the dashboard's ticket rows.
type Ticket struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Pending   string `json:"-"`
}

// TicketHandlers returns identity handlers for the Ticket fixture.
func TicketHandlers() crud.Handlers[Ticket] {
	return crud.Handlers[Ticket]{
		ID: func(t Ticket) crud.ID {
			if t.Pending != "" {
				return crud.PendingToken(t.Pending)
			}
			return crud.RealID(t.ID)
		},
		WithID: func(t Ticket, id crud.ID) Ticket {
			if id.IsPending() {
				t.Pending = id.String()
				t.ID = 0
				return t
			}
			t.Pending = ""
			t.ID = id.Int64()
			return t
		},
	}
}

// Project is a fixture entity shaped like the dashboard's project rows.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProjectHandlers returns identity handlers for the Project fixture.
func ProjectHandlers() crud.Handlers[Project] {
	return crud.Handlers[Project]{
		ID: func(p Project) crud.ID { return crud.RealID(p.ID) },
		WithID: func(p Project, id crud.ID) Project {
			p.ID = id.Int64()
			return p
		},
	}
}

// FakeStore is a map-backed Store that records every call. Fetch always runs
// the fetch function and caches the result; freshness is not simulated.
type FakeStore struct {
	mu      sync.Mutex
	entries map[string]any

	// RecordOnly makes InvalidateQueries record the call without evicting,
	// so tests can observe optimistic writes that settle-time invalidation
	// would otherwise wipe out.
	RecordOnly bool

	Invalidated [][]any
	Removed     [][]any
	Cancelled   [][]any
	Restored    int
	Fetches     []string
}

var _ invalidation.Store = (*FakeStore)(nil)

// NewFakeStore returns an empty fake store.
func NewFakeStore() *FakeStore {
	return &FakeStore{entries: make(map[string]any)}
}

// Seed places a value directly under the given key.
func (s *FakeStore) Seed(key querykey.Key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[querykey.Encode(key)] = value
}

// Get reads a value directly, bypassing the Store interface.
func (s *FakeStore) Get(key querykey.Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.entries[querykey.Encode(key)]
	return value, ok
}

// Len reports the number of cached entries.
func (s *FakeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *FakeStore) InvalidateQueries(_ context.Context, key querykey.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Invalidated = append(s.Invalidated, append([]any(nil), key...))
	if !s.RecordOnly {
		s.dropPrefixLocked(querykey.Encode(key))
	}
	return nil
}

func (s *FakeStore) RemoveQueries(_ context.Context, key querykey.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Removed = append(s.Removed, append([]any(nil), key...))
	s.dropPrefixLocked(querykey.Encode(key))
	return nil
}

func (s *FakeStore) CancelQueries(_ context.Context, key querykey.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Cancelled = append(s.Cancelled, append([]any(nil), key...))
	return nil
}

func (s *FakeStore) SetQueryData(_ context.Context, key querykey.Key, update invalidation.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	encoded := querykey.Encode(key)
	if next, write := update(s.entries[encoded]); write {
		s.entries[encoded] = next
	}
	return nil
}

func (s *FakeStore) GetQueryData(_ context.Context, key querykey.Key) (any, bool) {
	return s.Get(key)
}

func (s *FakeStore) SetQueriesData(_ context.Context, prefix querykey.Key, update invalidation.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	encoded := querykey.Encode(prefix)
	for key, current := range s.entries {
		if !querykey.HasPrefix(key, encoded) {
			continue
		}
		if next, write := update(current); write {
			s.entries[key] = next
		}
	}
	return nil
}

func (s *FakeStore) GetQueriesData(_ context.Context, prefix querykey.Key) []invalidation.KeyedValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	encoded := querykey.Encode(prefix)
	var out []invalidation.KeyedValue
	for key, value := range s.entries {
		if querykey.HasPrefix(key, encoded) {
			out = append(out, invalidation.KeyedValue{Key: key, Value: value})
		}
	}
	return out
}

func (s *FakeStore) Restore(_ context.Context, snapshot []invalidation.KeyedValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Restored++
	for _, entry := range snapshot {
		s.entries[entry.Key] = entry.Value
	}
	return nil
}

func (s *FakeStore) Fetch(ctx context.Context, key querykey.Key, _ time.Duration, fetch invalidation.FetchFunc) (any, error) {
	encoded := querykey.Encode(key)

	s.mu.Lock()
	s.Fetches = append(s.Fetches, encoded)
	if cached, ok := s.entries[encoded]; ok {
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries[encoded] = value
	s.mu.Unlock()
	return value, nil
}

func (s *FakeStore) Prefetch(ctx context.Context, key querykey.Key, fetch invalidation.FetchFunc) error {
	_, err := s.Fetch(ctx, key, 0, fetch)
	return err
}

func (s *FakeStore) dropPrefixLocked(prefix string) {
	for key := range s.entries {
		if querykey.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
}

// RecordingNotifier captures mutation notifications for assertions.
type RecordingNotifier struct {
	mu        sync.Mutex
	Successes []string
	Errors    []string
}

func (n *RecordingNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Successes = append(n.Successes, message)
}

func (n *RecordingNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Errors = append(n.Errors, message)
}

// ScriptedAdapter serves canned responses for the Ticket fixture and records
// the calls it receives. Setting FailWith makes every mutation fail.
type ScriptedAdapter struct {
	mu       sync.Mutex
	nextID   int64
	Rows     []Ticket
	FailWith error

	Created []Ticket
	Updated []int64
	Deleted []int64
}

var _ crud.Adapter[Ticket] = (*ScriptedAdapter)(nil)

// NewScriptedAdapter seeds the adapter with the given rows.
func NewScriptedAdapter(rows ...Ticket) *ScriptedAdapter {
	var max int64
	for _, row := range rows {
		if row.ID > max {
			max = row.ID
		}
	}
	return &ScriptedAdapter{nextID: max, Rows: rows}
}

func (a *ScriptedAdapter) List(context.Context, any) ([]Ticket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailWith != nil {
		return nil, a.FailWith
	}
	out := make([]Ticket, len(a.Rows))
	copy(out, a.Rows)
	return out, nil
}

func (a *ScriptedAdapter) GetByID(_ context.Context, id int64) (Ticket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailWith != nil {
		return Ticket{}, a.FailWith
	}
	for _, row := range a.Rows {
		if row.ID == id {
			return row, nil
		}
	}
	return Ticket{}, fmt.Errorf("ticket %d not found", id)
}

func (a *ScriptedAdapter) Create(_ context.Context, data Ticket) (Ticket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailWith != nil {
		return Ticket{}, a.FailWith
	}
	a.nextID++
	data.ID = a.nextID
	data.Pending = ""
	a.Rows = append(a.Rows, data)
	a.Created = append(a.Created, data)
	return data, nil
}

func (a *ScriptedAdapter) Update(_ context.Context, id int64, data Ticket) (Ticket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailWith != nil {
		return Ticket{}, a.FailWith
	}
	a.Updated = append(a.Updated, id)
	data.ID = id
	for i, row := range a.Rows {
		if row.ID == id {
			a.Rows[i] = data
			return data, nil
		}
	}
	return Ticket{}, fmt.Errorf("ticket %d not found", id)
}

func (a *ScriptedAdapter) Delete(_ context.Context, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailWith != nil {
		return a.FailWith
	}
	a.Deleted = append(a.Deleted, id)
	next := a.Rows[:0]
	for _, row := range a.Rows {
		if row.ID != id {
			next = append(next, row)
		}
	}
	a.Rows = next
	return nil
}
