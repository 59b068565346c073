package realtime_test

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/goliatone/go-entity-cache/entitygraph"
	"github.com/goliatone/go-entity-cache/invalidation"
	"github.com/goliatone/go-entity-cache/pkg/testsupport"
	"github.com/goliatone/go-entity-cache/querykey"
	"github.com/goliatone/go-entity-cache/realtime"
)

func newReconciler(t *testing.T) (*realtime.Reconciler[testsupport.Ticket], *testsupport.FakeStore) {
	t.Helper()
	store := testsupport.NewFakeStore()
	inv := invalidation.New(entitygraph.DefaultGraph(), store, nil)
	rc := realtime.NewReconciler(entitygraph.Tickets, store, inv, testsupport.TicketHandlers(), nil)
	return rc, store
}

func encodeTicket(t *testing.T, row testsupport.Ticket) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func ticketKeys() querykey.Keys {
	return querykey.New(entitygraph.Tickets)
}

func TestReconciler_ApplyCreate(t *testing.T) {
	rc, store := newReconciler(t)
	keys := ticketKeys()
	rows := []testsupport.Ticket{{ID: 1, Title: "one"}}
	store.Seed(keys.List(nil), rows)

	fresh := testsupport.Ticket{ID: 2, Title: "two"}
	err := rc.Apply(context.Background(), realtime.Message{
		Type:   realtime.MessageCreate,
		Entity: entitygraph.Tickets,
		Data:   encodeTicket(t, fresh),
	})
	if err != nil {
		t.Fatalf("Apply() = %v", err)
	}

	raw, _ := store.Get(keys.List(nil))
	list := raw.([]testsupport.Ticket)
	if len(list) != 2 || list[1].ID != 2 {
		t.Errorf("list = %v, want the pushed row appended", list)
	}

	detail, ok := store.Get(keys.Detail(int64(2)))
	if !ok || detail.(testsupport.Ticket).Title != "two" {
		t.Error("detail entry not seeded from the push")
	}
}

func TestReconciler_ApplyCreate_SkipsDuplicateOfOptimisticRow(t *testing.T) {
	rc, store := newReconciler(t)
	keys := ticketKeys()
	rows := []testsupport.Ticket{{ID: 2, Title: "already here"}}
	store.Seed(keys.List(nil), rows)

	err := rc.Apply(context.Background(), realtime.Message{
		Type:   realtime.MessageCreate,
		Entity: entitygraph.Tickets,
		Data:   encodeTicket(t, testsupport.Ticket{ID: 2, Title: "duplicate"}),
	})
	if err != nil {
		t.Fatalf("Apply() = %v", err)
	}

	raw, _ := store.Get(keys.List(nil))
	list := raw.([]testsupport.Ticket)
	if len(list) != 1 || list[0].Title != "already here" {
		t.Errorf("list = %v, want the existing row untouched", list)
	}
}

func TestReconciler_ApplyUpdate(t *testing.T) {
	rc, store := newReconciler(t)
	keys := ticketKeys()
	store.Seed(keys.List(nil), []testsupport.Ticket{
		{ID: 1, Status: "open"},
		{ID: 2, Status: "open"},
	})
	store.Seed(keys.Detail(int64(1)), testsupport.Ticket{ID: 1, Status: "open"})

	err := rc.Apply(context.Background(), realtime.Message{
		Type:   realtime.MessageUpdate,
		Entity: entitygraph.Tickets,
		Data:   encodeTicket(t, testsupport.Ticket{ID: 1, Status: "done"}),
	})
	if err != nil {
		t.Fatalf("Apply() = %v", err)
	}

	raw, _ := store.Get(keys.List(nil))
	list := raw.([]testsupport.Ticket)
	if list[0].Status != "done" || list[1].Status != "open" {
		t.Errorf("list = %v, want only row 1 patched", list)
	}
	detail, _ := store.Get(keys.Detail(int64(1)))
	if detail.(testsupport.Ticket).Status != "done" {
		t.Error("detail entry not patched")
	}
}

func TestReconciler_ApplyDelete(t *testing.T) {
	rc, store := newReconciler(t)
	keys := ticketKeys()
	store.Seed(keys.List(nil), []testsupport.Ticket{{ID: 1}, {ID: 42}, {ID: 7}})
	store.Seed(keys.Detail(int64(42)), testsupport.Ticket{ID: 42})

	err := rc.Apply(context.Background(), realtime.Message{
		Type:   realtime.MessageDelete,
		Entity: entitygraph.Tickets,
		ID:     42,
	})
	if err != nil {
		t.Fatalf("Apply() = %v", err)
	}

	raw, _ := store.Get(keys.List(nil))
	list := raw.([]testsupport.Ticket)
	want := []testsupport.Ticket{{ID: 1}, {ID: 7}}
	if !reflect.DeepEqual(list, want) {
		t.Errorf("list = %v, want %v", list, want)
	}
	if _, ok := store.Get(keys.Detail(int64(42))); ok {
		t.Error("detail entry survived delete")
	}
}

func TestReconciler_ApplySync_ReplacesEveryList(t *testing.T) {
	rc, store := newReconciler(t)
	keys := ticketKeys()
	store.Seed(keys.List(nil), []testsupport.Ticket{{ID: 1, Status: "stale"}})
	store.Seed(keys.List(map[string]string{"status": "open"}), []testsupport.Ticket{{ID: 1, Status: "stale"}})

	full := []testsupport.Ticket{{ID: 1, Status: "fresh"}, {ID: 2, Status: "fresh"}}
	data, _ := json.Marshal(full)

	err := rc.Apply(context.Background(), realtime.Message{
		Type:   realtime.MessageSync,
		Entity: entitygraph.Tickets,
		Data:   data,
	})
	if err != nil {
		t.Fatalf("Apply() = %v", err)
	}

	for _, entry := range store.GetQueriesData(context.Background(), keys.Lists()) {
		list := entry.Value.([]testsupport.Ticket)
		if !reflect.DeepEqual(list, full) {
			t.Errorf("entry %q = %v, want the sync snapshot", entry.Key, list)
		}
	}
	for _, row := range full {
		if _, ok := store.Get(keys.Detail(row.ID)); !ok {
			t.Errorf("detail %d not reseeded", row.ID)
		}
	}
}

func TestReconciler_InvalidatesDependentsOnlyNotSource(t *testing.T) {
	rc, store := newReconciler(t)
	keys := ticketKeys()
	store.Seed(keys.List(nil), []testsupport.Ticket{{ID: 1}})

	err := rc.Apply(context.Background(), realtime.Message{
		Type:   realtime.MessageCreate,
		Entity: entitygraph.Tickets,
		Data:   encodeTicket(t, testsupport.Ticket{ID: 2}),
	})
	if err != nil {
		t.Fatalf("Apply() = %v", err)
	}

	// Dependents (tasks, comments) were invalidated; the patched tickets
	// lists were not.
	sawTasks := false
	for _, key := range store.Invalidated {
		encoded := querykey.Encode(querykey.Key(key))
		if querykey.HasPrefix(encoded, querykey.Encode(querykey.New(entitygraph.Tasks).All())) {
			sawTasks = true
		}
		if querykey.HasPrefix(encoded, querykey.Encode(keys.All())) {
			t.Errorf("source namespace was invalidated: %v", key)
		}
	}
	if !sawTasks {
		t.Error("dependent namespaces were not invalidated")
	}
	if _, ok := store.Get(keys.List(nil)); !ok {
		t.Error("patched source list was evicted")
	}
}

func TestReconciler_RejectsUnknownType(t *testing.T) {
	rc, _ := newReconciler(t)
	err := rc.Apply(context.Background(), realtime.Message{Type: "bogus", Entity: entitygraph.Tickets})
	if err == nil {
		t.Error("Apply() = nil, want error for unknown type")
	}
}
