package crud_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-entity-cache/crud"
	"github.com/goliatone/go-entity-cache/entitygraph"
	"github.com/goliatone/go-entity-cache/invalidation"
	"github.com/goliatone/go-entity-cache/pkg/testsupport"
)

// batchAdapter extends the scripted adapter with the batch capability.
type batchAdapter struct {
	*testsupport.ScriptedAdapter
}

func (a *batchAdapter) BatchCreate(ctx context.Context, items []testsupport.Ticket) ([]testsupport.Ticket, error) {
	out := make([]testsupport.Ticket, 0, len(items))
	for _, item := range items {
		created, err := a.Create(ctx, item)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (a *batchAdapter) BatchUpdate(ctx context.Context, items []crud.BatchUpdateItem[testsupport.Ticket]) ([]testsupport.Ticket, error) {
	out := make([]testsupport.Ticket, 0, len(items))
	for _, item := range items {
		updated, err := a.Update(ctx, item.ID, item.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, updated)
	}
	return out, nil
}

func (a *batchAdapter) BatchDelete(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if err := a.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func newBatchHarness(t *testing.T, rows ...testsupport.Ticket) *harness {
	t.Helper()

	store := testsupport.NewFakeStore()
	store.RecordOnly = true
	adapter := &batchAdapter{ScriptedAdapter: testsupport.NewScriptedAdapter(rows...)}
	notifier := &testsupport.RecordingNotifier{}

	resource, err := crud.New(crud.Config[testsupport.Ticket]{
		Entity:      entitygraph.Tickets,
		Adapter:     adapter,
		Handlers:    testsupport.TicketHandlers(),
		Store:       store,
		Invalidator: invalidation.New(entitygraph.DefaultGraph(), store, nil),
		Notifier:    notifier,
	})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return &harness{store: store, adapter: adapter.ScriptedAdapter, notifier: notifier, resource: resource}
}

func TestBatch_UnsupportedCapability(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var cerr *crud.ConfigError
	if _, err := h.resource.BatchCreate(ctx, []testsupport.Ticket{{}}); !errors.As(err, &cerr) {
		t.Errorf("BatchCreate() = %v, want *ConfigError", err)
	}
	if _, err := h.resource.BatchUpdate(ctx, []crud.BatchUpdateItem[testsupport.Ticket]{{ID: 1}}); !errors.As(err, &cerr) {
		t.Errorf("BatchUpdate() = %v, want *ConfigError", err)
	}
	if err := h.resource.BatchDelete(ctx, []int64{1}); !errors.As(err, &cerr) {
		t.Errorf("BatchDelete() = %v, want *ConfigError", err)
	}
}

func TestBatchCreate_ReplacesPlaceholdersPositionally(t *testing.T) {
	rows := []testsupport.Ticket{{ID: 10, Title: "existing"}}
	h := newBatchHarness(t, rows...)
	h.store.Seed(h.resource.Keys().List(nil), rows)
	ctx := context.Background()

	created, err := h.resource.BatchCreate(ctx, []testsupport.Ticket{
		{Title: "alpha"},
		{Title: "beta"},
	})
	if err != nil {
		t.Fatalf("BatchCreate() = %v", err)
	}
	if len(created) != 2 || created[0].ID != 11 || created[1].ID != 12 {
		t.Fatalf("created = %v, want ids 11 and 12", created)
	}

	list := cachedList(t, h)
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	for _, row := range list {
		if row.Pending != "" {
			t.Errorf("pending placeholder survived: %+v", row)
		}
	}
	if list[1].Title != "alpha" || list[2].Title != "beta" {
		t.Errorf("order not preserved: %v", list)
	}

	for _, entity := range created {
		if _, ok := h.store.Get(h.resource.Keys().Detail(entity.ID)); !ok {
			t.Errorf("detail for %d not seeded", entity.ID)
		}
	}
}

func TestBatchCreate_FailureRollsBack(t *testing.T) {
	rows := []testsupport.Ticket{{ID: 10}}
	h := newBatchHarness(t, rows...)
	h.store.Seed(h.resource.Keys().List(nil), rows)
	ctx := context.Background()

	h.adapter.FailWith = errors.New("api down")
	if _, err := h.resource.BatchCreate(ctx, []testsupport.Ticket{{Title: "x"}}); err == nil {
		t.Fatal("BatchCreate() = nil, want error")
	}

	if got := cachedList(t, h); !reflect.DeepEqual(got, rows) {
		t.Errorf("list = %v, want %v", got, rows)
	}
	if h.store.Restored != 1 {
		t.Errorf("Restored = %d, want 1", h.store.Restored)
	}
}

func TestBatchUpdate_PatchesDetailsAndRows(t *testing.T) {
	rows := []testsupport.Ticket{
		{ID: 1, Status: "open"},
		{ID: 2, Status: "open"},
	}
	h := newBatchHarness(t, rows...)
	h.store.Seed(h.resource.Keys().List(nil), rows)
	h.store.Seed(h.resource.Keys().Detail(int64(1)), rows[0])
	ctx := context.Background()

	updated, err := h.resource.BatchUpdate(ctx, []crud.BatchUpdateItem[testsupport.Ticket]{
		{ID: 1, Data: testsupport.Ticket{Status: "done"}},
		{ID: 2, Data: testsupport.Ticket{Status: "done"}},
	})
	if err != nil {
		t.Fatalf("BatchUpdate() = %v", err)
	}
	if len(updated) != 2 {
		t.Fatalf("len(updated) = %d, want 2", len(updated))
	}

	for _, row := range cachedList(t, h) {
		if row.Status != "done" {
			t.Errorf("row %d status = %q, want done", row.ID, row.Status)
		}
	}
	detail, _ := h.store.Get(h.resource.Keys().Detail(int64(1)))
	if detail.(testsupport.Ticket).Status != "done" {
		t.Error("detail entry not patched")
	}
}

func TestBatchDelete_FiltersRowsAndRemovesDetails(t *testing.T) {
	rows := []testsupport.Ticket{{ID: 1}, {ID: 2}, {ID: 3}}
	h := newBatchHarness(t, rows...)
	h.store.Seed(h.resource.Keys().List(nil), rows)
	ctx := context.Background()

	if err := h.resource.BatchDelete(ctx, []int64{1, 3}); err != nil {
		t.Fatalf("BatchDelete() = %v", err)
	}

	got := cachedList(t, h)
	want := []testsupport.Ticket{{ID: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("list = %v, want %v", got, want)
	}
	if len(h.store.Removed) != 2 {
		t.Errorf("removed = %v, want two detail removals", h.store.Removed)
	}
}

func TestBatch_EmptyInputIsNoOp(t *testing.T) {
	h := newBatchHarness(t)
	ctx := context.Background()

	if out, err := h.resource.BatchCreate(ctx, nil); err != nil || out != nil {
		t.Errorf("BatchCreate(nil) = %v, %v", out, err)
	}
	if err := h.resource.BatchDelete(ctx, nil); err != nil {
		t.Errorf("BatchDelete(nil) = %v", err)
	}
	if len(h.notifier.Successes) != 0 {
		t.Errorf("notifications = %v, want none", h.notifier.Successes)
	}
}
