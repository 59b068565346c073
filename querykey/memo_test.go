package querykey

import (
	"reflect"
	"sync"
	"testing"
)

func TestMemo_ReferenceStability(t *testing.T) {
	memo := NewMemo()

	first := memo.Key("tickets", "list", map[string]string{"status": "open"})
	second := memo.Key("tickets", "list", map[string]string{"status": "open"})

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("structurally different keys: %v vs %v", first, second)
	}
	// Identity, not just equality: the exact same backing array comes back.
	if &first[0] != &second[0] {
		t.Error("repeated calls returned distinct key instances")
	}
}

func TestMemo_DistinctParamsDistinctKeys(t *testing.T) {
	memo := NewMemo()

	open := memo.Key("tickets", "list", map[string]string{"status": "open"})
	closed := memo.Key("tickets", "list", map[string]string{"status": "closed"})

	if reflect.DeepEqual(open, closed) {
		t.Error("different params produced equal keys")
	}
	if memo.Size() != 2 {
		t.Errorf("Size() = %d, want 2", memo.Size())
	}
}

func TestMemo_NilParams(t *testing.T) {
	memo := NewMemo()

	got := memo.Key("tickets", "list", nil)
	want := Key{"tickets", Version, "list"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Key() = %v, want %v", got, want)
	}
}

func TestMemo_ClearDropsIdentityNotCorrectness(t *testing.T) {
	memo := NewMemo()

	before := memo.Key("tickets", "detail", int64(42))
	memo.Clear()
	if memo.Size() != 0 {
		t.Fatalf("Size() after Clear = %d, want 0", memo.Size())
	}

	after := memo.Key("tickets", "detail", int64(42))
	if !reflect.DeepEqual(before, after) {
		t.Errorf("keys differ across Clear: %v vs %v", before, after)
	}
}

func TestMemo_ConcurrentCallsConverge(t *testing.T) {
	memo := NewMemo()

	const workers = 16
	results := make([]Key, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = memo.Key("tickets", "list", map[string]string{"status": "open"})
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if &results[i][0] != &results[0][0] {
			t.Fatal("concurrent callers received distinct key instances")
		}
	}
	if memo.Size() != 1 {
		t.Errorf("Size() = %d, want 1", memo.Size())
	}
}
