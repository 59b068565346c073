package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-entity-cache/querykey"
)

func TestDeduper_CollapsesConcurrentCalls(t *testing.T) {
	d := NewDeduper()
	ctx := context.Background()

	var calls atomic.Int32
	var entered atomic.Int32
	release := make(chan struct{})

	fn := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "result", nil
	}

	const workers = 8
	results := make([]any, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			entered.Add(1)
			results[slot], _ = d.Do(ctx, "sig", fn)
		}(i)
	}

	// Wait until every worker is at the ledger, give the joiners a moment to
	// attach, then let the call settle.
	for entered.Load() != workers {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("fn ran %d times, want 1", calls.Load())
	}
	for i, result := range results {
		if result != "result" {
			t.Errorf("caller %d got %v, want the shared result", i, result)
		}
	}
	if d.InFlight() != 0 {
		t.Errorf("InFlight() = %d after settlement, want 0", d.InFlight())
	}
}

func TestDeduper_SequentialCallsRunIndependently(t *testing.T) {
	d := NewDeduper()
	ctx := context.Background()

	var calls atomic.Int32
	fn := func(context.Context) (any, error) {
		return int(calls.Add(1)), nil
	}

	first, _ := d.Do(ctx, "sig", fn)
	second, _ := d.Do(ctx, "sig", fn)

	if first != 1 || second != 2 {
		t.Errorf("got %v then %v, want 1 then 2", first, second)
	}
}

func TestDeduper_ErrorsPropagateAndClear(t *testing.T) {
	d := NewDeduper()
	ctx := context.Background()

	boom := errors.New("upstream down")
	if _, err := d.Do(ctx, "sig", func(context.Context) (any, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("Do() = %v, want %v", err, boom)
	}
	if d.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", d.InFlight())
	}

	// The failed entry is gone; the next call runs afresh.
	got, err := d.Do(ctx, "sig", func(context.Context) (any, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Errorf("Do() = %v, %v", got, err)
	}
}

func TestDeduper_DoKey(t *testing.T) {
	d := NewDeduper()
	ctx := context.Background()

	key := querykey.New("tickets").List(nil)
	got, err := d.DoKey(ctx, key, func(context.Context) (any, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Errorf("DoKey() = %v, %v", got, err)
	}
}

func TestDo_TypedWrapper(t *testing.T) {
	d := NewDeduper()
	ctx := context.Background()

	rows, err := Do(ctx, d, "sig", func(context.Context) ([]string, error) {
		return []string{"a"}, nil
	})
	if err != nil || len(rows) != 1 {
		t.Errorf("Do[T]() = %v, %v", rows, err)
	}

	boom := errors.New("nope")
	if _, err := Do(ctx, d, "sig2", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Errorf("Do[T]() error = %v, want %v", err, boom)
	}
}
