package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/campustransit/dispatch/core/feed"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	if err := store.Put(ctx, "rides", "r1", "v1", nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, err := store.Get(ctx, "rides", "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "v1" {
		t.Errorf("got %v, want v1", v)
	}
	if _, err := store.Get(ctx, "rides", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing document: got %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	if err := store.Put(ctx, "rides", "r1", "v1", IfAbsent()); err != nil {
		t.Fatalf("first conditional put: %v", err)
	}
	err := store.Put(ctx, "rides", "r1", "v2", IfAbsent())
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("duplicate put: got %v, want ErrPreconditionFailed", err)
	}
	v, _ := store.Get(ctx, "rides", "r1")
	if v != "v1" {
		t.Errorf("failed precondition must not overwrite: got %v", v)
	}
}

func TestMemoryStoreConditionalPutExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	if err := store.Put(ctx, "rides", "r1", "pending", nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	pre := func(current any, exists bool) bool {
		return exists && current == "pending"
	}

	const writers = 32
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Put(ctx, "rides", "r1", i, pre)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrPreconditionFailed):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("got %d winning writers, want exactly 1", wins)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	if err := store.Put(ctx, "rides", "r1", "v1", nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, "rides", "r1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "rides", "r1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreQuery(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	for _, v := range []int{3, 1, 2} {
		if err := store.Put(ctx, "n", string(rune('a'+v)), v, nil); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	docs, err := store.Query(ctx, "n", func(v any) bool { return v.(int) >= 2 }, func(a, b any) bool {
		return a.(int) < b.(int)
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(docs) != 2 || docs[0] != 2 || docs[1] != 3 {
		t.Errorf("got %v, want [2 3]", docs)
	}

	empty, err := store.Query(ctx, "other", nil, nil)
	if err != nil {
		t.Fatalf("query empty collection: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("empty collection should yield no documents, got %v", empty)
	}
}

func TestMemoryStorePublishesCommits(t *testing.T) {
	ctx := context.Background()
	events := feed.New(8)
	defer events.Close()
	store := NewMemoryStore(events)
	sub := events.Subscribe(feed.ByCollection("rides"))
	defer sub.Cancel()

	if err := store.Put(ctx, "rides", "r1", "v1", nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	ev := <-sub.C
	if ev.Collection != "rides" || ev.ID != "r1" || ev.Entity != "v1" {
		t.Errorf("unexpected event %+v", ev)
	}

	// A failed precondition must not be published.
	if err := store.Put(ctx, "rides", "r1", "v2", IfAbsent()); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
	select {
	case ev := <-sub.C:
		t.Errorf("rejected write was published: %+v", ev)
	default:
	}
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore(nil)
	if err := store.Put(ctx, "rides", "r1", "v1", nil); err == nil {
		t.Errorf("put with cancelled context should fail")
	}
	if _, err := store.Get(ctx, "rides", "r1"); err == nil {
		t.Errorf("get with cancelled context should fail")
	}
}
