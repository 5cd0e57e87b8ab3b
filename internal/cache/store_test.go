package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "results.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetPut(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, ok, err := s.Get(ctx, "t:missing"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := s.Put(ctx, "t:a", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "t:a", "hello again"); err != nil {
		t.Fatal(err)
	}
	text, ok, err := s.Get(ctx, "t:a")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if text != "hello again" {
		t.Fatalf("text = %q", text)
	}
}

func TestStore_EmptyTextIsAHit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.Put(ctx, "t:silence", ""); err != nil {
		t.Fatal(err)
	}
	text, ok, err := s.Get(ctx, "t:silence")
	if err != nil || !ok || text != "" {
		t.Fatalf("got %q ok=%v err=%v", text, ok, err)
	}
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")
	s, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "x:k", "hola"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if text, ok, _ := s.Get(ctx, "x:k"); !ok || text != "hola" {
		t.Fatalf("got %q ok=%v", text, ok)
	}
}

func TestStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "t:" + string(rune('a'+i))
			if err := s.Put(ctx, key, key); err != nil {
				t.Errorf("put %s: %v", key, err)
			}
		}(i)
	}
	wg.Wait()
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Entries != 8 {
		t.Fatalf("entries = %d", st.Entries)
	}
	if st.Bytes <= 0 {
		t.Fatalf("expected non-zero db size")
	}
}

func TestStore_StatsCountsHits(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_ = s.Put(ctx, "k", "v")
	for i := 0; i < 3; i++ {
		if _, _, err := s.Get(ctx, "k"); err != nil {
			t.Fatal(err)
		}
	}
	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Hits != 3 {
		t.Fatalf("hits = %d", st.Hits)
	}
}

func TestStore_PruneAndClear(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	_ = s.Put(ctx, "old", "1")
	s.now = func() time.Time { return base.Add(48 * time.Hour) }
	_ = s.Put(ctx, "new", "2")

	n, err := s.Prune(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("pruned %d", n)
	}
	if _, ok, _ := s.Get(ctx, "old"); ok {
		t.Fatalf("old entry survived prune")
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "new"); ok {
		t.Fatalf("entry survived clear")
	}
}

func TestOpen_RejectsEmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatalf("expected error")
	}
}
