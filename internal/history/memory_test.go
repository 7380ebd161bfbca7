package history

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryAppendAndList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(100)

	first, err := store.Append(ctx, "u1", RoleUser, "hello")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("expected populated message, got %+v", first)
	}
	if _, err := store.Append(ctx, "u1", RoleAI, "hi there"); err != nil {
		t.Fatalf("append: %v", err)
	}

	messages, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != RoleUser || messages[0].Content != "hello" {
		t.Fatalf("unexpected first message: %+v", messages[0])
	}
	if messages[1].Role != RoleAI || messages[1].Content != "hi there" {
		t.Fatalf("unexpected second message: %+v", messages[1])
	}
}

func TestMemoryListUnknownUser(t *testing.T) {
	store := NewMemoryStore(100)
	messages, err := store.List(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty log, got %d entries", len(messages))
	}
}

func TestMemoryCapEvictsOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(100)

	for i := 0; i < 150; i++ {
		if _, err := store.Append(ctx, "u1", RoleUser, fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	messages, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 100 {
		t.Fatalf("expected log capped at 100, got %d", len(messages))
	}
	if messages[0].Content != "msg-50" {
		t.Fatalf("expected oldest retained msg-50, got %q", messages[0].Content)
	}
	if messages[99].Content != "msg-149" {
		t.Fatalf("expected newest msg-149, got %q", messages[99].Content)
	}
}

func TestMemoryClearIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(100)

	if _, err := store.Append(ctx, "u1", RoleUser, "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.Clear(ctx, "u1"); err != nil {
			t.Fatalf("clear %d: %v", i, err)
		}
		messages, err := store.List(ctx, "u1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(messages) != 0 {
			t.Fatalf("expected empty log after clear, got %d", len(messages))
		}
	}
	if err := store.Clear(ctx, "never-seen"); err != nil {
		t.Fatalf("clear unknown user: %v", err)
	}

	// The key remains usable after a clear.
	if _, err := store.Append(ctx, "u1", RoleUser, "again"); err != nil {
		t.Fatalf("append after clear: %v", err)
	}
	messages, _ := store.List(ctx, "u1")
	if len(messages) != 1 {
		t.Fatalf("expected recreated log with 1 entry, got %d", len(messages))
	}
}

func TestMemoryConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(100)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := store.Append(ctx, "shared", RoleUser, fmt.Sprintf("w%d-%d", worker, i)); err != nil {
					t.Errorf("append: %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	messages, err := store.List(ctx, "shared")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 100 {
		t.Fatalf("expected cap enforced under concurrency, got %d", len(messages))
	}
}
