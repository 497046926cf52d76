package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"polychat/internal/core"
)

func newTestSQLiteStore(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	conv, err := store.Create(ctx, "anthropic")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err = store.AppendMessage(ctx, conv.ID, core.HistoryMessage{Role: core.RoleUser, Content: "Hi"})
	if err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	err = store.AppendMessage(ctx, conv.ID, core.HistoryMessage{Role: core.RoleAssistant, Content: "Hello!"})
	if err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	got, err := store.Get(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", got.Provider)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Content != "Hi" || got.Messages[1].Content != "Hello!" {
		t.Errorf("Messages = %+v, want insertion order preserved", got.Messages)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len(List()) = %d, want 1", len(list))
	}

	if err := store.Delete(ctx, conv.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, conv.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := store.AppendMessage(ctx, "missing", core.HistoryMessage{Role: "user", Content: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendMessage() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
