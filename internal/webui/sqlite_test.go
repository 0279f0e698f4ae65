package webui

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteHistory_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	h, err := NewSQLiteHistory(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.Append(ctx, "s1", "user", "deploy the app"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := h.Append(ctx, "s1", "assistant", "done"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	h, err = NewSQLiteHistory(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer h.Close()

	msgs, err := h.List(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "deploy the app" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "done" {
		t.Errorf("unexpected second message: %+v", msgs[1])
	}
}

func TestSQLiteHistory_ClearIsPerSession(t *testing.T) {
	h, err := NewSQLiteHistory(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()
	ctx := context.Background()

	h.Append(ctx, "a", "user", "one")
	h.Append(ctx, "b", "user", "two")

	if err := h.Clear(ctx, "a"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if msgs, _ := h.List(ctx, "a"); len(msgs) != 0 {
		t.Errorf("session a not cleared: %+v", msgs)
	}
	if msgs, _ := h.List(ctx, "b"); len(msgs) != 1 {
		t.Errorf("session b affected by clear: %+v", msgs)
	}
}
