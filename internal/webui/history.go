package webui

import (
	"context"
	"sync"
	"time"
)

// Message is one chat turn in a session's history. Error replies are
// recorded too, so the transcript stays auditable.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryStore keeps per-session chat transcripts. Sessions are created
// implicitly on first append and removed only by Clear.
type HistoryStore interface {
	Append(ctx context.Context, sessionID, role, content string) error
	List(ctx context.Context, sessionID string) ([]Message, error)
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

// MemoryHistory is the in-process history store used in tests and when no
// data directory is configured.
type MemoryHistory struct {
	mu       sync.RWMutex
	sessions map[string][]Message
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{sessions: make(map[string][]Message)}
}

func (h *MemoryHistory) Append(ctx context.Context, sessionID, role, content string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[sessionID] = append(h.sessions[sessionID], Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	return nil
}

func (h *MemoryHistory) List(ctx context.Context, sessionID string) ([]Message, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msgs := h.sessions[sessionID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (h *MemoryHistory) Clear(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, sessionID)
	return nil
}

func (h *MemoryHistory) Close() error { return nil }
