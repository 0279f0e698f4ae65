package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicProvider_ChatTextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}

		var req anthropicRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model == "" || len(req.Messages) != 1 {
			t.Errorf("malformed request: %+v", req)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": "Branch created."},
			},
			"stop_reason": "end_turn",
		})
	}))
	defer srv.Close()

	p := NewAnthropicProvider("test-key", srv.URL, "test-model")
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "create a branch"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Content != "Branch created." {
		t.Errorf("content: got %q", resp.Content)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("stop reason: got %q", resp.StopReason)
	}
}

func TestAnthropicProvider_ChatToolUse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": "Cloning now."},
				{
					"type":  "tool_use",
					"id":    "toolu_01",
					"name":  "exec",
					"input": map[string]interface{}{"command": "gh repo clone deploypilotorg/example-repo"},
				},
			},
			"stop_reason": "tool_use",
		})
	}))
	defer srv.Close()

	p := NewAnthropicProvider("k", srv.URL, "m")
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "clone the repo"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.Name != "exec" || call.ID != "toolu_01" {
		t.Errorf("unexpected call: %+v", call)
	}
	if call.Input["command"] != "gh repo clone deploypilotorg/example-repo" {
		t.Errorf("unexpected input: %v", call.Input)
	}
}

func TestAnthropicProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"type":    "authentication_error",
				"message": "invalid x-api-key",
			},
		})
	}))
	defer srv.Close()

	p := NewAnthropicProvider("bad", srv.URL, "m")
	_, err := p.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}
