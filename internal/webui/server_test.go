package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deploypilotorg/deploypilot/internal/client"
)

// fakeGateway answers the API surface the web UI client talks to. Each
// submitted query completes immediately with a canned reply.
func fakeGateway(t *testing.T, reply string) *httptest.Server {
	t.Helper()

	var mu sync.Mutex
	tasks := make(map[string]string)
	counter := 0

	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		counter++
		id := fmt.Sprintf("query_%d", counter)
		tasks[id] = reply
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"query_id": id, "status": "processing"})
	})
	mux.HandleFunc("GET /result/{id}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		result, ok := tasks[r.PathValue("id")]
		mu.Unlock()
		if !ok {
			json.NewEncoder(w).Encode(map[string]string{"status": "not_found"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "completed", "result": result})
	})
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "online"})
	})
	mux.HandleFunc("POST /reset_workspace", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "success", "message": "Workspace at /tmp/ws has been reset"})
	})
	mux.HandleFunc("GET /workspace_info", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"workspace_path":   "/tmp/ws",
			"workspace_exists": true,
			"files":            []string{},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestUI(t *testing.T, gatewayURL string) *Server {
	t.Helper()
	api := client.New(gatewayURL, "")
	api.SetPolling(5*time.Millisecond, 20)
	return NewServer(api, NewMemoryHistory(), "127.0.0.1:0")
}

// postForm submits a form and carries the session cookie like a browser.
func postForm(t *testing.T, h http.Handler, cookie *http.Cookie, path string, form url.Values) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie && c.MaxAge >= 0 {
			return rec, c
		}
	}
	return rec, cookie
}

func TestWebUI_QueryRoundTrip(t *testing.T) {
	gw := fakeGateway(t, "cloned the repository")
	ui := newTestUI(t, gw.URL)
	h := ui.Handler()

	rec, cookie := postForm(t, h, nil, "/query", url.Values{"query": {"clone the repo"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if cookie == nil {
		t.Fatal("no session cookie issued")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	page := httptest.NewRecorder()
	h.ServeHTTP(page, req)

	body := page.Body.String()
	if !strings.Contains(body, "clone the repo") {
		t.Error("user message missing from transcript")
	}
	if !strings.Contains(body, "cloned the repository") {
		t.Error("assistant reply missing from transcript")
	}
}

func TestWebUI_SessionsAreIsolated(t *testing.T) {
	gw := fakeGateway(t, "ok")
	ui := newTestUI(t, gw.URL)
	h := ui.Handler()

	_, first := postForm(t, h, nil, "/query", url.Values{"query": {"first session message"}})

	// A request without the cookie gets its own empty transcript.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	page := httptest.NewRecorder()
	h.ServeHTTP(page, req)
	if strings.Contains(page.Body.String(), "first session message") {
		t.Error("transcript leaked across sessions")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(first)
	page = httptest.NewRecorder()
	h.ServeHTTP(page, req)
	if !strings.Contains(page.Body.String(), "first session message") {
		t.Error("own transcript missing")
	}
}

func TestWebUI_ClearChat(t *testing.T) {
	gw := fakeGateway(t, "ok")
	ui := newTestUI(t, gw.URL)
	h := ui.Handler()

	_, cookie := postForm(t, h, nil, "/query", url.Values{"query": {"remember this"}})

	rec, _ := postForm(t, h, cookie, "/clear_chat", url.Values{})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	page := httptest.NewRecorder()
	h.ServeHTTP(page, req)
	if strings.Contains(page.Body.String(), "remember this") {
		t.Error("transcript survived clear_chat")
	}
}

func TestWebUI_EmptyQueryIgnored(t *testing.T) {
	gw := fakeGateway(t, "ok")
	ui := newTestUI(t, gw.URL)
	h := ui.Handler()

	_, cookie := postForm(t, h, nil, "/query", url.Values{"query": {"   "}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	page := httptest.NewRecorder()
	h.ServeHTTP(page, req)
	if !strings.Contains(page.Body.String(), "Ask the agent") {
		t.Error("blank query should leave the transcript empty")
	}
}

func TestWebUI_OfflineGatewayShowsError(t *testing.T) {
	api := client.New("http://127.0.0.1:1", "")
	api.SetPolling(time.Millisecond, 2)
	ui := NewServer(api, NewMemoryHistory(), "127.0.0.1:0")
	h := ui.Handler()

	_, cookie := postForm(t, h, nil, "/query", url.Values{"query": {"hello"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	page := httptest.NewRecorder()
	h.ServeHTTP(page, req)
	if !strings.Contains(page.Body.String(), "Error:") {
		t.Error("gateway failure should surface as an error reply")
	}
}

func TestWebUI_ResetWorkspacePassThrough(t *testing.T) {
	gw := fakeGateway(t, "ok")
	ui := newTestUI(t, gw.URL)

	req := httptest.NewRequest(http.MethodPost, "/reset_workspace", nil)
	rec := httptest.NewRecorder()
	ui.Handler().ServeHTTP(rec, req)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "success" {
		t.Errorf("unexpected reset response: %v", body)
	}
}

func TestSessions_Lifecycle(t *testing.T) {
	s := NewSessions(20 * time.Millisecond)

	token := s.Issue()
	if !s.Touch(token) {
		t.Fatal("fresh session rejected")
	}

	time.Sleep(30 * time.Millisecond)
	if s.Touch(token) {
		t.Error("expired session accepted")
	}

	token = s.Issue()
	s.Revoke(token)
	if s.Touch(token) {
		t.Error("revoked session accepted")
	}

	token = s.Issue()
	time.Sleep(30 * time.Millisecond)
	removed := s.Sweep()
	if len(removed) != 1 || removed[0] != token {
		t.Errorf("sweep returned %v, want [%s]", removed, token)
	}
}

func TestWebUI_SweepClearsExpiredTranscripts(t *testing.T) {
	gw := fakeGateway(t, "ok")
	ui := newTestUI(t, gw.URL)
	ui.sessions = NewSessions(10 * time.Millisecond)
	h := ui.Handler()

	_, cookie := postForm(t, h, nil, "/query", url.Values{"query": {"soon forgotten"}})
	if cookie == nil {
		t.Fatal("no session cookie issued")
	}

	time.Sleep(20 * time.Millisecond)
	ui.sweepSessions(context.Background())

	if msgs, _ := ui.history.List(context.Background(), cookie.Value); len(msgs) != 0 {
		t.Errorf("expired session transcript survived sweep: %+v", msgs)
	}
	if ui.sessions.Len() != 0 {
		t.Errorf("expired session still tracked: %d", ui.sessions.Len())
	}
}

func TestMemoryHistory_AppendListClear(t *testing.T) {
	h := NewMemoryHistory()
	ctx := context.Background()

	if err := h.Append(ctx, "s1", "user", "hi"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := h.Append(ctx, "s1", "assistant", "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs, err := h.List(ctx, "s1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Content != "hello" {
		t.Errorf("unexpected transcript: %+v", msgs)
	}

	if err := h.Clear(ctx, "s1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	msgs, _ = h.List(ctx, "s1")
	if len(msgs) != 0 {
		t.Errorf("transcript survived clear: %+v", msgs)
	}
}
