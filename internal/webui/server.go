// Package webui serves the browser chat for the deployment agent. It is a
// thin front over the gateway API client: every query goes through the same
// submit and poll loop the console uses, and transcripts are kept per
// browser session.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/deploypilotorg/deploypilot/internal/client"
	"github.com/deploypilotorg/deploypilot/internal/task"
)

//go:embed templates/index.html
var templateFS embed.FS

const sessionCookie = "deploypilot_session"

const sweepInterval = time.Hour

// Server is the web chat front end.
type Server struct {
	api       *client.Client
	history   HistoryStore
	sessions  *Sessions
	tmpl      *template.Template
	httpSrv   *http.Server
	sweepStop chan struct{}
}

func NewServer(api *client.Client, history HistoryStore, addr string) *Server {
	s := &Server{
		api:       api,
		history:   history,
		sessions:  NewSessions(DefaultSessionTTL),
		tmpl:      template.Must(template.ParseFS(templateFS, "templates/index.html")),
		sweepStop: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("POST /clear_chat", s.handleClearChat)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /workspace_info", s.handleWorkspaceInfo)
	mux.HandleFunc("POST /reset_workspace", s.handleResetWorkspace)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("web ui listening", "addr", s.httpSrv.Addr)
	go s.sweepLoop()
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.sweepStop)
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.sweepStop:
			return
		case <-ticker.C:
			s.sweepSessions(context.Background())
		}
	}
}

// sweepSessions expires idle sessions and drops their transcripts, so
// abandoned browser sessions do not accumulate history forever.
func (s *Server) sweepSessions(ctx context.Context) {
	expired := s.sessions.Sweep()
	for _, token := range expired {
		if err := s.history.Clear(ctx, token); err != nil {
			slog.Error("clear expired session history failed", "error", err)
		}
	}
	if len(expired) > 0 {
		slog.Info("expired sessions swept", "count", len(expired))
	}
}

// Handler returns the underlying handler (used by tests).
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// session returns the request's session token, issuing a fresh one when
// the cookie is missing or the server no longer recognizes it.
func (s *Server) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && s.sessions.Touch(c.Value) {
		return c.Value
	}
	token := s.sessions.Issue()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

type indexData struct {
	Messages    []Message
	AgentOnline bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sid := s.session(w, r)

	msgs, err := s.history.List(r.Context(), sid)
	if err != nil {
		slog.Error("load chat history failed", "error", err)
	}

	data := indexData{
		Messages:    msgs,
		AgentOnline: s.api.Online(r.Context()),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		slog.Error("render index failed", "error", err)
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	sid := s.session(w, r)

	query := strings.TrimSpace(r.FormValue("query"))
	if query == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := s.history.Append(r.Context(), sid, "user", query); err != nil {
		slog.Error("record user message failed", "error", err)
	}

	reply := s.ask(r.Context(), query)
	if err := s.history.Append(r.Context(), sid, "assistant", reply); err != nil {
		slog.Error("record assistant message failed", "error", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ask runs one query through the gateway and flattens every failure mode
// into a displayable reply.
func (s *Server) ask(ctx context.Context, query string) string {
	snap, err := s.api.Ask(ctx, query)
	if errors.Is(err, client.ErrPollTimeout) {
		return "Error: timed out waiting for response from agent"
	}
	if err != nil {
		return fmt.Sprintf("Error: %s", err)
	}
	if snap.Status == task.StatusNotFound {
		return "Error: query not found on the agent server"
	}
	return snap.Result
}

func (s *Server) handleClearChat(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if err := s.history.Clear(r.Context(), c.Value); err != nil {
			slog.Error("clear chat failed", "error", err)
		}
		s.sessions.Revoke(c.Value)
	}
	// The next page load issues a fresh session.
	http.SetCookie(w, &http.Cookie{
		Name:   sessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := "offline"
	if s.api.Online(r.Context()) {
		status = "online"
	}
	writeJSON(w, map[string]string{"status": status})
}

func (s *Server) handleWorkspaceInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.api.WorkspaceInfo(r.Context())
	if err != nil {
		writeJSON(w, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, info)
}

func (s *Server) handleResetWorkspace(w http.ResponseWriter, r *http.Request) {
	status, message, err := s.api.ResetWorkspace(r.Context())
	if err != nil {
		writeJSON(w, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, map[string]string{"status": status, "message": message})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}
