// Package httpapi exposes the gateway over HTTP: submit, poll, workspace
// info and reset. All failures the façade reports are surfaced in-band as
// JSON, never as transport errors.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/deploypilotorg/deploypilot/internal/gateway"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Server wires the gateway service into an HTTP mux.
type Server struct {
	service *gateway.Service
	token   string
	httpSrv *http.Server
}

func NewServer(service *gateway.Service, addr, token string) *Server {
	s := &Server{service: service, token: token}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /query", s.withAuth(s.handleQuery))
	mux.HandleFunc("GET /result/{query_id}", s.withAuth(s.handleResult))
	mux.HandleFunc("GET /workspace_info", s.withAuth(s.handleWorkspaceInfo))
	mux.HandleFunc("POST /reset_workspace", s.withAuth(s.handleResetWorkspace))
	mux.HandleFunc("GET /status", s.handleStatus)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// logRequests emits one slog line per request with method, path and
// duration. Status is not captured; failures already log at the handler.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("api server listening", "addr", s.httpSrv.Addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the underlying handler (used by tests).
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !tokenMatch(extractBearerToken(r), s.token) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

type queryRequest struct {
	Text string `json:"text"`
}

type queryResponse struct {
	QueryID string `json:"query_id"`
	Status  string `json:"status"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid JSON: %s", err)})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	id, err := s.service.Submit(r.Context(), req.Text)
	if errors.Is(err, gateway.ErrRateLimited) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("submit failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{QueryID: id, Status: "processing"})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("query_id")

	snap, err := s.service.Poll(r.Context(), id)
	if err != nil {
		slog.Error("poll failed", "task", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// not_found is a normal outcome, reported with 200 like every status.
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWorkspaceInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.WorkspaceInfo(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type resetResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleResetWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ResetWorkspace(r.Context()); err != nil {
		// Reported in-band: the operation failed, not the transport.
		writeJSON(w, http.StatusOK, resetResponse{
			Status:  "error",
			Message: fmt.Sprintf("Error resetting workspace: %s", err),
		})
		return
	}

	info, _ := s.service.WorkspaceInfo(r.Context())
	writeJSON(w, http.StatusOK, resetResponse{
		Status:  "success",
		Message: fmt.Sprintf("Workspace at %s has been reset", info.WorkspacePath),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "online"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}
