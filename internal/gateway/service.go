// Package gateway is the submission/polling façade: submit a query, get an
// identifier back immediately, poll for the terminal outcome.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/deploypilotorg/deploypilot/internal/agent"
	"github.com/deploypilotorg/deploypilot/internal/task"
	"github.com/deploypilotorg/deploypilot/internal/workspace"
)

// ErrRateLimited is returned by Submit when the submission limiter rejects.
var ErrRateLimited = errors.New("submission rate limit exceeded")

const drainTimeout = 30 * time.Second

// Snapshot is the poll result handed to front-ends.
type Snapshot struct {
	Status task.Status `json:"status"`
	Result string      `json:"result,omitempty"`
}

// Config configures the gateway service.
type Config struct {
	Store     task.Store
	Agent     agent.Agent
	Workspace *workspace.Manager

	// SubmitsPerMinute caps submissions; 0 disables the limiter.
	SubmitsPerMinute int

	// SharedStore appends a random suffix to generated ids so counters
	// from multiple gateway processes sharing one store cannot collide.
	SharedStore bool
}

// Service decouples callers from the latency of the agent run. Submit
// returns immediately; a background goroutine per task performs the run
// and writes the single terminal transition into the store.
type Service struct {
	store     task.Store
	agent     agent.Agent
	workspace *workspace.Manager
	shared    bool

	limiterMu sync.Mutex
	limiter   *rate.Limiter

	counter  atomic.Uint64
	inFlight sync.WaitGroup
}

func New(cfg Config) *Service {
	s := &Service{
		store:     cfg.Store,
		agent:     cfg.Agent,
		workspace: cfg.Workspace,
		shared:    cfg.SharedStore,
	}
	if cfg.SubmitsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.SubmitsPerMinute)), cfg.SubmitsPerMinute)
	}
	return s
}

// SetSubmitLimit replaces the submission limiter (config hot reload).
func (s *Service) SetSubmitLimit(perMinute int) {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	if perMinute <= 0 {
		s.limiter = nil
		return
	}
	s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// allowSubmit consults the limiter under the lock.
func (s *Service) allowSubmit() bool {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	return s.limiter == nil || s.limiter.Allow()
}

// nextID generates a fresh task identifier. The atomic counter keeps ids
// unique and readable within a process; the suffix covers shared stores
// where independent counters would collide.
func (s *Service) nextID() string {
	n := s.counter.Add(1)
	if s.shared {
		return fmt.Sprintf("query_%d_%s", n, uuid.NewString()[:6])
	}
	return fmt.Sprintf("query_%d", n)
}

// Submit registers a query and schedules the agent run. The record exists
// before this returns, so an immediate poll sees "processing".
func (s *Service) Submit(ctx context.Context, text string) (string, error) {
	if !s.allowSubmit() {
		return "", ErrRateLimited
	}

	id := s.nextID()
	if err := s.store.Create(ctx, id); err != nil {
		return "", fmt.Errorf("register task: %w", err)
	}

	slog.Info("query submitted", "task", id, "chars", len(text))

	s.inFlight.Add(1)
	go s.run(id, text)

	return id, nil
}

// run is the background half of a submission: one agent run, one terminal
// store write. Errors never propagate; they become the task's result.
// Uses its own context: a submitted task cannot be cancelled.
func (s *Service) run(id, text string) {
	defer s.inFlight.Done()

	ctx := context.Background()

	result, err := s.agent.Run(ctx, agent.RunRequest{TaskID: id, Message: text})
	if err != nil {
		slog.Error("agent run failed", "task", id, "error", err)
		msg := err.Error()
		if !strings.HasPrefix(msg, "Error:") {
			msg = "Error: " + msg
		}
		if serr := s.store.SetResult(ctx, id, task.StatusError, msg); serr != nil {
			slog.Error("record error result failed", "task", id, "error", serr)
		}
		return
	}

	slog.Info("agent run completed", "task", id, "tool_calls", result.ToolCalls, "iterations", result.Iterations)
	if serr := s.store.SetResult(ctx, id, task.StatusCompleted, result.Content); serr != nil {
		slog.Error("record result failed", "task", id, "error", serr)
	}
}

// Poll returns the current status/result snapshot. Unknown identifiers
// yield StatusNotFound, never an error.
func (s *Service) Poll(ctx context.Context, id string) (Snapshot, error) {
	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, task.ErrNotFound) {
		return Snapshot{Status: task.StatusNotFound}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Status: rec.Status, Result: rec.Result}, nil
}

// ResetWorkspace destroys and recreates the workspace directory. The task
// registry is untouched; an in-flight run racing the reset is undefined.
func (s *Service) ResetWorkspace(ctx context.Context) error {
	return s.workspace.Reset()
}

// WorkspaceInfo returns the workspace path, existence and file tree.
func (s *Service) WorkspaceInfo(ctx context.Context) (workspace.Info, error) {
	return s.workspace.Info()
}

// Close waits for in-flight runs to finish, up to a bounded drain window.
func (s *Service) Close() error {
	done := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(drainTimeout):
		return errors.New("shutdown drain timeout: background runs still active")
	}
}
