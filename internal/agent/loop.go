package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deploypilotorg/deploypilot/internal/providers"
	"github.com/deploypilotorg/deploypilot/internal/tools"
)

const defaultMaxIterations = 20

// CredentialCheck reports whether the provider credential is available.
// Evaluated at run time so a key added after startup is picked up without
// a restart, and a missing key fails the run, not the process.
type CredentialCheck func() error

// LoopConfig configures an agent loop.
type LoopConfig struct {
	Provider      providers.Provider
	Tools         *tools.Registry
	Workspace     string
	MaxIterations int
	MaxTokens     int             // 0 = provider default
	Credential    CredentialCheck // nil = no check
}

// Loop is the LLM-driven tool-use loop: call the provider, execute any
// requested tools, feed results back, repeat until the model stops asking
// for tools or the iteration budget runs out.
type Loop struct {
	provider   providers.Provider
	tools      *tools.Registry
	system     string
	maxIters   int
	maxTokens  int
	credential CredentialCheck
}

func NewLoop(cfg LoopConfig) *Loop {
	maxIters := cfg.MaxIterations
	if maxIters <= 0 {
		maxIters = defaultMaxIterations
	}
	return &Loop{
		provider:   cfg.Provider,
		tools:      cfg.Tools,
		system:     Instructions(cfg.Workspace),
		maxIters:   maxIters,
		maxTokens:  cfg.MaxTokens,
		credential: cfg.Credential,
	}
}

// Run executes one query to completion. Any failure is returned as an
// error; the caller records it as the task's terminal outcome.
func (l *Loop) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if l.credential != nil {
		if err := l.credential(); err != nil {
			return nil, err
		}
	}

	messages := []providers.Message{
		{Role: "user", Content: req.Message},
	}
	toolDefs := l.tools.ProviderDefs()

	var texts []string
	result := &RunResult{}

	for result.Iterations < l.maxIters {
		result.Iterations++

		resp, err := l.provider.Chat(ctx, providers.ChatRequest{
			System:    l.system,
			Messages:  messages,
			Tools:     toolDefs,
			MaxTokens: l.maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("provider call: %w", err)
		}

		if resp.Content != "" {
			texts = append(texts, resp.Content)
		}

		if len(resp.ToolCalls) == 0 {
			result.Content = strings.Join(texts, "\n\n")
			return result, nil
		}

		// Echo the assistant turn, then answer each tool call.
		assistantBlocks := make([]providers.ContentBlock, 0, len(resp.ToolCalls)+1)
		if resp.Content != "" {
			assistantBlocks = append(assistantBlocks, providers.ContentBlock{
				Type: "text",
				Text: resp.Content,
			})
		}
		resultBlocks := make([]providers.ContentBlock, 0, len(resp.ToolCalls))

		for _, call := range resp.ToolCalls {
			assistantBlocks = append(assistantBlocks, providers.ContentBlock{
				Type:  "tool_use",
				ID:    call.ID,
				Name:  call.Name,
				Input: call.Input,
			})

			slog.Info("agent tool call", "task", req.TaskID, "tool", call.Name)
			toolResult := l.tools.ExecuteForTask(ctx, call.Name, call.Input, req.TaskID)
			result.ToolCalls++

			texts = append(texts, fmt.Sprintf("[Called tool %s]", call.Name))
			resultBlocks = append(resultBlocks, providers.ContentBlock{
				Type:      "tool_result",
				ToolUseID: call.ID,
				Content:   toolResult.ForLLM,
				IsError:   toolResult.IsError,
			})
		}

		messages = append(messages,
			providers.Message{Role: "assistant", Content: assistantBlocks},
			providers.Message{Role: "user", Content: resultBlocks},
		)
	}

	// Budget exhausted: return what we have rather than looping forever.
	slog.Warn("agent iteration budget exhausted", "task", req.TaskID, "iterations", result.Iterations)
	result.Content = strings.Join(texts, "\n\n")
	return result, nil
}
