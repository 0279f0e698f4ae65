package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deploypilotorg/deploypilot/internal/providers"
	"github.com/deploypilotorg/deploypilot/internal/tools"
)

// scriptedProvider replays a fixed sequence of responses.
type scriptedProvider struct {
	responses []*providers.ChatResponse
	calls     int
	lastReq   providers.ChatRequest
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "test" }
func (p *scriptedProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	p.lastReq = req
	if p.calls >= len(p.responses) {
		return &providers.ChatResponse{Content: "", StopReason: "end_turn"}, nil
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

type echoTool struct{ executed int }

func (e *echoTool) Name() string        { return "exec" }
func (e *echoTool) Description() string { return "echo" }
func (e *echoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}
func (e *echoTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	e.executed++
	cmd, _ := args["command"].(string)
	return tools.NewResult("ran: " + cmd)
}

func newTestLoop(p providers.Provider, reg *tools.Registry) *Loop {
	return NewLoop(LoopConfig{
		Provider:  p,
		Tools:     reg,
		Workspace: "/tmp/ws",
	})
}

func TestLoop_PlainTextRun(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "The repo has 3 open PRs.", StopReason: "end_turn"},
	}}
	loop := newTestLoop(p, tools.NewRegistry())

	result, err := loop.Run(context.Background(), RunRequest{TaskID: "query_1", Message: "list PRs"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Content != "The repo has 3 open PRs." {
		t.Errorf("content: %q", result.Content)
	}
	if result.ToolCalls != 0 || result.Iterations != 1 {
		t.Errorf("unexpected counters: %+v", result)
	}
}

func TestLoop_ToolUseRoundTrip(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{
			Content:    "Listing files.",
			StopReason: "tool_use",
			ToolCalls: []providers.ToolCall{
				{ID: "t1", Name: "exec", Input: map[string]interface{}{"command": "ls"}},
			},
		},
		{Content: "Done: three files found.", StopReason: "end_turn"},
	}}

	reg := tools.NewRegistry()
	tool := &echoTool{}
	reg.Register(tool)

	loop := newTestLoop(p, reg)
	result, err := loop.Run(context.Background(), RunRequest{TaskID: "query_1", Message: "list files"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if tool.executed != 1 {
		t.Errorf("tool executed %d times", tool.executed)
	}
	if result.ToolCalls != 1 || result.Iterations != 2 {
		t.Errorf("unexpected counters: %+v", result)
	}
	if !strings.Contains(result.Content, "[Called tool exec]") {
		t.Errorf("missing tool call marker: %q", result.Content)
	}
	if !strings.Contains(result.Content, "Done: three files found.") {
		t.Errorf("missing final text: %q", result.Content)
	}

	// The second provider call must carry the tool result back.
	last := p.lastReq.Messages[len(p.lastReq.Messages)-1]
	blocks, ok := last.Content.([]providers.ContentBlock)
	if !ok || len(blocks) != 1 {
		t.Fatalf("expected one tool_result block, got %+v", last.Content)
	}
	if blocks[0].Type != "tool_result" || blocks[0].ToolUseID != "t1" {
		t.Errorf("bad tool_result block: %+v", blocks[0])
	}
	if blocks[0].Content != "ran: ls" {
		t.Errorf("tool output not forwarded: %q", blocks[0].Content)
	}
}

func TestLoop_MaxTokensForwardedToProvider(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "ok", StopReason: "end_turn"},
	}}
	loop := NewLoop(LoopConfig{
		Provider:  p,
		Tools:     tools.NewRegistry(),
		Workspace: "/tmp/ws",
		MaxTokens: 512,
	})

	if _, err := loop.Run(context.Background(), RunRequest{TaskID: "q", Message: "hi"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if p.lastReq.MaxTokens != 512 {
		t.Errorf("configured max tokens not forwarded, provider saw %d", p.lastReq.MaxTokens)
	}
}

func TestLoop_CredentialCheckedAtRunTime(t *testing.T) {
	p := &scriptedProvider{}
	loop := NewLoop(LoopConfig{
		Provider:  p,
		Tools:     tools.NewRegistry(),
		Workspace: "/tmp/ws",
		Credential: func() error {
			return errors.New("Error: ANTHROPIC_API_KEY not found in .env file")
		},
	})

	_, err := loop.Run(context.Background(), RunRequest{TaskID: "q", Message: "hi"})
	if err == nil {
		t.Fatal("expected credential error")
	}
	if !strings.Contains(err.Error(), "ANTHROPIC_API_KEY not found") {
		t.Errorf("unexpected error: %v", err)
	}
	if p.calls != 0 {
		t.Error("provider should not be called without a credential")
	}
}

func TestLoop_IterationBudget(t *testing.T) {
	// Provider that always asks for another tool call.
	endless := make([]*providers.ChatResponse, 0, 10)
	for i := 0; i < 10; i++ {
		endless = append(endless, &providers.ChatResponse{
			StopReason: "tool_use",
			ToolCalls: []providers.ToolCall{
				{ID: "t", Name: "exec", Input: map[string]interface{}{"command": "true"}},
			},
		})
	}
	p := &scriptedProvider{responses: endless}

	reg := tools.NewRegistry()
	reg.Register(&echoTool{})

	loop := NewLoop(LoopConfig{
		Provider:      p,
		Tools:         reg,
		Workspace:     "/tmp/ws",
		MaxIterations: 3,
	})

	result, err := loop.Run(context.Background(), RunRequest{TaskID: "q", Message: "loop"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Iterations != 3 {
		t.Errorf("expected 3 iterations, got %d", result.Iterations)
	}
}

func TestInstructions_WorkspaceSubstitution(t *testing.T) {
	prompt := Instructions("/srv/agent_workspace")
	if !strings.Contains(prompt, "/srv/agent_workspace") {
		t.Error("workspace path not substituted")
	}
	if strings.Contains(prompt, "{workspace}") {
		t.Error("placeholder left in prompt")
	}
}
