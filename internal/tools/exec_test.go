package tools

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExecTool_CapturesStdout(t *testing.T) {
	tool := NewExecTool(t.TempDir())

	result := tool.Execute(context.Background(), map[string]interface{}{
		"command": "echo hello",
	})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "exit status: 0") {
		t.Errorf("missing exit status: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "hello") {
		t.Errorf("missing stdout: %s", result.ForLLM)
	}
}

func TestExecTool_NonZeroExit(t *testing.T) {
	tool := NewExecTool(t.TempDir())

	result := tool.Execute(context.Background(), map[string]interface{}{
		"command": "ls /definitely-not-a-real-path-12345",
	})
	if !result.IsError {
		t.Error("expected error result for failing command")
	}
	if !strings.Contains(result.ForLLM, "stderr:") {
		t.Errorf("missing stderr section: %s", result.ForLLM)
	}
}

func TestExecTool_RunsInWorkdir(t *testing.T) {
	dir := t.TempDir()
	tool := NewExecTool(dir)

	result := tool.Execute(context.Background(), map[string]interface{}{
		"command": "pwd",
	})
	if !strings.Contains(result.ForLLM, dir) {
		t.Errorf("expected workdir %s in output: %s", dir, result.ForLLM)
	}
}

func TestExecTool_MissingCommand(t *testing.T) {
	tool := NewExecTool(t.TempDir())

	result := tool.Execute(context.Background(), map[string]interface{}{})
	if !result.IsError {
		t.Error("expected error for missing command")
	}
}

func TestExecTool_Timeout(t *testing.T) {
	tool := NewExecTool(t.TempDir())
	tool.SetTimeout(100 * time.Millisecond)

	result := tool.Execute(context.Background(), map[string]interface{}{
		"command": "sleep 5",
	})
	if !result.IsError {
		t.Error("expected timeout error")
	}
	if !strings.Contains(result.ForLLM, "timed out") {
		t.Errorf("expected timeout message: %s", result.ForLLM)
	}
}

func TestGhTool_BadQuoting(t *testing.T) {
	tool := NewGhTool(t.TempDir())

	result := tool.Execute(context.Background(), map[string]interface{}{
		"args": `pr create --title "unterminated`,
	})
	if !result.IsError {
		t.Error("expected parse error for unterminated quote")
	}
}

func TestGhTool_MissingArgs(t *testing.T) {
	tool := NewGhTool(t.TempDir())

	result := tool.Execute(context.Background(), map[string]interface{}{"args": "  "})
	if !result.IsError {
		t.Error("expected error for empty args")
	}
}
