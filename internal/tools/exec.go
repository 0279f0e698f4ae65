package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultExecTimeout = 5 * time.Minute
	execOutputMaxChars = 50000
)

// ExecTool runs a shell command line inside the workspace and captures
// stdout, stderr and the exit status. The command runs through the shell,
// so pipelines, cd and && work the way the agent expects.
type ExecTool struct {
	workdir string
	timeout time.Duration
}

func NewExecTool(workdir string) *ExecTool {
	return &ExecTool{workdir: workdir, timeout: defaultExecTimeout}
}

// SetTimeout overrides the per-command timeout.
func (t *ExecTool) SetTimeout(d time.Duration) {
	if d > 0 {
		t.timeout = d
	}
}

func (t *ExecTool) Name() string { return "exec" }

func (t *ExecTool) Description() string {
	return "Execute a shell command in the agent workspace. Use for git, gh, docker, docker-compose and general command line work. Returns stdout, stderr and the exit status."
}

func (t *ExecTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "Shell command line to execute. Runs with the workspace as working directory.",
			},
		},
		"required": []string{"command"},
	}
}

func (t *ExecTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	command, _ := args["command"].(string)
	if strings.TrimSpace(command) == "" {
		return ErrorResult("command is required")
	}

	return runCommand(ctx, t.workdir, t.timeout, "sh", "-c", command)
}

// runCommand executes argv in dir with a timeout and formats the outcome
// for the LLM. Shared by exec, gh and docker tools.
func runCommand(ctx context.Context, dir string, timeout time.Duration, name string, argv ...string) *Result {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, argv...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return ErrorResult(fmt.Sprintf("command timed out after %s", timeout))
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return ErrorResult(fmt.Sprintf("command failed to start: %v", err)).WithError(err)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "exit status: %d\n", exitCode)
	if out := strings.TrimSpace(stdout.String()); out != "" {
		sb.WriteString("stdout:\n")
		sb.WriteString(truncateOutput(out))
		sb.WriteString("\n")
	}
	if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
		sb.WriteString("stderr:\n")
		sb.WriteString(truncateOutput(errOut))
		sb.WriteString("\n")
	}

	result := NewResult(strings.TrimSpace(sb.String()))
	if exitCode != 0 {
		result.IsError = true
	}
	return result
}

func truncateOutput(s string) string {
	if len(s) <= execOutputMaxChars {
		return s
	}
	return s[:execOutputMaxChars] + "\n... (output truncated)"
}
