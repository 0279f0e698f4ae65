package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	shellwords "github.com/mattn/go-shellwords"
)

const ghTimeout = 2 * time.Minute

// GhTool invokes the GitHub CLI with parsed arguments. No shell is
// involved, so quoting in PR titles and bodies survives intact.
type GhTool struct {
	workdir string
}

func NewGhTool(workdir string) *GhTool {
	return &GhTool{workdir: workdir}
}

func (t *GhTool) Name() string { return "gh" }

func (t *GhTool) Description() string {
	return "Run a GitHub CLI (gh) subcommand, e.g. \"repo clone deploypilotorg/example-repo\" or \"pr create --title 'Fix' --body 'Details'\". The CLI is already authenticated."
}

func (t *GhTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"args": map[string]interface{}{
				"type":        "string",
				"description": "Arguments passed to gh, without the leading \"gh\".",
			},
		},
		"required": []string{"args"},
	}
}

func (t *GhTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	raw, _ := args["args"].(string)
	if strings.TrimSpace(raw) == "" {
		return ErrorResult("args is required")
	}

	argv, err := shellwords.Parse(raw)
	if err != nil {
		return ErrorResult(fmt.Sprintf("parse args: %v", err))
	}

	return runCommand(ctx, t.workdir, ghTimeout, "gh", argv...)
}
