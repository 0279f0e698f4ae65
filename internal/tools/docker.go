package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	shellwords "github.com/mattn/go-shellwords"
)

// Builds can take a while; keep this generous.
const dockerTimeout = 10 * time.Minute

// DockerTool invokes the Docker CLI with parsed arguments.
type DockerTool struct {
	workdir string
}

func NewDockerTool(workdir string) *DockerTool {
	return &DockerTool{workdir: workdir}
}

func (t *DockerTool) Name() string { return "docker" }

func (t *DockerTool) Description() string {
	return "Run a Docker CLI subcommand, e.g. \"build -t example-app .\" or \"compose up -d\". Runs in the agent workspace."
}

func (t *DockerTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"args": map[string]interface{}{
				"type":        "string",
				"description": "Arguments passed to docker, without the leading \"docker\".",
			},
		},
		"required": []string{"args"},
	}
}

func (t *DockerTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	raw, _ := args["args"].(string)
	if strings.TrimSpace(raw) == "" {
		return ErrorResult("args is required")
	}

	argv, err := shellwords.Parse(raw)
	if err != nil {
		return ErrorResult(fmt.Sprintf("parse args: %v", err))
	}

	return runCommand(ctx, t.workdir, dockerTimeout, "docker", argv...)
}
