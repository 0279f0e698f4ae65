package agent

import "context"

// Agent is the core abstraction for one agent invocation.
// Implemented by *Loop; extracted as an interface for testability.
type Agent interface {
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
}

// RunRequest is one query handed to the agent.
type RunRequest struct {
	TaskID  string // task identifier, used for tool rate limiting and logging
	Message string // free-text user query
}

// RunResult is the agent's terminal output for a run.
type RunResult struct {
	Content    string // joined text output
	ToolCalls  int    // number of tool invocations performed
	Iterations int    // provider round-trips
}
