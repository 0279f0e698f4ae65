// Package cmd holds the deploypilot CLI: the API server, the web chat UI,
// the console chat client and workspace management.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploypilotorg/deploypilot/internal/config"
)

var configFlag string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploypilot",
		Short: "Natural language deployment agent for GitHub and Docker",
		Long: `deploypilot turns natural language requests into gh, docker and shell
commands executed inside a sandboxed workspace, driven by an LLM agent.

Run the API server, then talk to it from the web UI or the console:

  deploypilot serve                 # start the agent API server
  deploypilot web                   # start the browser chat UI
  deploypilot chat                  # interactive console chat
  deploypilot chat -m "list repos"  # one-shot query`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file (default: config.yaml)")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(webCmd())
	cmd.AddCommand(chatCmd())
	cmd.AddCommand(workspaceCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the config path and loads it, exiting on failure.
func loadConfig() *config.Config {
	cfgPath := config.ResolvePath(configFlag)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log.Level)
	return cfg
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
