package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deploypilotorg/deploypilot/internal/client"
	"github.com/deploypilotorg/deploypilot/internal/config"
	"github.com/deploypilotorg/deploypilot/internal/task"
)

func chatCmd() *cobra.Command {
	var (
		message string
		apiURL  string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the deployment agent from the console",
		Long: `Chat with the deployment agent interactively or send a one-shot query.

Examples:
  deploypilot chat                          # interactive REPL
  deploypilot chat -m "list my repos"       # one-shot query`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if apiURL != "" {
				cfg.Web.APIBaseURL = apiURL
			}
			runChat(cfg, message)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "one-shot query (omit for interactive mode)")
	cmd.Flags().StringVar(&apiURL, "api", "", "agent server URL (overrides config)")
	return cmd
}

func runChat(cfg *config.Config, message string) {
	ctx := context.Background()
	api := client.New(cfg.Web.APIBaseURL, cfg.Server.Token)

	if !api.Online(ctx) {
		fmt.Fprintf(os.Stderr, "Error: could not connect to the agent server at %s\n", cfg.Web.APIBaseURL)
		fmt.Fprintln(os.Stderr, "Start it first:  deploypilot serve")
		os.Exit(1)
	}

	if message != "" {
		reply, err := askOnce(ctx, api, message)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(reply)
		return
	}

	fmt.Fprintf(os.Stderr, "\nDeployment Pilot console (server: %s)\n", cfg.Web.APIBaseURL)
	fmt.Fprintf(os.Stderr, "Type \"exit\" to quit\n\n")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Fprintln(os.Stderr, "Goodbye!")
			return
		}

		reply, err := askOnce(ctx, api, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", reply)
	}
}

// askOnce submits one query and waits for its terminal outcome.
func askOnce(ctx context.Context, api *client.Client, text string) (string, error) {
	snap, err := api.Ask(ctx, text)
	if errors.Is(err, client.ErrPollTimeout) {
		return "", errors.New("timed out waiting for response from agent")
	}
	if err != nil {
		return "", err
	}
	if snap.Status == task.StatusNotFound {
		return "", errors.New("query not found on the agent server")
	}
	return snap.Result, nil
}
