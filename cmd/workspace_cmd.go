package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deploypilotorg/deploypilot/internal/client"
	"github.com/deploypilotorg/deploypilot/internal/config"
	"github.com/deploypilotorg/deploypilot/internal/workspace"
)

func workspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Inspect or reset the agent workspace",
	}
	cmd.AddCommand(workspaceInfoCmd())
	cmd.AddCommand(workspaceResetCmd())
	return cmd
}

func workspaceInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the workspace file tree",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			runWorkspaceInfo(cfg, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func runWorkspaceInfo(cfg *config.Config, jsonOutput bool) {
	api := client.New(cfg.Web.APIBaseURL, cfg.Server.Token)
	info, err := api.WorkspaceInfo(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		out, _ := json.MarshalIndent(info, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("Workspace: %s\n", info.WorkspacePath)
	if !info.WorkspaceExists {
		fmt.Println("(does not exist)")
		return
	}
	if len(info.Files) == 0 {
		fmt.Println("(empty)")
		return
	}
	printTree(info.Files, 0)
}

func printTree(nodes []workspace.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		marker := ""
		if n.Type == "directory" {
			marker = "/"
		}
		fmt.Printf("%s%s%s\n", indent, n.Name, marker)
		printTree(n.Children, depth+1)
	}
}

func workspaceResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all workspace files and recreate it empty",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			runWorkspaceReset(cfg, force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")
	return cmd
}

func runWorkspaceReset(cfg *config.Config, force bool) {
	if !force {
		fmt.Fprint(os.Stderr, "This deletes every file in the workspace. Continue? [y/N] ")
		var answer string
		fmt.Scanln(&answer)
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return
		}
	}

	api := client.New(cfg.Web.APIBaseURL, cfg.Server.Token)
	status, message, err := api.ResetWorkspace(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if status != "success" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		os.Exit(1)
	}
	fmt.Println(message)
}
