package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/deploypilotorg/deploypilot/internal/agent"
	"github.com/deploypilotorg/deploypilot/internal/config"
	"github.com/deploypilotorg/deploypilot/internal/gateway"
	"github.com/deploypilotorg/deploypilot/internal/httpapi"
	"github.com/deploypilotorg/deploypilot/internal/providers"
	"github.com/deploypilotorg/deploypilot/internal/task"
	"github.com/deploypilotorg/deploypilot/internal/tools"
	"github.com/deploypilotorg/deploypilot/internal/workspace"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent API server",
		Long: `Run the agent API server. Queries are accepted on POST /query and
processed in the background; poll GET /result/{query_id} for the outcome.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws := workspace.NewManager(cfg.Workspace.Path)
	if err := ws.Ensure(); err != nil {
		return fmt.Errorf("prepare workspace: %w", err)
	}

	store, shared, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	registry := tools.NewRegistry()
	registry.Register(tools.NewGhTool(ws.Root()))
	registry.Register(tools.NewDockerTool(ws.Root()))
	registry.Register(tools.NewExecTool(ws.Root()))
	if cfg.Limits.ToolCallsPerTask > 0 {
		registry.SetRateLimiter(tools.NewRateLimiter(cfg.Limits.ToolCallsPerTask, cfg.Limits.ToolWindow()))
	}

	provider := providers.NewAnthropicProvider(cfg.Agent.APIKey, cfg.Agent.BaseURL, cfg.Agent.Model)

	loop := agent.NewLoop(agent.LoopConfig{
		Provider:      provider,
		Tools:         registry,
		Workspace:     ws.Root(),
		MaxIterations: cfg.Agent.MaxIterations,
		MaxTokens:     cfg.Agent.MaxTokens,
		Credential:    anthropicCredentialCheck,
	})

	service := gateway.New(gateway.Config{
		Store:            store,
		Agent:            loop,
		Workspace:        ws,
		SubmitsPerMinute: cfg.Limits.SubmitsPerMinute,
		SharedStore:      shared,
	})
	defer service.Close()

	server := httpapi.NewServer(service, cfg.Server.Addr, cfg.Server.Token)

	watcher := startConfigWatcher(service)
	if watcher != nil {
		defer watcher.Stop()
	}

	slog.Info("deploypilot starting",
		"addr", cfg.Server.Addr,
		"workspace", ws.Root(),
		"tools", registry.List(),
		"store", cfg.Store.Backend,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildStore selects the task registry backend. The second return reports
// whether the store is shared between processes.
func buildStore(ctx context.Context, cfg *config.Config) (task.Store, bool, error) {
	switch cfg.Store.Backend {
	case "redis":
		store, err := task.NewRedisStoreFromURL(ctx, cfg.Store.RedisURL)
		if err != nil {
			return nil, false, fmt.Errorf("connect task store: %w", err)
		}
		return store, true, nil
	default:
		return task.NewMemoryStore(), false, nil
	}
}

// anthropicCredentialCheck runs per query, so a key added to the
// environment after startup is picked up without a restart.
func anthropicCredentialCheck() error {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return errors.New("Error: ANTHROPIC_API_KEY not found in .env file")
	}
	return nil
}

// startConfigWatcher hot-applies limit changes. A failure to watch is not
// fatal: the server runs with the boot-time config.
func startConfigWatcher(service *gateway.Service) *config.Watcher {
	cfgPath := config.ResolvePath(configFlag)
	if _, err := os.Stat(cfgPath); err != nil {
		return nil
	}

	watcher, err := config.NewWatcher(cfgPath)
	if err != nil {
		slog.Warn("config watcher unavailable", "error", err)
		return nil
	}
	watcher.OnChange(func(cfg *config.Config) {
		service.SetSubmitLimit(cfg.Limits.SubmitsPerMinute)
		slog.Info("submission limit updated", "per_minute", cfg.Limits.SubmitsPerMinute)
	})
	if err := watcher.Start(); err != nil {
		slog.Warn("config watcher failed to start", "error", err)
		watcher.Stop()
		return nil
	}
	return watcher
}
