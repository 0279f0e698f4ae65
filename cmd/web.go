package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/deploypilotorg/deploypilot/internal/client"
	"github.com/deploypilotorg/deploypilot/internal/config"
	"github.com/deploypilotorg/deploypilot/internal/webui"
)

func webCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Run the browser chat UI",
		Long: `Run the browser chat UI. It talks to a running API server (start one
with "deploypilot serve") and keeps a transcript per browser session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if addr != "" {
				cfg.Web.Addr = addr
			}
			return runWeb(cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runWeb(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.Web.APIBaseURL, cfg.Server.Token)
	if !api.Online(ctx) {
		fmt.Fprintf(os.Stderr, "Warning: agent server at %s is not responding; start it with \"deploypilot serve\"\n", cfg.Web.APIBaseURL)
	}

	history, err := buildHistory(cfg)
	if err != nil {
		return err
	}
	defer history.Close()

	server := webui.NewServer(api, history, cfg.Web.Addr)

	slog.Info("web ui starting", "addr", cfg.Web.Addr, "api", cfg.Web.APIBaseURL)

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

// buildHistory picks the transcript store: SQLite when a path is
// configured, otherwise in-memory for the life of the process.
func buildHistory(cfg *config.Config) (webui.HistoryStore, error) {
	if cfg.Web.HistoryDB == "" {
		return webui.NewMemoryHistory(), nil
	}
	history, err := webui.NewSQLiteHistory(cfg.Web.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open chat history: %w", err)
	}
	return history, nil
}
