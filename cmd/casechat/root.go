package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/casechat-backend/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "casechat",
	Short: "Case document chat backend",
	Long: `casechat stores case PDFs, indexes their text for retrieval and answers
questions about a case in a chat session.

Configuration comes from the environment, optionally overlaid by the YAML
file named in CASECHAT_CONFIG.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func buildApp(ctx context.Context, comps app.Components) (*app.App, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, comps)
}
