package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"stacks-cli/internal/backlog"
	"stacks-cli/internal/refresh"
	"stacks-cli/internal/tui"
)

func newTUICmd(app *App) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval when Redis is not configured (default 5s)")
	return cmd
}

func runTUI(cmd *cobra.Command, app *App, interval time.Duration) error {
	ctx := cmd.Context()
	hub := refresh.NewHub()
	changes := make(chan backlog.Collection, 1)
	s, err := openSession(cmd, app, sessionOptions{notifier: hub, onChange: latest(changes)})
	if err != nil {
		return writeErr(cmd, err)
	}
	defer s.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if interval <= 0 && s.redis == nil {
		interval = 5 * time.Second
	}
	follow(ctx, s, hub, app.cfg.Workspace, interval)
	return tui.Run(ctx, s.engine, changes, app.cfg.Workspace)
}
