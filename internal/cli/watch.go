package cli

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stacks-cli/internal/backlog"
	"stacks-cli/internal/format"
	"stacks-cli/internal/refresh"
)

func newWatchCmd(app *App) *cobra.Command {
	var (
		all      bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the board whenever it changes",
		Long: strings.TrimSpace(`
Print the board, then print it again every time another view changes the
workspace. Changes are picked up from Redis when redis.url is set and by
polling every --interval otherwise (0 disables polling).
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if s.redis == nil && !cmd.Flags().Changed("interval") {
				interval = 5 * time.Second
			}
			follow(ctx, s, hub, app.cfg.Workspace, interval)

			var last []byte
			for {
				select {
				case <-ctx.Done():
					return nil
				case c := <-changes:
					var buf bytes.Buffer
					if err := format.Write(&buf, envelope{Data: boardOf(app.cfg.Workspace, c, all)}, app.Format, app.PrettyJSON); err != nil {
						return writeErr(cmd, err)
					}
					if bytes.Equal(buf.Bytes(), last) {
						continue
					}
					last = buf.Bytes()
					if _, err := cmd.OutOrStdout().Write(last); err != nil {
						return err
					}
				}
			}
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include workstream items")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval when Redis is not configured (default 5s)")
	return cmd
}
