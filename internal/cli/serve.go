package cli

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"stacks-cli/internal/refresh"
	"stacks-cli/internal/store"
	"stacks-cli/internal/web"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local store over HTTP for other views",
		Example: strings.TrimSpace(`
stacks serve --addr :8080
STACKS_REDIS_URL=redis://localhost:6379/0 stacks serve
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfg.Remote.URL != "" {
				return writeErr(cmd, errUsage("serve always uses the local store; drop --remote"))
			}
			dir, err := app.cfg.StoreDir()
			if err != nil {
				return writeErr(cmd, err)
			}
			st := store.SQLite{Dir: dir}
			if err := st.EnsureWorkspace(cmd.Context(), app.cfg.Workspace); err != nil {
				return writeErr(cmd, err)
			}
			r, err := openRedis(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			var notifier refresh.Notifier
			if r != nil {
				defer r.Close()
				notifier = r
			}

			listen := strings.TrimSpace(addr)
			if listen == "" {
				listen = app.cfg.Serve.Addr
			}
			e := web.New(web.Options{Store: st, Notifier: notifier, Logger: app.logger})

			ctx := cmd.Context()
			errc := make(chan error, 1)
			go func() { errc <- e.Start(listen) }()
			app.logger.WithFields(log.Fields{"addr": listen, "dir": dir}).Info("serving")

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return writeErr(cmd, err)
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return e.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: serve.addr, :8080)")
	return cmd
}
