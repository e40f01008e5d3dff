package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"stacks-cli/internal/backlog"
	"stacks-cli/internal/model"
	"stacks-cli/internal/refresh"
	"stacks-cli/internal/remote"
	"stacks-cli/internal/store"
)

// openStore returns the remote store when a remote URL is configured, else the
// local SQLite store of the workspace (created on first use).
func openStore(ctx context.Context, app *App) (store.ItemStore, error) {
	if u := strings.TrimSpace(app.cfg.Remote.URL); u != "" {
		return remote.NewClient(remote.Config{
			BaseURL: u,
			Timeout: app.cfg.Remote.Timeout,
			Logger:  app.logger,
		})
	}
	dir, err := app.cfg.StoreDir()
	if err != nil {
		return nil, err
	}
	s := store.SQLite{Dir: dir}
	if err := s.EnsureWorkspace(ctx, app.cfg.Workspace); err != nil {
		return nil, err
	}
	return s, nil
}

// openRedis returns the Redis refresh bridge, or nil when none is configured.
func openRedis(app *App) (*refresh.Redis, error) {
	u := strings.TrimSpace(app.cfg.Redis.URL)
	if u == "" {
		return nil, nil
	}
	return refresh.NewRedis(u, app.cfg.Redis.Channel, app.logger)
}

func partitioner(app *App) backlog.Partitioner {
	statuses := make([]model.Status, 0, len(app.cfg.Policy.WorkstreamStatuses))
	for _, s := range app.cfg.Policy.WorkstreamStatuses {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, model.Status(s))
		}
	}
	return backlog.NewPartitioner(statuses)
}

func planner(app *App) backlog.Planner {
	return backlog.Planner{
		Policy: backlog.DefaultPolicy{BacklogStatus: model.Status(strings.TrimSpace(app.cfg.Policy.BacklogStatus))},
	}
}

type session struct {
	store  store.ItemStore
	engine *backlog.Engine
	redis  *refresh.Redis
}

func (s *session) Close() {
	s.engine.Close()
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

type sessionOptions struct {
	notifier refresh.Notifier
	onChange func(backlog.Collection)
}

// openSession opens the store, builds an engine over it and loads the workspace.
func openSession(cmd *cobra.Command, app *App, opts sessionOptions) (*session, error) {
	ctx := cmd.Context()
	st, err := openStore(ctx, app)
	if err != nil {
		return nil, err
	}
	assigner, err := backlog.NewAssigner(app.cfg.Rank.Strategy)
	if err != nil {
		return nil, err
	}
	r, err := openRedis(app)
	if err != nil {
		return nil, err
	}
	notifier := opts.notifier
	if r != nil {
		notifier = refresh.Multi{notifier, r}
	}
	part := partitioner(app)
	eng := backlog.NewEngine(backlog.EngineOptions{
		WorkspaceID: app.cfg.Workspace,
		Store:       st,
		Assigner:    assigner,
		Planner:     planner(app),
		Partitioner: &part,
		Notifier:    notifier,
		Logger:      app.logger,
		OnChange:    opts.onChange,
	})
	s := &session{store: st, engine: eng, redis: r}
	if err := eng.Load(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func creator(st store.ItemStore) (store.Creator, error) {
	c, ok := st.(store.Creator)
	if !ok {
		return nil, errors.New("store does not accept new items")
	}
	return c, nil
}
