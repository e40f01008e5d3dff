package cli

import (
	"context"
	"time"

	"stacks-cli/internal/backlog"
	"stacks-cli/internal/refresh"
)

const pollOrigin = "poll"

// latest returns an OnChange callback that keeps only the newest collection in
// ch. It never blocks the engine.
func latest(ch chan backlog.Collection) func(backlog.Collection) {
	return func(c backlog.Collection) {
		for {
			select {
			case ch <- c:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}
}

// follow keeps the session engine in step with other views until ctx is done.
// Signals arrive through hub, from Redis when configured and from a poll ticker
// when interval is positive.
func follow(ctx context.Context, s *session, hub *refresh.Hub, workspace string, interval time.Duration) {
	signals, cancel := hub.Subscribe(workspace)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	if s.redis != nil {
		go s.redis.Listen(ctx, hub)
	}
	if interval > 0 {
		go func() {
			t := time.NewTicker(interval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-t.C:
					_ = hub.Notify(ctx, refresh.Signal{WorkspaceID: workspace, Origin: pollOrigin, At: now.UTC()})
				}
			}
		}()
	}
	go func() { _ = s.engine.Follow(ctx, signals) }()
}
