// Package refresh carries the "collection changed" signal between views that
// share a workspace. Views never share memory: a signal only tells a subscriber
// to refetch.
package refresh

import (
	"context"
	"sync"
	"time"
)

type Signal struct {
	WorkspaceID string    `json:"workspaceId"`
	Origin      string    `json:"origin"`
	Seq         int64     `json:"seq"`
	At          time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, sig Signal) error
}

// Hub fans signals out to in-process subscribers. Slow subscribers drop signals
// rather than block the publisher; one pending signal is enough to trigger a refetch.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Signal]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[chan Signal]struct{}{}}
}

func (h *Hub) Notify(ctx context.Context, sig Signal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[sig.WorkspaceID] {
		select {
		case ch <- sig:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of signals for workspaceID and a func that ends the
// subscription and closes the channel.
func (h *Hub) Subscribe(workspaceID string) (<-chan Signal, func()) {
	ch := make(chan Signal, 1)
	h.mu.Lock()
	if h.subs[workspaceID] == nil {
		h.subs[workspaceID] = map[chan Signal]struct{}{}
	}
	h.subs[workspaceID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[workspaceID], ch)
			if len(h.subs[workspaceID]) == 0 {
				delete(h.subs, workspaceID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Multi notifies every notifier and returns the first error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, sig Signal) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, sig); err != nil && first == nil {
			first = err
		}
	}
	return first
}
