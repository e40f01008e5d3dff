package backlog

import (
	"testing"
	"time"

	"stacks-cli/internal/model"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func item(id string, rank int, status model.Status) model.Item {
	it := model.Item{
		ID:          id,
		WorkspaceID: "ws",
		Kind:        model.KindStory,
		Title:       "Item " + id,
		Priority:    model.PriorityMedium,
		Status:      status,
		CreatedAt:   t0,
		UpdatedAt:   t0,
	}
	if rank > 0 {
		it.Rank = model.IntPtr(rank)
	}
	return it
}

func keyed(id, key string, status model.Status) model.Item {
	it := item(id, 0, status)
	it.RankKey = key
	return it
}

func ids(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func ranks(items []model.Item) map[string]int {
	out := map[string]int{}
	for _, it := range items {
		if r, ok := it.RankValue(); ok {
			out[it.ID] = r
		}
	}
	return out
}

func sameIDs(t *testing.T, label string, got []model.Item, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("%s: got %v want %v", label, g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("%s: got %v want %v", label, g, want)
		}
	}
}
