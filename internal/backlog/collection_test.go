package backlog

import (
	"testing"
	"time"

	"stacks-cli/internal/model"
)

func TestCollectionTotalOrder(t *testing.T) {
	t.Parallel()

	late := item("late", 0, model.StatusTodo)
	late.CreatedAt = t0.Add(time.Hour)
	early := item("early", 0, model.StatusTodo)
	tieB := item("b", 2, model.StatusTodo)
	tieA := item("a", 2, model.StatusTodo)

	c := NewCollection([]model.Item{late, tieB, early, item("first", 1, model.StatusInProgress), tieA}, DefaultPartitioner(), nil)
	sameIDs(t, "ordered", c.Ordered(), "first", "a", "b", "early", "late")
}

func TestCollectionSegments(t *testing.T) {
	t.Parallel()

	c := NewCollection([]model.Item{
		item("a", 1, model.StatusInProgress),
		item("b", 2, model.StatusUpNext),
		item("c", 3, model.StatusDone),
		item("d", 4, model.StatusTodo),
		item("e", 5, model.StatusDeepBacklog),
	}, DefaultPartitioner(), nil)

	sameIDs(t, "up-next", c.Segment(SegmentUpNext), "b", "d")
	sameIDs(t, "backlog", c.Segment(SegmentBacklog), "a", "e")
	sameIDs(t, "excluded", c.Segment(SegmentExcluded), "c")
	sameIDs(t, "merged", c.MergedView(SegmentUpNext), "b", "d", "a", "e", "c")
	sameIDs(t, "merged backlog first", c.MergedView(SegmentBacklog), "a", "e", "b", "d", "c")
}

func TestCollectionIsAValue(t *testing.T) {
	t.Parallel()

	c := NewCollection([]model.Item{item("a", 1, model.StatusTodo)}, DefaultPartitioner(), nil)
	got := c.Ordered()
	got[0].Title = "changed"
	*got[0].Rank = 7
	it, _ := c.Find("a")
	if it.Title != "Item a" || *it.Rank != 1 {
		t.Fatalf("collection mutated through Ordered: %+v", it)
	}
}

func TestWithoutRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewCollection([]model.Item{
		item("a", 1, model.StatusTodo),
		item("b", 2, model.StatusTodo),
		item("c", 3, model.StatusTodo),
	}, DefaultPartitioner(), nil)

	tests := []struct {
		name  string
		id    string
		after func(Collection) Collection
		want  []string
	}{
		{name: "middle", id: "b", want: []string{"a", "b", "c"}},
		{name: "head", id: "a", want: []string{"a", "b", "c"}},
		{name: "tail", id: "c", want: []string{"a", "b", "c"}},
		{
			name: "predecessor gone",
			id:   "b",
			after: func(c Collection) Collection {
				next, _, _ := c.Without("a")
				return next
			},
			want: []string{"b", "c"},
		},
		{
			name: "both neighbours gone",
			id:   "b",
			after: func(c Collection) Collection {
				next, _, _ := c.Without("a")
				next, _, _ = next.Without("c")
				return next
			},
			want: []string{"b"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			next, ts, ok := c.Without(tt.id)
			if !ok {
				t.Fatalf("Without(%s) not found", tt.id)
			}
			if next.Index(tt.id) >= 0 {
				t.Fatalf("%s still present", tt.id)
			}
			if tt.after != nil {
				next = tt.after(next)
			}
			sameIDs(t, "restored", next.Restore(ts).Ordered(), tt.want...)
		})
	}

	if _, _, ok := c.Without("missing"); ok {
		t.Fatalf("Without(missing) reported ok")
	}
}
