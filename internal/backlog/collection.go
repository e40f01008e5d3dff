package backlog

import (
	"sort"
	"strings"

	"stacks-cli/internal/model"
)

// CompareFunc orders two items; negative means a sorts first.
type CompareFunc func(a, b model.Item) int

// Collection is the ordered set of all items of one workspace. It is a value:
// every transformation returns a new Collection and never mutates the receiver.
type Collection struct {
	items []model.Item
	part  Partitioner
	cmp   CompareFunc
}

// NewCollection sorts items with cmp (CompareDense when nil).
func NewCollection(items []model.Item, part Partitioner, cmp CompareFunc) Collection {
	if cmp == nil {
		cmp = CompareDense
	}
	out := cloneItems(items)
	sort.SliceStable(out, func(i, j int) bool { return cmp(out[i], out[j]) < 0 })
	return Collection{items: out, part: part, cmp: cmp}
}

// CompareDense orders by rank, then createdAt, then id. Unranked items sort after
// every ranked item, by createdAt.
func CompareDense(a, b model.Item) int {
	ra, oka := a.RankValue()
	rb, okb := b.RankValue()
	switch {
	case oka && !okb:
		return -1
	case !oka && okb:
		return 1
	case oka && okb && ra != rb:
		if ra < rb {
			return -1
		}
		return 1
	}
	return compareCreatedID(a, b)
}

// CompareKey orders by lexicographic rank key with the same tie-breaks as CompareDense.
func CompareKey(a, b model.Item) int {
	ka := strings.TrimSpace(a.RankKey)
	kb := strings.TrimSpace(b.RankKey)
	switch {
	case ka != "" && kb == "":
		return -1
	case ka == "" && kb != "":
		return 1
	case ka != kb:
		if ka < kb {
			return -1
		}
		return 1
	}
	return compareCreatedID(a, b)
}

func compareCreatedID(a, b model.Item) int {
	if a.CreatedAt.Before(b.CreatedAt) {
		return -1
	}
	if a.CreatedAt.After(b.CreatedAt) {
		return 1
	}
	return strings.Compare(a.ID, b.ID)
}

func (c Collection) Len() int { return len(c.items) }

func (c Collection) Partitioner() Partitioner { return c.part }

// Ordered returns a copy of all items in total order.
func (c Collection) Ordered() []model.Item { return cloneItems(c.items) }

// Segment returns Ordered filtered to one segment.
func (c Collection) Segment(seg Segment) []model.Item {
	var out []model.Item
	for _, it := range c.items {
		if c.part.SegmentOf(it) == seg {
			out = append(out, it.Clone())
		}
	}
	return out
}

// MergedView is the order shared by cross-segment drags: the primary segment, the
// other rendered segment, then excluded items in their relative order.
func (c Collection) MergedView(primary Segment) []model.Item {
	second := SegmentBacklog
	if primary == SegmentBacklog {
		second = SegmentUpNext
	}
	out := make([]model.Item, 0, len(c.items))
	out = append(out, c.Segment(primary)...)
	out = append(out, c.Segment(second)...)
	out = append(out, c.Segment(SegmentExcluded)...)
	return out
}

func (c Collection) Find(id string) (model.Item, bool) {
	if i := c.Index(id); i >= 0 {
		return c.items[i].Clone(), true
	}
	return model.Item{}, false
}

// Index returns the position of id in Ordered, or -1.
func (c Collection) Index(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

// WithOrder returns a collection holding order exactly as given.
func (c Collection) WithOrder(order []model.Item) Collection {
	return Collection{items: cloneItems(order), part: c.part, cmp: c.cmp}
}

// Replace returns a collection rebuilt from a fresh snapshot, keeping the
// partitioner and ordering.
func (c Collection) Replace(items []model.Item) Collection {
	return NewCollection(items, c.part, c.cmp)
}

// Tombstone remembers where a removed item sat so it can be put back exactly.
type Tombstone struct {
	Item   model.Item
	Index  int
	PrevID string
	NextID string
}

// Without removes id. ok is false when id is not present.
func (c Collection) Without(id string) (Collection, Tombstone, bool) {
	idx := c.Index(id)
	if idx < 0 {
		return c, Tombstone{}, false
	}
	ts := Tombstone{Item: c.items[idx].Clone(), Index: idx}
	if idx > 0 {
		ts.PrevID = c.items[idx-1].ID
	}
	if idx+1 < len(c.items) {
		ts.NextID = c.items[idx+1].ID
	}
	out := make([]model.Item, 0, len(c.items)-1)
	out = append(out, c.items[:idx]...)
	out = append(out, c.items[idx+1:]...)
	return c.WithOrder(out), ts, true
}

// Restore reinserts a tombstoned item after its former predecessor, else before its
// former successor, else at its former index. Restoring an item that is already
// present is a no-op.
func (c Collection) Restore(ts Tombstone) Collection {
	if c.Index(ts.Item.ID) >= 0 {
		return c
	}
	at := -1
	if ts.PrevID != "" {
		if i := c.Index(ts.PrevID); i >= 0 {
			at = i + 1
		}
	}
	if at < 0 && ts.NextID != "" {
		if i := c.Index(ts.NextID); i >= 0 {
			at = i
		}
	}
	if at < 0 {
		at = clamp(ts.Index, 0, len(c.items))
	}
	return c.WithOrder(insertAt(c.items, ts.Item, at))
}

func cloneItems(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

func insertAt(xs []model.Item, it model.Item, at int) []model.Item {
	at = clamp(at, 0, len(xs))
	out := make([]model.Item, 0, len(xs)+1)
	out = append(out, xs[:at]...)
	out = append(out, it)
	out = append(out, xs[at:]...)
	return out
}

func removeAt(xs []model.Item, at int) []model.Item {
	out := make([]model.Item, 0, len(xs)-1)
	out = append(out, xs[:at]...)
	out = append(out, xs[at+1:]...)
	return out
}

func indexOf(xs []model.Item, id string) int {
	for i := range xs {
		if xs[i].ID == id {
			return i
		}
	}
	return -1
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
