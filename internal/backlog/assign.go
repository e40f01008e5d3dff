package backlog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"stacks-cli/internal/model"
	"stacks-cli/internal/rank"
)

// Diff is the outcome of assigning order keys to a new total order: the order with
// keys applied, the items whose persisted fields change, and one patch per changed item.
type Diff struct {
	Order   []model.Item
	Changed []model.Item
	Patches map[string]model.Patch
}

func (d Diff) Empty() bool { return len(d.Changed) == 0 }

// Assigner converts a new total order into order keys and diffs them against the
// keys the items carried before.
type Assigner interface {
	Name() string
	Compare(a, b model.Item) int
	Assign(order []model.Item, change *StatusChange) (Diff, error)
}

const (
	StrategyDense = "dense"
	StrategyKey   = "key"
)

func NewAssigner(strategy string) (Assigner, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyDense:
		return DenseAssigner{}, nil
	case StrategyKey:
		return KeyAssigner{}, nil
	}
	return nil, fmt.Errorf("unknown rank strategy: %s", strategy)
}

// DenseAssigner numbers the order 1..n. A move from index i to j rewrites every
// item between them.
type DenseAssigner struct{}

func (DenseAssigner) Name() string { return StrategyDense }

func (DenseAssigner) Compare(a, b model.Item) int { return CompareDense(a, b) }

func (DenseAssigner) Assign(order []model.Item, change *StatusChange) (Diff, error) {
	d := Diff{Order: make([]model.Item, len(order)), Patches: map[string]model.Patch{}}
	for i := range order {
		it := order[i].Clone()
		n := i + 1
		prev, ranked := it.RankValue()
		it.Rank = model.IntPtr(n)
		d.Order[i] = it

		var p model.Patch
		if !ranked || prev != n {
			p.Rank = model.IntPtr(n)
		}
		if change != nil && change.ItemID == it.ID {
			p.Status = model.StatusPtr(change.To)
		}
		if !p.Empty() {
			d.Changed = append(d.Changed, it.Clone())
			d.Patches[it.ID] = p
		}
	}
	return d, nil
}

// KeyAssigner keeps the longest run of items whose lexicographic keys already
// increase along the new order and re-keys only the others, between their kept
// neighbours. A single move costs one write unless neighbouring keys leave no room.
type KeyAssigner struct{}

func (KeyAssigner) Name() string { return StrategyKey }

func (KeyAssigner) Compare(a, b model.Item) int { return CompareKey(a, b) }

func (KeyAssigner) Assign(order []model.Item, change *StatusChange) (Diff, error) {
	n := len(order)
	keys := make([]string, n)
	for i := range order {
		keys[i] = rank.Normalize(order[i].RankKey)
	}
	keep := increasingKeys(keys)
	taken := map[string]bool{}
	for i := range keys {
		if keep[i] {
			taken[keys[i]] = true
		}
	}

	next := append([]string(nil), keys...)
	for i := 0; i < n; {
		if keep[i] {
			i++
			continue
		}
		j := i
		for j < n && !keep[j] {
			j++
		}
		lower := ""
		if i > 0 {
			lower = next[i-1]
		}
		for {
			upper := ""
			if j < n {
				upper = next[j]
			}
			ks, err := rank.Spread(taken, lower, upper, j-i)
			if err == nil {
				for k := range ks {
					next[i+k] = ks[k]
					taken[ks[k]] = true
				}
				break
			}
			if j >= n || !(errors.Is(err, rank.ErrNoSpace) || errors.Is(err, rank.ErrOrder)) {
				return Diff{}, err
			}
			// No room below the upper neighbour: pull it into the run.
			keep[j] = false
			delete(taken, next[j])
			for j < n && !keep[j] {
				j++
			}
		}
		i = j
	}

	d := Diff{Order: make([]model.Item, n), Patches: map[string]model.Patch{}}
	for i := range order {
		it := order[i].Clone()
		it.RankKey = next[i]
		d.Order[i] = it

		var p model.Patch
		if next[i] != keys[i] {
			p.RankKey = model.StringPtr(next[i])
		}
		if change != nil && change.ItemID == it.ID {
			p.Status = model.StatusPtr(change.To)
		}
		if !p.Empty() {
			d.Changed = append(d.Changed, it.Clone())
			d.Patches[it.ID] = p
		}
	}
	return d, nil
}

// increasingKeys marks a longest strictly increasing subsequence of non-empty keys.
func increasingKeys(keys []string) []bool {
	keep := make([]bool, len(keys))
	var tails []int // tails[l] = index of the smallest tail of an increasing run of length l+1
	parent := make([]int, len(keys))
	for i, k := range keys {
		parent[i] = -1
		if k == "" {
			continue
		}
		l := sort.Search(len(tails), func(x int) bool { return keys[tails[x]] >= k })
		if l > 0 {
			parent[i] = tails[l-1]
		}
		if l == len(tails) {
			tails = append(tails, i)
		} else {
			tails[l] = i
		}
	}
	if len(tails) == 0 {
		return keep
	}
	for i := tails[len(tails)-1]; i >= 0; i = parent[i] {
		keep[i] = true
	}
	return keep
}
