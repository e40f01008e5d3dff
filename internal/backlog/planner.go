package backlog

import (
	"errors"
	"fmt"

	"stacks-cli/internal/model"
)

var ErrPolicyStatus = errors.New("status policy picked a status outside the target segment")

// StatusChange records a status mutation carried by a plan.
type StatusChange struct {
	ItemID string       `json:"itemId"`
	From   model.Status `json:"from"`
	To     model.Status `json:"to"`
}

// Plan is the result of planning a gesture: the new total order and the status
// change it implies, if any. A Noop plan has no order and must not be persisted.
type Plan struct {
	NewOrder     []model.Item  `json:"newOrder,omitempty"`
	StatusChange *StatusChange `json:"statusChange,omitempty"`
	Noop         bool          `json:"noop"`
}

func noop() Plan { return Plan{Noop: true} }

// Planner turns gestures into plans. Primary is the segment rendered first
// (up-next when empty).
type Planner struct {
	Policy  StatusPolicy
	Primary Segment
}

func (p Planner) primary() Segment {
	if p.Primary == SegmentBacklog {
		return SegmentBacklog
	}
	return SegmentUpNext
}

func (p Planner) policy() StatusPolicy {
	if p.Policy == nil {
		return DefaultPolicy{}
	}
	return p.Policy
}

func (p Planner) secondary() Segment {
	if p.primary() == SegmentUpNext {
		return SegmentBacklog
	}
	return SegmentUpNext
}

// PlanDrag plans dropping activeID onto overID. Missing or excluded items, and
// dropping an item onto itself, yield a no-op.
func (p Planner) PlanDrag(c Collection, activeID, overID string) (Plan, error) {
	if activeID == "" || overID == "" || activeID == overID {
		return noop(), nil
	}
	active, ok := c.Find(activeID)
	if !ok {
		return noop(), nil
	}
	over, ok := c.Find(overID)
	if !ok {
		return noop(), nil
	}

	part := c.Partitioner()
	src := part.SegmentOf(active)
	dst := part.SegmentOf(over)
	if src == SegmentExcluded || dst == SegmentExcluded {
		return noop(), nil
	}

	segs := map[Segment][]model.Item{
		SegmentUpNext:  c.Segment(SegmentUpNext),
		SegmentBacklog: c.Segment(SegmentBacklog),
	}

	var change *StatusChange
	if src == dst {
		arr := segs[src]
		from := indexOf(arr, activeID)
		to := indexOf(arr, overID)
		if from == to {
			return noop(), nil
		}
		moved := arr[from]
		segs[src] = insertAt(removeAt(arr, from), moved, to)
	} else {
		next := p.policy().StatusFor(active, dst)
		if part.SegmentOfStatus(next) != dst {
			return Plan{}, fmt.Errorf("%w: %q", ErrPolicyStatus, next)
		}
		srcArr := segs[src]
		srcArr = removeAt(srcArr, indexOf(srcArr, activeID))
		dstArr := segs[dst]
		at := indexOf(dstArr, overID)
		// Moving forward in merged order lands after the target, backward lands before.
		if src == p.primary() {
			at++
		}
		moved := active.Clone()
		moved.Status = next
		segs[src] = srcArr
		segs[dst] = insertAt(dstArr, moved, at)
		change = &StatusChange{ItemID: activeID, From: active.Status, To: next}
	}

	order := make([]model.Item, 0, c.Len())
	order = append(order, segs[p.primary()]...)
	order = append(order, segs[p.secondary()]...)
	order = append(order, c.Segment(SegmentExcluded)...)
	return Plan{NewOrder: order, StatusChange: change}, nil
}
