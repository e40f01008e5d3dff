package backlog

import "stacks-cli/internal/model"

// StatusPolicy picks the status an item takes when it is dragged into another segment.
type StatusPolicy interface {
	StatusFor(it model.Item, target Segment) model.Status
}

// DefaultPolicy sends items entering the backlog to BacklogStatus (in-progress
// when empty). Entering up-next always yields up-next.
type DefaultPolicy struct {
	BacklogStatus model.Status
}

func (p DefaultPolicy) StatusFor(it model.Item, target Segment) model.Status {
	switch target {
	case SegmentUpNext:
		return model.StatusUpNext
	case SegmentBacklog:
		if p.BacklogStatus != "" {
			return p.BacklogStatus
		}
		return model.StatusInProgress
	}
	return it.Status
}

// PolicyFunc adapts a function to StatusPolicy.
type PolicyFunc func(it model.Item, target Segment) model.Status

func (f PolicyFunc) StatusFor(it model.Item, target Segment) model.Status { return f(it, target) }
