package backlog

import (
	"strings"

	"stacks-cli/internal/model"
)

type Segment string

const (
	SegmentUpNext   Segment = "up-next"
	SegmentBacklog  Segment = "backlog"
	SegmentExcluded Segment = "excluded"
)

func ParseSegment(s string) (Segment, bool) {
	switch Segment(strings.ToLower(strings.TrimSpace(s))) {
	case SegmentUpNext:
		return SegmentUpNext, true
	case SegmentBacklog:
		return SegmentBacklog, true
	case SegmentExcluded:
		return SegmentExcluded, true
	}
	return "", false
}

// DefaultWorkstreamStatuses are the statuses owned by the workstream board.
func DefaultWorkstreamStatuses() []model.Status {
	return []model.Status{
		model.StatusReview,
		model.StatusQA1,
		model.StatusQA2,
		model.StatusBuilt,
		model.StatusDone,
		model.StatusShipped,
	}
}

// Partitioner maps an item to the segment it renders in. The zero value has an
// empty workstream set, so nothing is excluded.
type Partitioner struct {
	workstream map[model.Status]bool
}

func NewPartitioner(workstream []model.Status) Partitioner {
	p := Partitioner{workstream: map[model.Status]bool{}}
	for _, s := range workstream {
		s = model.Status(strings.TrimSpace(string(s)))
		if s == "" {
			continue
		}
		p.workstream[s] = true
	}
	return p
}

func DefaultPartitioner() Partitioner {
	return NewPartitioner(DefaultWorkstreamStatuses())
}

// SegmentOf is pure and total; status is the only input.
func (p Partitioner) SegmentOf(it model.Item) Segment {
	return p.SegmentOfStatus(it.Status)
}

func (p Partitioner) SegmentOfStatus(s model.Status) Segment {
	switch s {
	case model.StatusUpNext, model.StatusTodo:
		return SegmentUpNext
	}
	if p.workstream[s] {
		return SegmentExcluded
	}
	return SegmentBacklog
}
