package backlog

import (
	"errors"
	"fmt"
	"strings"

	"stacks-cli/internal/model"
)

var (
	ErrInvalidAction = errors.New("invalid action")
	ErrUnknownAction = errors.New("unknown action")
)

type Action string

const (
	ActionMoveToTop         Action = "top"
	ActionMoveToBottom      Action = "bottom"
	ActionMoveUp            Action = "up"
	ActionMoveDown          Action = "down"
	ActionMoveBelowTheLine  Action = "below-line"
	ActionMoveToUpNext      Action = "up-next"
	ActionMoveToDeepBacklog Action = "deep-backlog"
)

func Actions() []Action {
	return []Action{
		ActionMoveToTop,
		ActionMoveToBottom,
		ActionMoveUp,
		ActionMoveDown,
		ActionMoveBelowTheLine,
		ActionMoveToUpNext,
		ActionMoveToDeepBacklog,
	}
}

func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range Actions() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// PlanAction plans a discrete (non-drag) operation on id over the full ordered
// collection. Deleting is not planned here; see Engine.Delete.
func (p Planner) PlanAction(c Collection, action Action, id string) (Plan, error) {
	order := c.Ordered()
	idx := indexOf(order, id)
	if idx < 0 {
		return Plan{}, NotFoundError{Kind: "item", ID: id}
	}

	switch action {
	case ActionMoveToTop, ActionMoveToBottom, ActionMoveUp, ActionMoveDown:
		rest := removeAt(order, idx)
		var at int
		switch action {
		case ActionMoveToTop:
			at = 0
		case ActionMoveToBottom:
			at = len(rest)
		case ActionMoveUp:
			at = max(0, idx-1)
		case ActionMoveDown:
			at = min(len(rest), idx+1)
		}
		if at == idx {
			return noop(), nil
		}
		return Plan{NewOrder: insertAt(rest, order[idx], at)}, nil

	case ActionMoveBelowTheLine:
		if c.Partitioner().SegmentOf(order[idx]) != SegmentUpNext {
			return Plan{}, fmt.Errorf("%w: %s is only valid for up-next items", ErrInvalidAction, action)
		}
		return withStatus(order, idx, model.StatusDeepBacklog), nil

	case ActionMoveToUpNext:
		return withStatus(order, idx, model.StatusUpNext), nil

	case ActionMoveToDeepBacklog:
		return withStatus(order, idx, model.StatusDeepBacklog), nil
	}
	return Plan{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

func withStatus(order []model.Item, idx int, to model.Status) Plan {
	from := order[idx].Status
	if from == to {
		return noop()
	}
	order[idx].Status = to
	return Plan{
		NewOrder:     order,
		StatusChange: &StatusChange{ItemID: order[idx].ID, From: from, To: to},
	}
}
