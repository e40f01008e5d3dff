package model

import (
	"sort"
	"strings"
	"time"
)

type Kind string

const (
	KindStory Kind = "story"
	KindTask  Kind = "task"
)

type TaskSubtype string

const (
	SubtypeTask TaskSubtype = "task"
	SubtypeBug  TaskSubtype = "bug"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status is an open set: values not listed here are carried through untouched.
type Status string

const (
	StatusTodo        Status = "todo"
	StatusUpNext      Status = "up-next"
	StatusInProgress  Status = "in-progress"
	StatusReview      Status = "review"
	StatusDone        Status = "done"
	StatusShipped     Status = "shipped"
	StatusQA1         Status = "qa1"
	StatusQA2         Status = "qa2"
	StatusBuilt       Status = "built"
	StatusDeepBacklog Status = "deep-backlog"
)

// BugTag is added to every task whose subtype is bug when items are listed.
const BugTag = "bug"

type Item struct {
	ID          string `json:"id" validate:"required"`
	WorkspaceID string `json:"workspaceId" validate:"required"`

	Kind        Kind        `json:"kind" validate:"required,oneof=story task"`
	TaskSubtype TaskSubtype `json:"taskSubtype,omitempty" validate:"omitempty,oneof=task bug"`

	Title       string   `json:"title" validate:"required,max=500"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority" validate:"required,oneof=low medium high urgent"`
	Status      Status   `json:"status" validate:"required"`
	Assignee    *string  `json:"assignee,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Rank is the dense order key. Nil means the item was never ranked.
	Rank *int `json:"rank"`
	// RankKey is the lexicographic order key used by the key rank strategy.
	RankKey string `json:"rankKey,omitempty"`
	// Version is the sequence of the last write batch applied to this item.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Patch is a partial item update. Nil fields are left unchanged.
type Patch struct {
	Rank     *int    `json:"rank,omitempty"`
	RankKey  *string `json:"rankKey,omitempty"`
	Status   *Status `json:"status,omitempty"`
	BatchSeq int64   `json:"batchSeq"`
}

func (p Patch) Empty() bool {
	return p.Rank == nil && p.RankKey == nil && p.Status == nil
}

// Clone returns a copy that shares no pointers or slices with it.
func (it Item) Clone() Item {
	out := it
	if it.Rank != nil {
		r := *it.Rank
		out.Rank = &r
	}
	if it.Assignee != nil {
		a := *it.Assignee
		out.Assignee = &a
	}
	if it.Tags != nil {
		out.Tags = append([]string(nil), it.Tags...)
	}
	return out
}

func (it Item) RankValue() (int, bool) {
	if it.Rank == nil {
		return 0, false
	}
	return *it.Rank, true
}

func (it Item) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range it.Tags {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

// WithImplicitTags returns it with the tags every listing shows: tasks of subtype
// bug carry BugTag.
func (it Item) WithImplicitTags() Item {
	if it.Kind == KindTask && it.TaskSubtype == SubtypeBug && !it.HasTag(BugTag) {
		it.Tags = NormalizeTags(append(append([]string(nil), it.Tags...), BugTag))
	}
	return it
}

// NormalizeTags trims, lowercases and de-duplicates tags. Tags are a set, so the
// result is sorted.
func NormalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func IntPtr(n int) *int { return &n }

func StatusPtr(s Status) *Status { return &s }

func StringPtr(s string) *string { return &s }
