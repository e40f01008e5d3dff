package store

import (
	"context"
	"sync"
	"time"

	"stacks-cli/internal/model"
)

// Memory is an in-process ItemStore. The Fail* hooks let callers inject
// failures per call.
type Memory struct {
	mu         sync.Mutex
	items      map[string]model.Item
	workspaces map[string]bool

	FailList   func(workspaceID string) error
	FailUpdate func(id string, p model.Patch) error
	FailDelete func(id string) error

	updates int
	deletes int
	lists   int
}

func NewMemory(items ...model.Item) *Memory {
	m := &Memory{items: map[string]model.Item{}, workspaces: map[string]bool{}}
	m.Seed(items...)
	return m
}

func (m *Memory) Seed(items ...model.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.items[it.ID] = it.Clone()
		m.workspaces[it.WorkspaceID] = true
	}
}

func (m *Memory) AddWorkspace(id string) {
	m.mu.Lock()
	m.workspaces[id] = true
	m.mu.Unlock()
}

func (m *Memory) ListItems(ctx context.Context, workspaceID string) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.FailList != nil {
		if err := m.FailList(workspaceID); err != nil {
			return nil, err
		}
	}
	if !m.workspaces[workspaceID] {
		return nil, ErrWorkspaceUnavailable
	}
	var out []model.Item
	for _, it := range m.items {
		if it.WorkspaceID == workspaceID {
			out = append(out, it.Clone().WithImplicitTags())
		}
	}
	return out, nil
}

func (m *Memory) UpdateItem(ctx context.Context, id string, p model.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.FailUpdate != nil {
		if err := m.FailUpdate(id, p); err != nil {
			return err
		}
	}
	it, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	if err := applyPatch(&it, p); err != nil {
		return err
	}
	it.UpdatedAt = time.Now().UTC()
	m.items[id] = it
	return nil
}

func (m *Memory) DeleteItem(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.FailDelete != nil {
		if err := m.FailDelete(id); err != nil {
			return err
		}
	}
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *Memory) CreateItem(ctx context.Context, it model.Item) (model.Item, error) {
	if err := ctx.Err(); err != nil {
		return model.Item{}, err
	}
	it = prepareNew(it, time.Now().UTC())
	if err := model.ValidateItem(it); err != nil {
		return model.Item{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it.Clone()
	m.workspaces[it.WorkspaceID] = true
	return it, nil
}

// Get returns the stored item as the authority sees it.
func (m *Memory) Get(id string) (model.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	return it.Clone(), ok
}

// Counts reports how many list, update and delete calls were made.
func (m *Memory) Counts() (lists, updates, deletes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists, m.updates, m.deletes
}

// prepareNew fills defaults of the add-item flow. New items are never ranked.
func prepareNew(it model.Item, now time.Time) model.Item {
	if it.ID == "" {
		it.ID = NewItemID(it.Kind)
	}
	if it.Kind == model.KindTask && it.TaskSubtype == "" {
		it.TaskSubtype = model.SubtypeTask
	}
	if it.Priority == "" {
		it.Priority = model.PriorityMedium
	}
	if it.Status == "" {
		it.Status = model.StatusTodo
	}
	it.Tags = model.NormalizeTags(it.Tags)
	it.Rank = nil
	it.RankKey = ""
	it.Version = 0
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now
	return it
}
