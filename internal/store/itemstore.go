package store

import (
	"context"
	"errors"

	"stacks-cli/internal/model"
)

var (
	ErrNotFound             = errors.New("item not found")
	ErrStaleWrite           = errors.New("stale write")
	ErrWorkspaceUnavailable = errors.New("workspace unavailable")
)

// ItemStore is the remote authority for item records. Updates are partial and
// there is no multi-item transaction.
type ItemStore interface {
	ListItems(ctx context.Context, workspaceID string) ([]model.Item, error)
	UpdateItem(ctx context.Context, id string, p model.Patch) error
	DeleteItem(ctx context.Context, id string) error
}

// Creator is implemented by stores that accept new items (the add-item flow).
// Created items always start unranked.
type Creator interface {
	CreateItem(ctx context.Context, it model.Item) (model.Item, error)
}

// applyPatch applies p to it. A patch carrying a batch sequence that is not newer
// than the item's version is rejected with ErrStaleWrite.
func applyPatch(it *model.Item, p model.Patch) error {
	if p.BatchSeq > 0 && p.BatchSeq <= it.Version {
		return ErrStaleWrite
	}
	if p.Rank != nil {
		it.Rank = model.IntPtr(*p.Rank)
	}
	if p.RankKey != nil {
		it.RankKey = *p.RankKey
	}
	if p.Status != nil {
		it.Status = *p.Status
	}
	if p.BatchSeq > 0 {
		it.Version = p.BatchSeq
	}
	return nil
}
