package store

import (
	"strings"

	"github.com/google/uuid"

	"stacks-cli/internal/model"
)

// NewItemID returns <kind>-<8 hex chars>, e.g. story-1f3a9c0d.
func NewItemID(kind model.Kind) string {
	prefix := string(kind)
	if prefix == "" {
		prefix = "item"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return prefix + "-" + suffix
}
