// Package publish writes a board as a tree of markdown files: index.md plus one
// page per item under items/.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"stacks-cli/internal/format"
)

type WriteOptions struct {
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

func WriteBoard(b format.Board, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)

	itemsDir := filepath.Join(toDir, "items")
	if err := os.MkdirAll(itemsDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	indexPath := filepath.Join(toDir, "index.md")
	if err := writeFile(indexPath, []byte(RenderBoardMarkdown(b)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}

	// Stop on the first error; files already written stay.
	written := []string{indexPath}
	for _, s := range b.Sections {
		for _, it := range s.Items {
			p := filepath.Join(itemsDir, it.ID+".md")
			if err := writeFile(p, []byte(RenderItemMarkdown(it)), opt.Overwrite); err != nil {
				return WriteResult{Written: written}, err
			}
			written = append(written, p)
		}
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
