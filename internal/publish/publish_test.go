package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stacks-cli/internal/format"
	"stacks-cli/internal/model"
)

func testBoard() format.Board {
	now := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	who := "sam"
	return format.Board{
		Workspace: "team",
		Sections: []format.Section{
			{Title: "Up Next", Items: []model.Item{{
				ID: "story-1", Kind: model.KindStory, Title: "Hello", Description: "Some **markdown**.",
				Status: model.StatusUpNext, Priority: model.PriorityHigh, Rank: model.IntPtr(1),
				Assignee: &who, Tags: []string{"web", "api"}, CreatedAt: now, UpdatedAt: now,
			}}},
			{Title: "Backlog", Items: []model.Item{{
				ID: "task-1", Kind: model.KindTask, TaskSubtype: model.SubtypeBug, Title: "Crash",
				Status: model.StatusInProgress, Priority: model.PriorityUrgent, CreatedAt: now, UpdatedAt: now,
			}}},
			{Title: "Workstream"},
		},
	}
}

func TestRenderItemMarkdown(t *testing.T) {
	t.Parallel()

	b := testBoard()
	md := RenderItemMarkdown(b.Sections[0].Items[0])
	for _, want := range []string{"# Hello", "- Rank: 1", "- Assignee: sam", "- Tags: api, web", "## Description", "Some **markdown**."} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}

	bug := RenderItemMarkdown(b.Sections[1].Items[0])
	if !strings.Contains(bug, "- Kind: task (bug)") || !strings.Contains(bug, "- Rank: unranked") {
		t.Fatalf("bug page:\n%s", bug)
	}
	if strings.Contains(bug, "## Description") {
		t.Fatal("empty description should be omitted")
	}
}

func TestRenderBoardMarkdown(t *testing.T) {
	t.Parallel()

	want := strings.Join([]string{
		"# team",
		"",
		"## Up Next",
		"",
		"1. [Hello](items/story-1.md) (up-next, high)",
		"",
		"## Backlog",
		"",
		"1. [Crash](items/task-1.md) (in-progress, urgent)",
		"",
		"## Workstream",
		"",
		"_Empty._",
		"",
	}, "\n")
	if got := RenderBoardMarkdown(testBoard()); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteBoard(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res, err := WriteBoard(testBoard(), dir, WriteOptions{})
	if err != nil {
		t.Fatalf("WriteBoard: %v", err)
	}
	if len(res.Written) != 3 {
		t.Fatalf("written %v", res.Written)
	}
	for _, p := range []string{"index.md", "items/story-1.md", "items/task-1.md"} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}

	if _, err := WriteBoard(testBoard(), dir, WriteOptions{}); err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("expected exists error, got %v", err)
	}
	if _, err := WriteBoard(testBoard(), dir, WriteOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := WriteBoard(testBoard(), " ", WriteOptions{}); err == nil {
		t.Fatal("expected missing dir error")
	}
}
