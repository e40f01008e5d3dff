package publish

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"stacks-cli/internal/format"
	"stacks-cli/internal/model"
)

func RenderItemMarkdown(it model.Item) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + strings.TrimSpace(it.Title))
	writeLn("")
	writeLn("## Meta")
	writeLn("")
	writeLn("- ID: " + it.ID)
	kind := string(it.Kind)
	if it.TaskSubtype == model.SubtypeBug {
		kind += " (bug)"
	}
	writeLn("- Kind: " + kind)
	writeLn("- Status: " + string(it.Status))
	writeLn("- Priority: " + string(it.Priority))
	if r, ok := it.RankValue(); ok {
		writeLn(fmt.Sprintf("- Rank: %d", r))
	} else {
		writeLn("- Rank: unranked")
	}
	if it.Assignee != nil && strings.TrimSpace(*it.Assignee) != "" {
		writeLn("- Assignee: " + strings.TrimSpace(*it.Assignee))
	}
	if tags := model.NormalizeTags(it.Tags); len(tags) > 0 {
		writeLn("- Tags: " + strings.Join(tags, ", "))
	}
	writeLn("- Created: " + it.CreatedAt.UTC().Format(time.RFC3339))
	writeLn("- Updated: " + it.UpdatedAt.UTC().Format(time.RFC3339))

	if desc := strings.TrimSpace(it.Description); desc != "" {
		writeLn("")
		writeLn("## Description")
		writeLn("")
		writeLn(desc)
	}
	return buf.String()
}

// RenderBoardMarkdown renders one numbered list per section, each entry linking
// to its item page.
func RenderBoardMarkdown(b format.Board) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", strings.TrimSpace(b.Workspace))
	for _, s := range b.Sections {
		fmt.Fprintf(&buf, "\n## %s\n\n", s.Title)
		if len(s.Items) == 0 {
			buf.WriteString("_Empty._\n")
			continue
		}
		for i, it := range s.Items {
			fmt.Fprintf(&buf, "%d. [%s](items/%s.md) (%s, %s)\n", i+1, strings.TrimSpace(it.Title), it.ID, it.Status, it.Priority)
		}
	}
	return buf.String()
}
