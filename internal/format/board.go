package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"stacks-cli/internal/model"
)

// Board is the segmented backlog as printed by `stacks board`.
type Board struct {
	Workspace string    `json:"workspace"`
	Sections  []Section `json:"sections"`
}

type Section struct {
	Title string       `json:"title"`
	Items []model.Item `json:"items"`
}

// ItemList prints one line per item in text mode.
type ItemList []model.Item

// ItemDetail prints one item with its description in text mode.
type ItemDetail model.Item

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1f4e79", Dark: "#7fb3e6"})
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6b6b6b", Dark: "#8a8a8a"})
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#81c784"})
	urgentStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#b71c1c", Dark: "#ef9a9a"})
	sectionStyle = lipgloss.NewStyle().MarginBottom(1)
)

func (b Board) Text(width int) string {
	parts := make([]string, 0, len(b.Sections)+1)
	if b.Workspace != "" {
		parts = append(parts, mutedStyle.Render("workspace "+b.Workspace))
	}
	for _, s := range b.Sections {
		head := headerStyle.Render(fmt.Sprintf("%s (%d)", s.Title, len(s.Items)))
		lines := []string{head}
		if len(s.Items) == 0 {
			lines = append(lines, mutedStyle.Render("  (empty)"))
		}
		for i, it := range s.Items {
			lines = append(lines, fmt.Sprintf("%3d. %s", i+1, ItemLine(it, width-5)))
		}
		parts = append(parts, sectionStyle.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (l ItemList) Text(width int) string {
	if len(l) == 0 {
		return mutedStyle.Render("(no items)")
	}
	lines := make([]string, len(l))
	for i, it := range l {
		lines[i] = ItemLine(it, width)
	}
	return strings.Join(lines, "\n")
}

func (d ItemDetail) Text(width int) string {
	it := model.Item(d)
	var b strings.Builder
	b.WriteString(headerStyle.Render(it.Title))
	b.WriteString("\n")
	meta := []string{it.ID, string(it.Kind), statusStyle.Render(string(it.Status)), string(it.Priority)}
	if r, ok := it.RankValue(); ok {
		meta = append(meta, fmt.Sprintf("rank %d", r))
	} else {
		meta = append(meta, "unranked")
	}
	if it.Assignee != nil {
		meta = append(meta, "@"+*it.Assignee)
	}
	b.WriteString(mutedStyle.Render(strings.Join(meta, " · ")))
	if len(it.Tags) > 0 {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("#" + strings.Join(it.Tags, " #")))
	}
	if desc := strings.TrimSpace(it.Description); desc != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Render(desc))
	}
	return b.String()
}

// ItemLine renders a one-line summary truncated to width cells.
func ItemLine(it model.Item, width int) string {
	rank := "  -"
	if r, ok := it.RankValue(); ok {
		rank = fmt.Sprintf("%3d", r)
	}
	kind := "S"
	if it.Kind == model.KindTask {
		kind = "T"
		if it.TaskSubtype == model.SubtypeBug {
			kind = "B"
		}
	}
	prio := string(it.Priority)
	if it.Priority == model.PriorityUrgent {
		prio = urgentStyle.Render(prio)
	}
	line := fmt.Sprintf("%s %s %-14s %s %s [%s]",
		mutedStyle.Render(rank), kind, it.ID, it.Title, statusStyle.Render(string(it.Status)), prio)
	if width > 0 {
		line = ansi.Truncate(line, width, "…")
	}
	return line
}
