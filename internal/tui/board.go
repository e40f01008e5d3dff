package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"stacks-cli/internal/backlog"
	"stacks-cli/internal/format"
	"stacks-cli/internal/model"
)

// snapshotMsg carries a collection published by the engine after a change made
// elsewhere (a resync, a refresh signal).
type snapshotMsg struct{ coll backlog.Collection }

type outcomeMsg struct {
	label   string
	itemID  string
	outcome backlog.Outcome
}

type resyncMsg struct{ err error }

// Model is the board: Up Next above Backlog, one row per item, with keyboard
// drags and context actions applied through an engine.
type Model struct {
	ctx       context.Context
	engine    *backlog.Engine
	changes   <-chan backlog.Collection
	workspace string

	keys    keyMap
	help    help.Model
	preview viewport.Model

	rows   []model.Item
	upNext int
	cursor int

	grabbed     string
	confirmDel  string
	showPreview bool
	status      string
	statusErr   bool

	width  int
	height int
}

// NewModel builds a board over eng. changes may be nil; when set, every value
// received replaces the board contents.
func NewModel(ctx context.Context, eng *backlog.Engine, changes <-chan backlog.Collection, workspace string) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	m := Model{
		ctx:       ctx,
		engine:    eng,
		changes:   changes,
		workspace: workspace,
		keys:      defaultKeyMap(),
		help:      help.New(),
		preview:   viewport.New(0, 0),
		width:     100,
		height:    30,
	}
	m.setCollection(eng.Snapshot())
	return m
}

func (m Model) Init() tea.Cmd { return m.waitForChange() }

func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg{coll: c}
	}
}

// Selected returns the item under the cursor.
func (m Model) Selected() (model.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return model.Item{}, false
	}
	return m.rows[m.cursor], true
}

func (m Model) Status() string { return m.status }

func (m *Model) setCollection(c backlog.Collection) {
	selected := ""
	if it, ok := m.Selected(); ok {
		selected = it.ID
	}
	up := c.Segment(backlog.SegmentUpNext)
	m.upNext = len(up)
	m.rows = append(up, c.Segment(backlog.SegmentBacklog)...)

	m.cursor = clampCursor(m.cursor, len(m.rows))
	if selected != "" {
		for i := range m.rows {
			if m.rows[i].ID == selected {
				m.cursor = i
				break
			}
		}
	}
	if m.grabbed != "" && c.Index(m.grabbed) < 0 {
		m.grabbed = ""
	}
	m.refreshPreview()
}

func clampCursor(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.refreshPreview()
		return m, nil

	case snapshotMsg:
		m.setCollection(msg.coll)
		return m, m.waitForChange()

	case outcomeMsg:
		m.setCollection(m.engine.Snapshot())
		o := msg.outcome
		switch {
		case o.Superseded:
			m.setStatus(msg.label+" "+msg.itemID+": superseded by a resync", true)
		case o.Err != nil:
			s := msg.label + " " + msg.itemID + " failed: " + o.Err.Error()
			if o.Resynced {
				s += " (view resynced)"
			}
			m.setStatus(s, true)
		case o.Noop:
			m.setStatus("nothing to do", false)
		default:
			m.setStatus(fmt.Sprintf("%s %s (%d writes)", msg.label, msg.itemID, o.Writes), false)
		}
		return m, nil

	case resyncMsg:
		m.setCollection(m.engine.Snapshot())
		if msg.err != nil {
			m.setStatus("resync failed: "+msg.err.Error(), true)
		} else {
			m.setStatus("resynced", false)
		}
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmDel != "" {
		id := m.confirmDel
		m.confirmDel = ""
		if key.Matches(msg, m.keys.Confirm) {
			return m.track("deleted", id, m.engine.DeleteAsync(m.ctx, id))
		}
		m.setStatus("delete cancelled", false)
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.cursor = clampCursor(m.cursor-1, len(m.rows))
		m.refreshPreview()
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.cursor = clampCursor(m.cursor+1, len(m.rows))
		m.refreshPreview()
		return m, nil
	case key.Matches(msg, m.keys.Cancel):
		m.grabbed = ""
		m.setStatus("", false)
		return m, nil
	case key.Matches(msg, m.keys.Preview):
		m.showPreview = !m.showPreview
		m.refreshPreview()
		return m, nil
	case key.Matches(msg, m.keys.Resync):
		m.setStatus("resyncing…", false)
		return m, m.resync()
	}

	it, ok := m.Selected()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.DragUp):
		if m.cursor == 0 {
			return m, nil
		}
		return m.drag(it.ID, m.rows[m.cursor-1].ID)
	case key.Matches(msg, m.keys.DragDown):
		if m.cursor+1 >= len(m.rows) {
			return m, nil
		}
		return m.drag(it.ID, m.rows[m.cursor+1].ID)
	case key.Matches(msg, m.keys.Grab):
		m.grabbed = it.ID
		m.setStatus("grabbed "+it.ID+": move and press enter to drop", false)
		return m, nil
	case key.Matches(msg, m.keys.Drop):
		if m.grabbed == "" {
			return m, nil
		}
		active := m.grabbed
		m.grabbed = ""
		return m.drag(active, it.ID)
	case key.Matches(msg, m.keys.Delete):
		m.confirmDel = it.ID
		m.setStatus("delete "+it.ID+"? (y to confirm)", false)
		return m, nil
	}

	for _, a := range []struct {
		b      key.Binding
		action backlog.Action
	}{
		{m.keys.Top, backlog.ActionMoveToTop},
		{m.keys.Bottom, backlog.ActionMoveToBottom},
		{m.keys.StepUp, backlog.ActionMoveUp},
		{m.keys.StepDown, backlog.ActionMoveDown},
		{m.keys.Line, backlog.ActionMoveBelowTheLine},
		{m.keys.UpNext, backlog.ActionMoveToUpNext},
		{m.keys.Deep, backlog.ActionMoveToDeepBacklog},
	} {
		if key.Matches(msg, a.b) {
			return m.track(string(a.action), it.ID, m.engine.DoAsync(m.ctx, a.action, it.ID))
		}
	}
	return m, nil
}

func (m Model) drag(activeID, overID string) (tea.Model, tea.Cmd) {
	return m.track("moved", activeID, m.engine.DragAsync(m.ctx, activeID, overID))
}

// track shows the optimistic state at once and reports the outcome when the
// batch has been written.
func (m Model) track(label, id string, ch <-chan backlog.Outcome) (tea.Model, tea.Cmd) {
	m.setCollection(m.engine.Snapshot())
	m.setStatus(label+" "+id+"…", false)
	return m, func() tea.Msg {
		return outcomeMsg{label: label, itemID: id, outcome: <-ch}
	}
}

func (m Model) resync() tea.Cmd {
	ctx, eng := m.ctx, m.engine
	return func() tea.Msg {
		return resyncMsg{err: eng.Resync(ctx)}
	}
}

func (m *Model) refreshPreview() {
	w := max(20, m.width-4)
	h := max(3, m.height/3)
	m.preview.Width = w
	m.preview.Height = h
	if !m.showPreview {
		return
	}
	it, ok := m.Selected()
	if !ok {
		m.preview.SetContent("")
		return
	}
	body := renderMarkdown(it.Description, w-2)
	if body == "" {
		body = styleMuted.Render("No description.")
	}
	m.preview.SetContent(body)
	m.preview.GotoTop()
}

func (m Model) View() string {
	var b strings.Builder
	title := styleTitle.Render(m.workspace)
	counts := styleMuted.Render(fmt.Sprintf("  %d up next · %d backlog", m.upNext, len(m.rows)-m.upNext))
	b.WriteString(title + counts + "\n")

	listHeight := m.height - 6
	if m.showPreview {
		listHeight -= m.preview.Height + 2
	}
	b.WriteString(m.listView(max(4, listHeight)))

	if m.showPreview {
		b.WriteString("\n" + stylePreview.Render(m.preview.View()))
	}

	b.WriteString("\n")
	if m.status != "" {
		s := ansi.Truncate(m.status, max(10, m.width), "…")
		if m.statusErr {
			s = styleError.Render(s)
		}
		b.WriteString(s)
	}
	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

// listView renders the two sections, scrolled so the cursor stays visible.
func (m Model) listView(height int) string {
	type line struct {
		text string
		row  int
	}
	lines := []line{{text: styleSection.Render("Up Next"), row: -1}}
	for i := range m.rows {
		if i == m.upNext {
			lines = append(lines, line{text: styleSection.Render("Backlog"), row: -1})
		}
		lines = append(lines, line{text: m.rowView(i), row: i})
	}
	if m.upNext == len(m.rows) {
		lines = append(lines, line{text: styleSection.Render("Backlog"), row: -1})
	}

	at := 0
	for i := range lines {
		if lines[i].row == m.cursor {
			at = i
			break
		}
	}
	start := 0
	if at >= height {
		start = at - height + 1
	}
	end := min(len(lines), start+height)

	out := make([]string, 0, end-start)
	for _, l := range lines[start:end] {
		out = append(out, l.text)
	}
	return lipgloss.JoinVertical(lipgloss.Left, out...)
}

func (m Model) rowView(i int) string {
	it := m.rows[i]
	marker := "  "
	if it.ID == m.grabbed {
		marker = styleGrabbed.Render("✥ ")
	}
	text := marker + format.ItemLine(it, max(20, m.width-2))
	if i == m.cursor {
		text = styleSelected.Render(text)
	}
	return text
}
