package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"stacks-cli/internal/backlog"
)

// Run shows the board full-screen until the user quits or ctx is done.
func Run(ctx context.Context, eng *backlog.Engine, changes <-chan backlog.Collection, workspace string) error {
	applyColorProfile()
	m := NewModel(ctx, eng, changes, workspace)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
