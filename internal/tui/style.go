package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#1f4e79", Dark: "#7fb3e6"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6b6b6b", Dark: "#8a8a8a"}
	colorSelBg  = lipgloss.AdaptiveColor{Light: "#dbe9f6", Dark: "#2b3f55"}
	colorGrab   = lipgloss.AdaptiveColor{Light: "#8a5a00", Dark: "#ffcc66"}
	colorError  = lipgloss.AdaptiveColor{Light: "#b71c1c", Dark: "#ef9a9a"}

	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleSection  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginTop(1)
	styleMuted    = lipgloss.NewStyle().Foreground(colorMuted)
	styleSelected = lipgloss.NewStyle().Background(colorSelBg)
	styleGrabbed  = lipgloss.NewStyle().Foreground(colorGrab).Bold(true)
	styleError    = lipgloss.NewStyle().Foreground(colorError)
	stylePreview  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorMuted).Padding(0, 1)
)

// applyColorProfile honours NO_COLOR and otherwise trusts TERM/COLORTERM over
// termenv's probe, which under-reports on some terminals.
func applyColorProfile() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	term := strings.ToLower(os.Getenv("TERM"))
	colorterm := strings.ToLower(os.Getenv("COLORTERM"))
	switch {
	case profile == termenv.Ascii:
	case strings.Contains(colorterm, "truecolor"), strings.Contains(colorterm, "24bit"):
		profile = termenv.TrueColor
	case strings.Contains(term, "256color") && profile == termenv.ANSI:
		profile = termenv.ANSI256
	}
	lipgloss.SetColorProfile(profile)
}
