package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorText   = lipgloss.Color("#FFFCF0")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorOrange = lipgloss.Color("#DA702C")
	colorRed    = lipgloss.Color("#D14D41")
	colorMuted  = lipgloss.Color("#6F6E69")
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(colorOrange)
	errStyle    = lipgloss.NewStyle().Foreground(colorRed)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

// renderBanner frames a title between two rules of the same width.
func renderBanner(title string) string {
	rule := strings.Repeat("=", len(title)+8)
	return bannerStyle.Render(rule + "\n    " + title + "\n" + rule)
}
