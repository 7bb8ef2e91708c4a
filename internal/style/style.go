// Package style holds the lipgloss styles for human-facing CLI output.
package style

import "github.com/charmbracelet/lipgloss"

// ANSI palette; plain terminal colors keep output readable on light and
// dark schemes.
const (
	green  = "10"
	red    = "9"
	yellow = "11"
	gray   = "8"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(green))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(red))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(yellow))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(gray))
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

var enabled = true

// Enable switches styled rendering on or off process-wide. The CLI turns
// it off for --quiet, --json, non-TTY output, and [ui] colors = false.
func Enable(on bool) { enabled = on }

func Success(s string) string { return render(successStyle, s) }
func Error(s string) string   { return render(errorStyle, s) }
func Warning(s string) string { return render(warningStyle, s) }
func Dim(s string) string     { return render(dimStyle, s) }
func Bold(s string) string    { return render(boldStyle, s) }

func render(st lipgloss.Style, s string) string {
	if !enabled {
		return s
	}
	return st.Render(s)
}
