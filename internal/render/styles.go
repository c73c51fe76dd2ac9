package render

import "github.com/charmbracelet/lipgloss"

// Semantic color palette.
var (
	colorPrimary    = lipgloss.Color("#00BFFF") // Cyan: headings
	colorAccent     = lipgloss.Color("#FFD700") // Gold: selected values
	colorSuccess    = lipgloss.Color("#00E676") // Green: bars
	colorDanger     = lipgloss.Color("#FF5252") // Red: failures
	colorMuted      = lipgloss.Color("#636363") // Gray: placeholders, missing values
	colorMutedLight = lipgloss.Color("#8C8C8C") // Lighter gray: labels
)

// Status icons for output states.
const (
	iconReady   = "✓"
	iconPartial = "◎"
	iconEmpty   = "·"
	iconFailed  = "✗"
)

// barRune fills chart bars.
const barRune = "█"

// noValue is printed for a missing number.
const noValue = "n/a"

var (
	styleHeading = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleLabel = lipgloss.NewStyle().
			Foreground(colorMutedLight)

	styleValue = lipgloss.NewStyle().
			Foreground(colorAccent)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	styleBar = lipgloss.NewStyle().
			Foreground(colorSuccess)

	styleError = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)

	styleColumnHeader = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Underline(true)
)
