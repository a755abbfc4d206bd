package render

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#0969DA")
	accentColor  = lipgloss.Color("#2DA44E")
	warningColor = lipgloss.Color("#D29922")
	dimColor     = lipgloss.Color("#6E7681")

	TitleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor)

	SectionStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	BorderStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)
