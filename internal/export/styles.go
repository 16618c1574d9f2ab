package export

import "github.com/charmbracelet/lipgloss"

var (
	// Colors meet WCAG AA contrast on dark terminals.
	PrimaryColor  = lipgloss.Color("#A78BFA") // Purple
	PositiveColor = lipgloss.Color("#10B981") // Green
	WarningColor  = lipgloss.Color("#F59E0B") // Amber
	NegativeColor = lipgloss.Color("#F87171") // Red
	MutedColor    = lipgloss.Color("#9CA3AF") // Gray
	BorderColor   = lipgloss.Color("#6B7280") // Gray
)

// palette holds the styles used by one table render. Styles are bound to
// the output's renderer so colors are dropped when the writer is not a
// terminal.
type palette struct {
	title    lipgloss.Style
	header   lipgloss.Style
	cell     lipgloss.Style
	label    lipgloss.Style
	positive lipgloss.Style
	negative lipgloss.Style
	missing  lipgloss.Style
	footer   lipgloss.Style
	border   lipgloss.Style
}

func newPalette(re *lipgloss.Renderer) palette {
	cell := re.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	return palette{
		title:    re.NewStyle().Bold(true).Foreground(PrimaryColor).MarginBottom(1),
		header:   re.NewStyle().Bold(true).Foreground(PrimaryColor).Padding(0, 1).Align(lipgloss.Center),
		cell:     cell,
		label:    re.NewStyle().Padding(0, 1).Align(lipgloss.Left),
		positive: cell.Foreground(PositiveColor),
		negative: cell.Foreground(NegativeColor),
		missing:  cell.Foreground(WarningColor).Italic(true),
		footer:   cell.Bold(true),
		border:   re.NewStyle().Foreground(BorderColor),
	}
}
