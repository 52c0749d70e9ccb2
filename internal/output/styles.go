package output

import "github.com/charmbracelet/lipgloss"

// Semantic color palette shared by every terminal rendering.
const (
	ColorBrand     = "42"  // green
	ColorPrimary   = "255" // white
	ColorSecondary = "245" // light gray
	ColorMuted     = "240" // dark gray
	ColorError     = "203" // red
	ColorWarning   = "214" // orange
	ColorAccent    = "45"  // cyan, links and locations
)

var (
	BrandStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBrand))
	PrimaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimary))
	SecondaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondary))
	MutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMuted))
	ErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError))
	WarningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning))
	AccentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))
	BoldStyle      = lipgloss.NewStyle().Bold(true)
)

// palette renders through lipgloss only when color is on.
type palette struct {
	color bool
}

func (p palette) render(s lipgloss.Style, text string) string {
	if !p.color || text == "" {
		return text
	}
	return s.Render(text)
}
