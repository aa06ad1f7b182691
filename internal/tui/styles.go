package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	secondaryColor = lipgloss.Color("#3B82F6") // Blue
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	textColor      = lipgloss.Color("#F9FAFB") // Light gray

	// Tool tile colors, keyed by the catalog's color class
	toolColors = map[string]lipgloss.Color{
		"bg-primary":   primaryColor,
		"bg-accent":    lipgloss.Color("#06B6D4"),
		"bg-secondary": warningColor,
		"bg-chart-3":   successColor,
	}

	boxStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Align(lipgloss.Left)

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(textColor).
			PaddingBottom(1)

	choiceStyle = lipgloss.NewStyle()

	selectedStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Padding(0, 1).
			MarginTop(1).
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(mutedColor)

	buttonStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Background(primaryColor).
			Padding(0, 2)

	disabledButtonStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Background(lipgloss.Color("#374151")).
				Padding(0, 2)

	outlineButtonStyle = lipgloss.NewStyle().
				Foreground(secondaryColor).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(secondaryColor).
				Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

// icons maps catalog and action icon names to terminal glyphs
var icons = map[string]string{
	"file-text":  "📄",
	"scissors":   "✂",
	"archive":    "🗄",
	"refresh-cw": "↻",
	"zap":        "⚡",
	"check":      "✓",
	"download":   "⬇",
}

func glyph(icon string) string {
	if g, ok := icons[icon]; ok {
		return g
	}
	return "•"
}

func toolStyle(color string) lipgloss.Style {
	c, ok := toolColors[color]
	if !ok {
		c = primaryColor
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}
