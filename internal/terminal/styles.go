package terminal

import "github.com/charmbracelet/lipgloss"

// StyleConfig defines visual styles
type StyleConfig struct {
	BlockColor  lipgloss.Color
	WarnColor   lipgloss.Color
	InfoColor   lipgloss.Color
	AllowColor  lipgloss.Color
	SubtleColor lipgloss.Color
	BorderColor lipgloss.Color
}

// DefaultStyleConfig returns the default style configuration
func DefaultStyleConfig() *StyleConfig {
	return &StyleConfig{
		BlockColor:  lipgloss.Color("9"),   // Red
		WarnColor:   lipgloss.Color("11"),  // Yellow
		InfoColor:   lipgloss.Color("12"),  // Blue
		AllowColor:  lipgloss.Color("10"),  // Green
		SubtleColor: lipgloss.Color("241"), // Grey
		BorderColor: lipgloss.Color("8"),   // Dark grey
	}
}

func (s *StyleConfig) title(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}

func (s *StyleConfig) subtle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.SubtleColor)
}

func (s *StyleConfig) label() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true)
}
