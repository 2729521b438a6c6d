package tui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds the colours of the watch view.
type StyleConfig struct {
	PrimaryBlue   lipgloss.Color
	TextPrimary   lipgloss.Color
	TextSecondary lipgloss.Color
	Success       lipgloss.Color
	Failure       lipgloss.Color
	Pending       lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:   lipgloss.Color("#8AB4F8"),
		TextPrimary:   lipgloss.Color("#E8EAED"),
		TextSecondary: lipgloss.Color("#9AA0A6"),
		Success:       lipgloss.Color("#34A853"),
		Failure:       lipgloss.Color("#EA4335"),
		Pending:       lipgloss.Color("#FBBC04"),
	}
}

// TitleStyle returns a title lipgloss style using this config
func (s *StyleConfig) TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.PrimaryBlue).
		Bold(true).
		Padding(0, 1)
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 1)
}

// StatusStyle colours a build line by its outcome.
func (s *StyleConfig) StatusStyle(finished, succeeded bool) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(s.Pending)
	if finished {
		if succeeded {
			style = style.Foreground(s.Success)
		} else {
			style = style.Foreground(s.Failure)
		}
	}
	return style
}
