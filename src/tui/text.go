package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text, ignoring ANSI escape codes
// and accounting for wide characters.
func VisualWidth(s string) int {
	return ansi.StringWidth(s)
}

// Truncate shortens s to width display cells. Styled text keeps its escape
// codes intact. When ellipsis is set the last cell becomes "…".
func Truncate(s string, width int, ellipsis bool) string {
	if width <= 0 {
		return ""
	}
	tail := ""
	if ellipsis {
		tail = "…"
	}
	return ansi.Truncate(s, width, tail)
}

// PadRight truncates plain text and pads it with spaces to exactly width cells.
// Used for table columns.
func PadRight(s string, width int) string {
	s = runewidth.Truncate(strings.TrimSpace(s), width, "…")
	return runewidth.FillRight(s, width)
}
