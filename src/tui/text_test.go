package tui

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		ellipsis bool
		want     string
	}{
		{"fits", "hello", 10, true, "hello"},
		{"cut with ellipsis", "hello world", 8, true, "hello w…"},
		{"cut without ellipsis", "hello world", 5, false, "hello"},
		{"zero width", "hello", 0, true, ""},
		{"wide characters", "日本語テキスト", 6, false, "日本語"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.width, tt.ellipsis); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
			}
		})
	}
}

func TestTruncate_KeepsANSICodes(t *testing.T) {
	styled := "\x1b[31mfailure message\x1b[0m"
	got := Truncate(styled, 7, false)
	if VisualWidth(got) != 7 {
		t.Errorf("VisualWidth(%q) = %d, want 7", got, VisualWidth(got))
	}
	if got[:5] != "\x1b[31m" {
		t.Errorf("expected leading escape code preserved, got %q", got)
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		input string
		width int
		want  string
	}{
		{"abc", 6, "abc   "},
		{"abcdefgh", 5, "abcd…"},
		{"日本", 6, "日本  "},
	}

	for _, tt := range tests {
		if got := PadRight(tt.input, tt.width); got != tt.want {
			t.Errorf("PadRight(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
		}
	}
}
