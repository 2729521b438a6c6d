package version

import (
	"errors"
	"strconv"
	"testing"
)

func TestIsSemantic(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1.2.3", true},
		{"0.0.0", true},
		{"10.20.300", true},
		{"1.2", false},
		{"1.2.3.4", false},
		{"1.2.3-alpha", false},
		{"a.2.3", false},
		{"1.b.3", false},
		{"1.2.c", false},
		{"v1.2.3", false},
		{"", false},
		{" 1.2.3", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsSemantic(tt.input); got != tt.want {
				t.Errorf("IsSemantic(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsExtended(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1.2.3", true},
		{"1.2.3.4", true},
		{"1.2.3-alpha", true},
		{"1.2.3.4-alpha", true},
		{"1.2.3.1234-dev", true},
		{"1.2.3.4-rc1", true},
		{"1.2.3.4-123", true},
		{"1.2.3.4.5", false},
		{"1.2.3.4.dev", false},
		{"1.2", false},
		{"1.2.x", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsExtended(tt.input); got != tt.want {
				t.Errorf("IsExtended(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsSemantic_AllSmallTriples(t *testing.T) {
	for a := 0; a < 12; a++ {
		for b := 0; b < 12; b++ {
			for c := 0; c < 12; c++ {
				v := strconv.Itoa(a) + "." + strconv.Itoa(b) + "." + strconv.Itoa(c)
				if !IsSemantic(v) {
					t.Fatalf("IsSemantic(%q) = false, want true", v)
				}
			}
		}
	}
}

func TestCheck(t *testing.T) {
	if err := CheckSemantic("1.2.3"); err != nil {
		t.Errorf("CheckSemantic(1.2.3) = %v, want nil", err)
	}
	if err := CheckSemantic("1.2"); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("CheckSemantic(1.2) = %v, want ErrInvalidVersion", err)
	}
	if err := CheckExtended("1.2.3.4-rc1"); err != nil {
		t.Errorf("CheckExtended(1.2.3.4-rc1) = %v, want nil", err)
	}
	if err := CheckExtended("1.2.3.4.5"); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("CheckExtended(1.2.3.4.5) = %v, want ErrInvalidVersion", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"01.002.3", "1.2.3"},
		{"1.2.3", "1.2.3"},
		{"1.02.3-rc1", "1.2.3-rc1"},
		{"2024.01.0.007", "2024.1.0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTagAndBranch(t *testing.T) {
	if Tag("1.2.3") != "v1.2.3" {
		t.Errorf("Tag() = %q", Tag("1.2.3"))
	}
	if ReleaseBranch("1.2.3") != "release/v1.2.3" {
		t.Errorf("ReleaseBranch() = %q", ReleaseBranch("1.2.3"))
	}
}
