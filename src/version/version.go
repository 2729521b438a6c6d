// Package version validates the version strings accepted by release tooling.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned by the Check functions.
var ErrInvalidVersion = errors.New("invalid version")

var (
	// major.minor.patch
	semanticPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)
	// major.minor.patch[.build][-modifier]
	extendedPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:\.(\d+))?(?:-(\w+))?$`)
)

// IsSemantic reports whether s is a strict three-segment version.
func IsSemantic(s string) bool {
	return semanticPattern.MatchString(s)
}

// IsExtended reports whether s is a version with an optional build number
// and an optional alphanumeric modifier, e.g. 1.2.3.4-rc1.
func IsExtended(s string) bool {
	return extendedPattern.MatchString(s)
}

// CheckSemantic returns ErrInvalidVersion unless s is a strict semantic version.
func CheckSemantic(s string) error {
	if !IsSemantic(s) {
		return fmt.Errorf("%w: %q is not a valid semantic version", ErrInvalidVersion, s)
	}
	return nil
}

// CheckExtended returns ErrInvalidVersion unless s is a valid extended version.
func CheckExtended(s string) error {
	if !IsExtended(s) {
		return fmt.Errorf("%w: %q is not a valid version string", ErrInvalidVersion, s)
	}
	return nil
}

// Normalize strips leading zeros from purely numeric segments: 01.002.3 -> 1.2.3.
func Normalize(s string) string {
	parts := strings.Split(s, ".")
	for i, p := range parts {
		if n, err := strconv.ParseUint(p, 10, 64); err == nil {
			parts[i] = strconv.FormatUint(n, 10)
		}
	}
	return strings.Join(parts, ".")
}

// Tag is the release tag for a version: v1.2.3.
func Tag(v string) string {
	return "v" + v
}

// ReleaseBranch is the release branch for a version: release/v1.2.3.
func ReleaseBranch(v string) string {
	return "release/" + Tag(v)
}
