package bump

import (
	"fmt"
	"os"
	"strings"
)

// CMakeSet returns the prefix and replacement line for a CMake version
// variable: set(NAME 1.2.3).
func CMakeSet(name, v string) (prefix, line string) {
	return "set(" + name, fmt.Sprintf("set(%s %s)", name, v)
}

// PythonAssign returns the prefix and replacement line for a Python module
// variable: __version__ = "1.2.3".
func PythonAssign(name, v string) (prefix, line string) {
	return name, fmt.Sprintf("%s = %q", name, v)
}

// LinePrefix replaces every line of the file starting with prefix by
// replacement and returns the number of replaced lines. Line endings are
// kept as they were.
func LinePrefix(path, prefix, replacement string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	lines := strings.SplitAfter(string(data), "\n")
	replaced := 0
	for i, line := range lines {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		ending := line[len(strings.TrimRight(line, "\r\n")):]
		lines[i] = replacement + ending
		replaced++
	}
	if replaced == 0 {
		return 0, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "")), info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return replaced, nil
}
