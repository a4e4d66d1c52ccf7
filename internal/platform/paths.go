// Package platform holds path handling shared by the commands.
package platform

import (
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath cleans a user supplied path for the current platform and
// makes it absolute
func NormalizePath(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}

	normalized := filepath.Clean(path)

	// UNC prefixes do not survive Clean
	if IsUNCPath(path) && !strings.HasPrefix(normalized, `\\`) {
		normalized = `\` + normalized
	}

	abs, err := filepath.Abs(normalized)
	if err != nil {
		return "", &PathError{Path: path, Message: err.Error()}
	}
	return abs, nil
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(path string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(path, `\\`) || strings.HasPrefix(path, "//")
}

// ValidatePath checks if a path is usable on the current platform
func ValidatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}

	if runtime.GOOS == "windows" && !IsUNCPath(path) {
		// Drive letters carry the only legal colon
		rest := path
		if len(rest) >= 2 && rest[1] == ':' {
			rest = rest[2:]
		}
		for _, char := range []string{"<", ">", ":", "\"", "|", "?", "*"} {
			if strings.Contains(rest, char) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// CheckSeparate rejects an output directory equal to or nested in the input
// directory, so generated files never end up in the next scan
func CheckSeparate(input, output string) error {
	in, err := NormalizePath(input)
	if err != nil {
		return err
	}
	out, err := NormalizePath(output)
	if err != nil {
		return err
	}

	if in == out {
		return &PathError{Path: output, Message: "must differ from " + input}
	}
	if strings.HasPrefix(out, in+string(filepath.Separator)) {
		return &PathError{Path: output, Message: "cannot be inside " + input}
	}
	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
