package storage

import (
	"path"
	"path/filepath"
	"strings"
)

// systemDirs are never treated as content
var systemDirs = map[string]bool{
	"__MACOSX":     true,
	"node_modules": true,
}

// skipEntry reports whether a file or directory name is hidden or a known
// system directory
func skipEntry(name string) bool {
	return strings.HasPrefix(name, ".") || systemDirs[name]
}

// shouldExclude checks if a path should be excluded based on the given patterns.
// Patterns support:
//   - Basename globs: *.tmp, Thumbs.db
//   - Directory patterns: build/, snapshots/
//   - Path globs: shots/*.png
//   - Any depth: **/tmp
func shouldExclude(relativePath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	p := filepath.ToSlash(relativePath)
	base := path.Base(p)

	for _, pattern := range patterns {
		if matchPattern(p, base, filepath.ToSlash(pattern)) {
			return true
		}
	}
	return false
}

func matchPattern(p, base, pattern string) bool {
	switch {
	case pattern == "":
		return false

	case strings.HasSuffix(pattern, "/"):
		dir := strings.TrimSuffix(pattern, "/")
		return p == dir ||
			strings.HasPrefix(p, dir+"/") ||
			strings.Contains(p, "/"+dir+"/")

	case strings.HasPrefix(pattern, "**/"):
		suffix := strings.TrimPrefix(pattern, "**/")
		if p == suffix || strings.HasSuffix(p, "/"+suffix) {
			return true
		}
		for _, part := range strings.Split(p, "/") {
			if globMatch(suffix, part) {
				return true
			}
		}
		return false

	case strings.Contains(pattern, "/"):
		return globMatch(pattern, p) || strings.HasSuffix(p, "/"+pattern)

	default:
		return globMatch(pattern, base)
	}
}

func globMatch(pattern, name string) bool {
	matched, _ := path.Match(pattern, name)
	return matched
}
