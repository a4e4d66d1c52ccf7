package storage

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// DefaultContentType is used for files with an unknown extension
const DefaultContentType = "application/octet-stream"

// knownTypes pins the types of common artifact files so they do not depend
// on the host MIME database
var knownTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".json": "application/json",
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".txt":  "text/plain",
	".md":   "text/markdown",
}

// ContentType returns the MIME type of a file name based on its extension
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return DefaultContentType
	}
	if t, ok := knownTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return DefaultContentType
}

// ValidateDirectory resolves dir and checks that it is an existing,
// non-empty directory
func ValidateDirectory(dir string) (string, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory does not exist: %s", absPath)
		}
		return "", fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", absPath)
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read directory: %w", err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("directory is empty: %s", absPath)
	}

	return absPath, nil
}
