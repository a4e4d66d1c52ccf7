package compare

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sdejongh/vrtnorris/pkg/models"
)

// BaselineIndex maps screenshot names to baseline file paths. It is built
// once per run and never modified afterwards.
type BaselineIndex struct {
	paths map[string]string
	names []string
}

// NewBaselineIndex indexes the PNG files of a materialized baseline by base
// name. When two files share a base name the last in manifest order wins.
func NewBaselineIndex(manifest *models.BaselineManifest) *BaselineIndex {
	idx := &BaselineIndex{paths: make(map[string]string)}
	if manifest == nil {
		return idx
	}

	for _, rel := range manifest.Files {
		name := filepath.Base(filepath.FromSlash(rel))
		if !isScreenshot(name) {
			continue
		}
		if _, exists := idx.paths[name]; !exists {
			idx.names = append(idx.names, name)
		}
		idx.paths[name] = filepath.Join(manifest.OutputDir, filepath.FromSlash(rel))
	}
	sort.Strings(idx.names)
	return idx
}

// IndexDirectory builds an index from the screenshots found directly in dir
func IndexDirectory(dir string) (*BaselineIndex, error) {
	names, err := ListScreenshots(dir)
	if err != nil {
		return nil, err
	}
	return NewBaselineIndex(&models.BaselineManifest{
		OutputDir: dir,
		FileCount: len(names),
		Files:     names,
	}), nil
}

// Lookup returns the baseline path for name
func (i *BaselineIndex) Lookup(name string) (string, bool) {
	p, ok := i.paths[name]
	return p, ok
}

// Names returns the sorted baseline screenshot names
func (i *BaselineIndex) Names() []string {
	out := make([]string, len(i.names))
	copy(out, i.names)
	return out
}

// Len returns the number of indexed screenshots
func (i *BaselineIndex) Len() int {
	return len(i.names)
}

// ListScreenshots returns the sorted names of the .png files directly inside
// dir, skipping hidden files. The extension match is case-sensitive. A missing directory yields an empty list.
func ListScreenshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !isScreenshot(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func isScreenshot(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".png")
}
