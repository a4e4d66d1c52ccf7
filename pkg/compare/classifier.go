// Package compare classifies screenshots against a baseline set.
package compare

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/sdejongh/vrtnorris/pkg/imagediff"
	"github.com/sdejongh/vrtnorris/pkg/logging"
	"github.com/sdejongh/vrtnorris/pkg/models"
)

// DiffPrefix is prepended to screenshot names to build diff artifact names
const DiffPrefix = "diff-"

// Config holds classifier settings
type Config struct {
	// Threshold is the pass/fail gate on the diff percentage (0-100)
	Threshold float64
	// Diff configures the per-pixel comparison
	Diff imagediff.Options
	// OutputDir receives the diff artifacts, created if absent
	OutputDir string
	// BufferSize is the read buffer used when hashing files
	BufferSize int
}

// Validate checks the thresholds independently
func (c Config) Validate() error {
	if !(c.Threshold >= 0 && c.Threshold <= 100) {
		return &models.ValidationError{
			Field:   "threshold",
			Message: "must be between 0 and 100",
		}
	}
	if err := c.Diff.Validate(); err != nil {
		return err
	}
	if c.OutputDir == "" {
		return &models.ValidationError{
			Field:   "diff_output_dir",
			Message: "cannot be empty",
		}
	}
	return nil
}

// LocalSet is the set of screenshots produced by the current run
type LocalSet struct {
	Dir   string
	Names []string
}

// LoadLocalSet lists the screenshots found in dir
func LoadLocalSet(dir string) (LocalSet, error) {
	names, err := ListScreenshots(dir)
	if err != nil {
		return LocalSet{}, err
	}
	return LocalSet{Dir: dir, Names: names}, nil
}

// Classifier assigns a status to every screenshot of a run
type Classifier struct {
	config Config
	hasher *Hasher
	logger logging.Logger
}

// NewClassifier creates a classifier after validating the configuration
func NewClassifier(config Config, logger logging.Logger) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Classifier{
		config: config,
		hasher: NewHasher(config.BufferSize),
		logger: logger,
	}, nil
}

// Classify produces one result per name in the union of the local and
// baseline sets, sorted by name. Any comparison error aborts the whole run.
func (c *Classifier) Classify(ctx context.Context, local LocalSet, baseline *BaselineIndex) ([]models.ComparisonResult, error) {
	if baseline == nil {
		baseline = NewBaselineIndex(nil)
	}

	localNames := make(map[string]bool, len(local.Names))
	for _, name := range local.Names {
		localNames[name] = true
	}

	union := make(map[string]struct{}, len(local.Names)+baseline.Len())
	for name := range localNames {
		union[name] = struct{}{}
	}
	for _, name := range baseline.Names() {
		union[name] = struct{}{}
	}

	names := make([]string, 0, len(union))
	for name := range union {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]models.ComparisonResult, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		baselinePath, inBaseline := baseline.Lookup(name)
		currentPath := filepath.Join(local.Dir, name)

		var res models.ComparisonResult
		switch {
		case localNames[name] && !inBaseline:
			res = models.NewScreenshot(name, currentPath)
		case !localNames[name]:
			res = models.MissingScreenshot(name, baselinePath)
		default:
			compared, err := c.compare(ctx, name, baselinePath, currentPath)
			if err != nil {
				return nil, err
			}
			res = compared
		}

		c.logger.Debug(ctx, "Classified screenshot", logging.Fields{
			"name":   name,
			"status": string(res.Status),
		})
		results = append(results, res)
	}

	return results, nil
}

// compare runs the pixel differ on a pair and writes the diff artifact
// whenever at least one pixel differs
func (c *Classifier) compare(ctx context.Context, name, baselinePath, currentPath string) (models.ComparisonResult, error) {
	identical, err := c.hasher.Identical(ctx, baselinePath, currentPath)
	if err != nil {
		return models.ComparisonResult{}, fmt.Errorf("failed to compare %s: %w", name, err)
	}
	if identical {
		// Same bytes, but a broken capture must still fail to decode
		img, err := imagediff.Decode(currentPath)
		if err != nil {
			return models.ComparisonResult{}, err
		}
		total := img.Bounds().Dx() * img.Bounds().Dy()
		return models.ComparedScreenshot(name, baselinePath, currentPath, "", 0, total, 0, c.config.Threshold), nil
	}

	baseImg, err := imagediff.Decode(baselinePath)
	if err != nil {
		return models.ComparisonResult{}, err
	}
	curImg, err := imagediff.Decode(currentPath)
	if err != nil {
		return models.ComparisonResult{}, err
	}

	diff, err := imagediff.Compare(baseImg, curImg, c.config.Diff)
	if err != nil {
		return models.ComparisonResult{}, err
	}

	diffPath := ""
	if diff.DiffPixels > 0 && diff.Diff != nil {
		diffPath = filepath.Join(c.config.OutputDir, DiffPrefix+name)
		if err := imagediff.WritePNG(diffPath, diff.Diff); err != nil {
			return models.ComparisonResult{}, fmt.Errorf("failed to write diff for %s: %w", name, err)
		}
	}

	if diff.SizeMismatch {
		c.logger.Warn(ctx, "Screenshot dimensions differ from baseline", logging.Fields{
			"name": name,
		})
	}

	return models.ComparedScreenshot(name, baselinePath, currentPath, diffPath,
		diff.DiffPixels, diff.TotalPixels, diff.DiffPercentage, c.config.Threshold), nil
}
