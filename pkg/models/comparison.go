package models

// Status is the classification assigned to a single screenshot
type Status string

const (
	// StatusPass indicates the screenshot matches its baseline within the threshold
	StatusPass Status = "pass"
	// StatusFail indicates the screenshot differs from its baseline beyond the threshold
	StatusFail Status = "fail"
	// StatusNew indicates the screenshot has no baseline counterpart
	StatusNew Status = "new"
	// StatusMissing indicates a baseline screenshot was not produced locally
	StatusMissing Status = "missing"
)

// Valid reports whether s is one of the four known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusPass, StatusFail, StatusNew, StatusMissing:
		return true
	default:
		return false
	}
}

// ComparisonResult represents the outcome of classifying one screenshot.
// Pixel counts are only present when both a baseline and a current image exist.
type ComparisonResult struct {
	// Name is the screenshot file name, unique within a run
	Name string `json:"name"`
	// Status is the classification
	Status Status `json:"status"`
	// DiffPixels is the number of pixels counted as different
	DiffPixels *int `json:"diffPixels,omitempty"`
	// TotalPixels is the number of pixels compared
	TotalPixels *int `json:"totalPixels,omitempty"`
	// DiffPercentage is DiffPixels relative to TotalPixels, in percent
	DiffPercentage *float64 `json:"diffPercentage,omitempty"`
	// DiffPath points at the written diff artifact, if any
	DiffPath string `json:"diffPath,omitempty"`
	// BaselinePath is the local path of the baseline image
	BaselinePath string `json:"baselinePath,omitempty"`
	// CurrentPath is the local path of the freshly produced image
	CurrentPath string `json:"currentPath,omitempty"`
}

// NewScreenshot builds the result for a screenshot that has no baseline
func NewScreenshot(name, currentPath string) ComparisonResult {
	return ComparisonResult{
		Name:        name,
		Status:      StatusNew,
		CurrentPath: currentPath,
	}
}

// MissingScreenshot builds the result for a baseline screenshot absent locally
func MissingScreenshot(name, baselinePath string) ComparisonResult {
	return ComparisonResult{
		Name:         name,
		Status:       StatusMissing,
		BaselinePath: baselinePath,
	}
}

// ComparedScreenshot builds the result for a screenshot present on both sides.
// threshold is the pass/fail gate on the difference percentage.
func ComparedScreenshot(name, baselinePath, currentPath, diffPath string, diffPixels, totalPixels int, diffPercentage, threshold float64) ComparisonResult {
	// Passes only when provably within the threshold; NaN fails
	status := StatusFail
	if diffPercentage <= threshold {
		status = StatusPass
	}

	return ComparisonResult{
		Name:           name,
		Status:         status,
		DiffPixels:     &diffPixels,
		TotalPixels:    &totalPixels,
		DiffPercentage: &diffPercentage,
		DiffPath:       diffPath,
		BaselinePath:   baselinePath,
		CurrentPath:    currentPath,
	}
}

// HasDiffArtifact reports whether a diff image was written for this result
func (r ComparisonResult) HasDiffArtifact() bool {
	return r.DiffPath != ""
}

// Percentage returns the difference percentage and whether it is defined
func (r ComparisonResult) Percentage() (float64, bool) {
	if r.DiffPercentage == nil {
		return 0, false
	}
	return *r.DiffPercentage, true
}
